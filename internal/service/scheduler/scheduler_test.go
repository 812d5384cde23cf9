package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeRecalibrator struct {
	mu    sync.Mutex
	calls [][]string
}

func (f *fakeRecalibrator) RecalibrateAll(_ context.Context, symbols []string) map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbols)
	return map[string]error{"BAD": errors.New("boom")}
}

func TestRunNowUsesWatchlist(t *testing.T) {
	rec := &fakeRecalibrator{}
	s := New(rec, []string{"TCS", "INFY"}, time.Second, nil)
	s.RunNow()
	if len(rec.calls) != 1 || len(rec.calls[0]) != 2 || rec.calls[0][0] != "TCS" {
		t.Fatalf("unexpected calls %v", rec.calls)
	}
}

func TestRegisterValidatesSpec(t *testing.T) {
	s := New(&fakeRecalibrator{}, nil, 0, nil)
	for _, spec := range []string{"0 18 * * 1-5", "0 30 18 * * 1-5", "@daily"} {
		if err := s.Register(spec); err != nil {
			t.Fatalf("%q: %v", spec, err)
		}
	}
	if err := s.Register("every tuesday"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestScheduledRunFires(t *testing.T) {
	rec := &fakeRecalibrator{}
	s := New(rec, []string{"TCS"}, time.Second, nil)
	if err := s.Register("@every 10ms"); err != nil {
		t.Fatal(err)
	}
	s.Start()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n := len(rec.calls)
		rec.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
