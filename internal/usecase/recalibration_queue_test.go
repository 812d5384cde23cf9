package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"StockCast/internal/domain/models"
)

func TestRecalibrationJob(t *testing.T) {
	h := &fakeHistory{bars: map[string][]models.PriceBar{"TCS": waveBars(300), "NEW": flatBars(3, 10)}}
	store := newMemStore()
	job := NewRecalibrationJob(newTracker(t, h, store, nil), nil)

	if err := job.Handle(context.Background(), json.RawMessage(`{"symbol":"tcs.ns"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rec, _ := store.Get(context.Background(), "TCS"); rec == nil {
		t.Fatalf("record not stored")
	}
	if err := job.Handle(context.Background(), json.RawMessage(`{"symbol":"NEW"}`)); err != nil {
		t.Fatalf("insufficient history should not be retried: %v", err)
	}
	if err := job.Handle(context.Background(), json.RawMessage(`{"symbol":"GONE"}`)); !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("unknown symbol: err = %v, want DataUnavailable for retry", err)
	}
	if err := job.Handle(context.Background(), json.RawMessage(`{`)); err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
}

type fakeEnqueuer struct {
	fail map[string]bool
	got  []models.CalibrateRequest
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	req := payload.(models.CalibrateRequest)
	if msgType != RecalibrateJobType || f.fail[req.Symbol] {
		return errors.New("redis down")
	}
	f.got = append(f.got, req)
	return nil
}

func TestQueuedRecalibratorEnqueuesWatchlist(t *testing.T) {
	q := &fakeEnqueuer{fail: map[string]bool{"INFY": true}}
	failed := NewQueuedRecalibrator(q).RecalibrateAll(context.Background(), []string{"TCS", "INFY", "HDFCBANK"})
	if len(q.got) != 2 || q.got[0].Symbol != "TCS" || q.got[1].Symbol != "HDFCBANK" {
		t.Fatalf("enqueued %v", q.got)
	}
	if len(failed) != 1 || failed["INFY"] == nil {
		t.Fatalf("failed = %v", failed)
	}
}
