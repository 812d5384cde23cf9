package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type chanPublisher struct {
	got chan []AggregatedLogEntry
}

func (p *chanPublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	logs, ok := payload.([]AggregatedLogEntry)
	if !ok {
		return errors.New("unexpected payload")
	}
	p.got <- logs
	return nil
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &chanPublisher{got: make(chan []AggregatedLogEntry, 1)}
	c := NewLogCollector(&CollectionConfig{
		FlushInterval: time.Hour,
		MaxEntries:    2,
		Topic:         "logs",
		Publisher:     pub,
	})
	defer c.Close()

	fields := map[string]interface{}{"symbol": "TCS"}
	c.AddLog("error", "fetch failed", fields, "a.go:1")
	c.AddLog("error", "fetch failed", map[string]interface{}{"symbol": "TCS"}, "a.go:1")
	c.AddLog("error", "model failed", nil, "b.go:2")

	select {
	case logs := <-pub.got:
		if len(logs) != 2 {
			t.Fatalf("expected 2 unique entries, got %d", len(logs))
		}
		if logs[0].Message != "fetch failed" || logs[0].Count != 2 {
			t.Fatalf("most frequent entry first, got %+v", logs[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not flush")
	}
}

func TestCollectorFlushesOnClose(t *testing.T) {
	pub := &chanPublisher{got: make(chan []AggregatedLogEntry, 1)}
	c := NewLogCollector(&CollectionConfig{FlushInterval: time.Hour, MaxEntries: 100, Publisher: pub})
	c.AddLog("error", "boom", nil, "x.go:9")
	c.Close()

	select {
	case logs := <-pub.got:
		if len(logs) != 1 || logs[0].Count != 1 {
			t.Fatalf("logs = %+v", logs)
		}
	default:
		t.Fatalf("close did not flush pending entries")
	}
}

type recordPublisher struct {
	mu   sync.Mutex
	msgs []AggregatedLogEntry
}

func (p *recordPublisher) PublishMessage(_ context.Context, _ string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, payload.([]AggregatedLogEntry)...)
	return nil
}

func TestChildLoggerReachesLaterCollector(t *testing.T) {
	root := Nop()
	child := root.With(String("component", "predictor"))

	pub := &recordPublisher{}
	root.AddCollector(&CollectionConfig{FlushInterval: time.Hour, Publisher: pub})
	child.Error("forecast failed", String("symbol", "INFY"), Error(errors.New("boom")))
	child.Warn("not collected")
	root.RemoveCollector()

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d entries, want 1", len(pub.msgs))
	}
	e := pub.msgs[0]
	if e.Message != "forecast failed" || e.Fields["symbol"] != "INFY" || e.Fields["error"] != "boom" {
		t.Fatalf("entry = %+v", e)
	}
	if e.Caller == "" || e.Caller == "unknown" {
		t.Fatalf("caller not captured")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	l := Nop().With(String("component", "test"))
	l.Info("ignored", Int("n", 1), Float64("x", 0.5), Duration("took", time.Second))
	l.Error("ignored", Error(errors.New("boom")))
}
