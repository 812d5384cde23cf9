package stream

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"StockCast/internal/domain/models"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversFilteredEvents(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?symbols=tcs.ns"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	hub.Broadcast(models.PredictionEvent{Symbol: "INFY", Recommendation: models.Sell})
	hub.Broadcast(models.PredictionEvent{Symbol: "TCS", Recommendation: models.Buy, FinalPrice: 105})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev models.PredictionEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Symbol != "TCS" || ev.Recommendation != models.Buy || ev.FinalPrice != 105 {
		t.Fatalf("unexpected event %+v", ev)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 0 })
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	// Run is not started so the queue fills up
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Broadcast(models.PredictionEvent{Symbol: "TCS"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked")
	}
	if hub.Dropped() == 0 {
		t.Fatalf("expected dropped messages once the queue is full")
	}
}
