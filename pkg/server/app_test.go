package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockCast/internal/service/stream"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
)

func TestServeStopsOnCancelAndClosesInReverse(t *testing.T) {
	cfg := config.Default()
	cfg.Server.ShutdownTimeout = time.Second

	var order []string
	closeErr := errors.New("close failed")
	app := New(cfg, nil, Components{
		HTTP: xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0), xhttp.WithMetrics(false, "", 0)),
		Hub:  stream.NewHub(nil),
		Closers: []Closer{
			{Name: "first", Close: func() error { order = append(order, "first"); return closeErr }},
			{Name: "second", Close: func() error { order = append(order, "second"); return nil }},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, closeErr) {
			t.Fatalf("Serve err = %v, want close error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("close order = %v", order)
	}
}
