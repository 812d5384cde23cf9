package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

// KafkaBarsHandler consumes daily bars and writes them to the bar sink.
// A message is one bar object or an array of bars.
type KafkaBarsHandler struct {
	topic   string
	sink    domrepo.BarSink
	metrics domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, sink domrepo.BarSink, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	bars, err := decodeBars(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	for i := range bars {
		sym, ok := util.NormalizeSymbol(bars[i].Symbol)
		if !ok {
			h.metrics.RecordError("consumer_symbol")
			return fmt.Errorf("bar %d: %q: %w", i, bars[i].Symbol, models.ErrInvalidSymbol)
		}
		bars[i].Symbol = sym
		if err := bars[i].Validate(); err != nil {
			h.metrics.RecordError("consumer_invalid_bar")
			return fmt.Errorf("%s: %w", sym, err)
		}
	}

	start := time.Now()
	err = h.sink.StoreBars(ctx, bars)
	h.metrics.RecordLatency("bars_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	last := bars[len(bars)-1]
	h.metrics.RecordLastPrice(last.Symbol, last.Close)
	return nil
}

func decodeBars(b []byte) ([]models.PriceBar, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, errors.New("empty message")
	}
	var bars []models.PriceBar
	if b[0] == '[' {
		if err := json.Unmarshal(b, &bars); err != nil {
			return nil, fmt.Errorf("decode bars: %w", err)
		}
	} else {
		var bar models.PriceBar
		if err := json.Unmarshal(b, &bar); err != nil {
			return nil, fmt.Errorf("decode bar: %w", err)
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, errors.New("empty bar batch")
	}
	return bars, nil
}

// KafkaRecalibrateHandler runs a recalibration per {"symbol": ...} request.
type KafkaRecalibrateHandler struct {
	topic   string
	tracker *Tracker
	l       *applogger.Logger
}

func NewKafkaRecalibrateHandler(topic string, tracker *Tracker, l *applogger.Logger) *KafkaRecalibrateHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaRecalibrateHandler{topic: topic, tracker: tracker, l: l}
}

func (h *KafkaRecalibrateHandler) Topic() string { return h.topic }

// Handle drops requests that can never succeed so they are not retried into the DLQ.
func (h *KafkaRecalibrateHandler) Handle(ctx context.Context, b []byte) error {
	var req models.CalibrateRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return fmt.Errorf("decode recalibrate request: %w", err)
	}
	_, err := h.tracker.Recalibrate(ctx, req.Symbol)
	switch {
	case err == nil:
		return nil
	case permanent(err):
		h.l.Info("recalibrate request skipped",
			applogger.String("symbol", req.Symbol),
			applogger.String("reason", string(models.KindOf(err))),
		)
		return nil
	default:
		return err
	}
}

var (
	_ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
	_ pkgkafka.MessageHandler = (*KafkaRecalibrateHandler)(nil)
)
