package repository

import (
	"context"
	"time"

	"StockCast/internal/domain/models"
)

// HistoryProvider returns ordered daily bars for a symbol.
// Failures wrap models.ErrDataUnavailable.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error)
}

// CalibrationStore persists one record per symbol. Get returns (nil, nil) when absent.
type CalibrationStore interface {
	Get(ctx context.Context, symbol string) (*models.CalibrationRecord, error)
	Put(ctx context.Context, rec models.CalibrationRecord) error
}

// BarSink stores ingested bars.
type BarSink interface {
	StoreBars(ctx context.Context, bars []models.PriceBar) error
}

// EventPublisher emits domain events to downstream consumers.
type EventPublisher interface {
	PublishPrediction(ctx context.Context, ev models.PredictionEvent) error
	PublishCalibration(ctx context.Context, ev models.CalibrationEvent) error
}

// Metrics records pipeline measurements.
type Metrics interface {
	RecordPrediction(symbol string, rec models.Recommendation, confidence float64)
	RecordModelOutcome(kind models.ModelKind, result string)
	RecordCalibration(symbol string, accuracy float64)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// Locker is a distributed try-lock; pkg/cache services satisfy it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}
