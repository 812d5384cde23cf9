package service

import (
	"context"

	"StockCast/internal/domain/models"
)

// Model forecasts a price path of length horizon from features.
type Model interface {
	Kind() models.ModelKind
	Forecast(ctx context.Context, f models.Features, horizon int) ([]float64, error)
}

// ModelLoader resolves the trained model for (symbol, kind).
// A missing artifact wraps models.ErrModelUnavailable.
type ModelLoader interface {
	Load(ctx context.Context, symbol string, kind models.ModelKind) (Model, error)
}

// StockDirectory resolves catalog details for a symbol.
type StockDirectory interface {
	Lookup(symbol string) (models.Stock, bool)
}

// Broadcaster fans prediction events out to live subscribers.
type Broadcaster interface {
	Broadcast(ev models.PredictionEvent)
}
