package usecase

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/ensemble"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

// TrainedModel summarises one artifact written by Train.
type TrainedModel struct {
	Kind      models.ModelKind `json:"kind"`
	Samples   int              `json:"samples"`
	TrainedAt time.Time        `json:"trained_at"`
}

// Training fetches a long history and refits the local model artifacts.
type Training struct {
	history  domrepo.HistoryProvider
	trainer  *ensemble.Trainer
	l        *applogger.Logger
	lookback int
	timeout  time.Duration
}

func NewTraining(history domrepo.HistoryProvider, trainer *ensemble.Trainer, l *applogger.Logger, lookbackDays int, timeout time.Duration) *Training {
	if l == nil {
		l = applogger.Nop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Training{history: history, trainer: trainer, l: l, lookback: lookbackDays, timeout: timeout}
}

func (t *Training) Train(ctx context.Context, raw string) ([]TrainedModel, error) {
	symbol, ok := util.NormalizeSymbol(raw)
	if !ok {
		return nil, fmt.Errorf("%q: %w", raw, models.ErrInvalidSymbol)
	}
	bars, err := fetchHistory(ctx, t.history, symbol, t.lookback, t.timeout)
	if err != nil {
		return nil, err
	}
	arts, err := t.trainer.Train(ctx, symbol, bars)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", symbol, err)
	}
	out := make([]TrainedModel, 0, len(arts))
	for _, a := range arts {
		out = append(out, TrainedModel{Kind: a.Kind, Samples: a.Samples, TrainedAt: a.TrainedAt})
	}
	return out, nil
}
