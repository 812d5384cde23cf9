package usecase

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/features"
	"StockCast/pkg/util"
)

// Technical reports trend, strength and indicator signals for a symbol.
type Technical struct {
	history  domrepo.HistoryProvider
	lookback int
	timeout  time.Duration
}

func NewTechnical(history domrepo.HistoryProvider, lookbackDays int, timeout time.Duration) *Technical {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Technical{history: history, lookback: lookbackDays, timeout: timeout}
}

func (t *Technical) Analyze(ctx context.Context, raw string) (*models.TechnicalAnalysis, error) {
	symbol, ok := util.NormalizeSymbol(raw)
	if !ok {
		return nil, fmt.Errorf("%q: %w", raw, models.ErrInvalidSymbol)
	}
	bars, err := fetchHistory(ctx, t.history, symbol, t.lookback, t.timeout)
	if err != nil {
		return nil, err
	}
	ta := features.Analyze(symbol, bars)
	return &ta, nil
}
