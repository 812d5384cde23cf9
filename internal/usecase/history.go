package usecase

import (
	"context"
	"fmt"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/pkg/util"
)

// HistoryUseCase serves validated daily bars for charting clients.
type HistoryUseCase struct {
	history domrepo.HistoryProvider
	timeout time.Duration
}

func NewHistoryUseCase(history domrepo.HistoryProvider, timeout time.Duration) *HistoryUseCase {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HistoryUseCase{history: history, timeout: timeout}
}

type GetBarsResult struct {
	Symbol string            `json:"symbol"`
	From   time.Time         `json:"from"`
	To     time.Time         `json:"to"`
	Count  int               `json:"count"`
	Bars   []models.PriceBar `json:"bars"`
}

// GetBars returns the last days calendar days of bars, capped at 5 years.
func (uc *HistoryUseCase) GetBars(ctx context.Context, raw string, days int) (*GetBarsResult, error) {
	symbol, ok := util.NormalizeSymbol(raw)
	if !ok {
		return nil, fmt.Errorf("%q: %w", raw, models.ErrInvalidSymbol)
	}
	if days <= 0 {
		days = 90
	}
	if days > 5*365 {
		days = 5 * 365
	}

	bars, err := fetchHistory(ctx, uc.history, symbol, days, uc.timeout)
	if err != nil {
		return nil, err
	}
	return &GetBarsResult{
		Symbol: symbol,
		From:   bars[0].Date,
		To:     bars[len(bars)-1].Date,
		Count:  len(bars),
		Bars:   bars,
	}, nil
}
