package repository

import (
	"context"
	"errors"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"
)

// CachedHistory serves repeated history requests from a cache for ttl.
// Cache failures fall through to the provider.
type CachedHistory struct {
	next domrepo.HistoryProvider
	c    cache.Service
	ttl  time.Duration
	l    *applogger.Logger
}

func NewCachedHistory(next domrepo.HistoryProvider, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedHistory {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedHistory{next: next, c: c, ttl: ttl, l: l}
}

func (h *CachedHistory) FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error) {
	key := cache.Key("history", symbol, lookbackDays)
	var bars []models.PriceBar
	err := h.c.Get(ctx, key, &bars)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		h.l.Warn("history cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
	}

	bars, err = h.next.FetchHistory(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	if err := h.c.Set(ctx, key, bars, h.ttl); err != nil {
		h.l.Warn("history cache write failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return bars, nil
}

var _ domrepo.HistoryProvider = (*CachedHistory)(nil)
