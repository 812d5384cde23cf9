package repository

import (
	"context"
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/pkg/cache"
)

// CacheCalibrationStore keeps records in a cache.Service (Redis in production) without expiry.
type CacheCalibrationStore struct {
	c cache.Service
}

func NewCacheCalibrationStore(c cache.Service) *CacheCalibrationStore {
	return &CacheCalibrationStore{c: c}
}

func calibrationKey(symbol string) string { return cache.Key("calibration", symbol) }

func (s *CacheCalibrationStore) Get(ctx context.Context, symbol string) (*models.CalibrationRecord, error) {
	var r models.CalibrationRecord
	if err := s.c.Get(ctx, calibrationKey(symbol), &r); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get calibration: %w", err)
	}
	return &r, nil
}

func (s *CacheCalibrationStore) Put(ctx context.Context, rec models.CalibrationRecord) error {
	if err := s.c.Set(ctx, calibrationKey(rec.Symbol), rec, 0); err != nil {
		return fmt.Errorf("put calibration: %w", err)
	}
	return nil
}

var _ domrepo.CalibrationStore = (*CacheCalibrationStore)(nil)
