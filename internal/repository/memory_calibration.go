package repository

import (
	"context"
	"sync"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
)

// MemoryCalibrationStore keeps records for the life of the process.
type MemoryCalibrationStore struct {
	mu   sync.RWMutex
	recs map[string]models.CalibrationRecord
}

func NewMemoryCalibrationStore() *MemoryCalibrationStore {
	return &MemoryCalibrationStore{recs: make(map[string]models.CalibrationRecord)}
}

func (s *MemoryCalibrationStore) Get(_ context.Context, symbol string) (*models.CalibrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[symbol]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryCalibrationStore) Put(_ context.Context, rec models.CalibrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Symbol] = rec
	return nil
}

var _ domrepo.CalibrationStore = (*MemoryCalibrationStore)(nil)
