package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
)

// CalibrationSchema creates the calibration table; the newest computed_at wins on merge.
func CalibrationSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.calibrations (
			symbol String,
			accuracy_score Float64,
			sample_count UInt32,
			strategy LowCardinality(String),
			computed_at DateTime64(3)
		) ENGINE = ReplacingMergeTree(computed_at)
		ORDER BY symbol`, database),
	}
}

// CHCalibrationStore keeps calibration records in ClickHouse.
type CHCalibrationStore struct {
	db    *sql.DB
	table string
}

func NewCHCalibrationStore(ch *pkgch.Client, database string) *CHCalibrationStore {
	return &CHCalibrationStore{db: ch.DB(), table: database + ".calibrations"}
}

func (s *CHCalibrationStore) Get(ctx context.Context, symbol string) (*models.CalibrationRecord, error) {
	q := fmt.Sprintf(`
		SELECT symbol, accuracy_score, sample_count, strategy, computed_at
		FROM %s FINAL
		WHERE symbol = ?
		LIMIT 1`, s.table)
	var r models.CalibrationRecord
	var samples uint32
	err := s.db.QueryRowContext(ctx, q, symbol).Scan(&r.Symbol, &r.AccuracyScore, &samples, &r.Strategy, &r.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calibration: %w", err)
	}
	r.SampleCount = int(samples)
	return &r, nil
}

func (s *CHCalibrationStore) Put(ctx context.Context, rec models.CalibrationRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, accuracy_score, sample_count, strategy, computed_at) VALUES (?, ?, ?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q, rec.Symbol, rec.AccuracyScore, uint32(rec.SampleCount), rec.Strategy, rec.ComputedAt.UTC()); err != nil {
		return fmt.Errorf("put calibration: %w", err)
	}
	return nil
}

var _ domrepo.CalibrationStore = (*CHCalibrationStore)(nil)
