package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
)

const calibrationDDL = `
CREATE TABLE IF NOT EXISTS calibrations (
	symbol         VARCHAR(32) PRIMARY KEY,
	accuracy_score DOUBLE PRECISION NOT NULL,
	sample_count   INTEGER NOT NULL,
	strategy       VARCHAR(32) NOT NULL,
	computed_at_ms BIGINT NOT NULL
)`

type calibrationRow struct {
	Symbol        string  `db:"symbol"`
	AccuracyScore float64 `db:"accuracy_score"`
	SampleCount   int     `db:"sample_count"`
	Strategy      string  `db:"strategy"`
	ComputedAtMs  int64   `db:"computed_at_ms"`
}

// SQLCalibrationStore keeps one calibration row per symbol in sqlite or postgres.
type SQLCalibrationStore struct {
	db *sqlx.DB
}

// OpenSQLCalibrationStore connects with driver ("sqlite" or "postgres") and creates the table.
func OpenSQLCalibrationStore(ctx context.Context, driver, dsn string) (*SQLCalibrationStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY and keeps :memory: on one connection
		db.SetMaxOpenConns(1)
	}
	s := &SQLCalibrationStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLCalibrationStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, calibrationDDL); err != nil {
		return fmt.Errorf("migrate calibrations: %w", err)
	}
	return nil
}

func (s *SQLCalibrationStore) Get(ctx context.Context, symbol string) (*models.CalibrationRecord, error) {
	var row calibrationRow
	q := s.db.Rebind(`SELECT symbol, accuracy_score, sample_count, strategy, computed_at_ms FROM calibrations WHERE symbol = ?`)
	if err := s.db.GetContext(ctx, &row, q, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get calibration: %w", err)
	}
	return &models.CalibrationRecord{
		Symbol:        row.Symbol,
		AccuracyScore: row.AccuracyScore,
		SampleCount:   row.SampleCount,
		Strategy:      row.Strategy,
		ComputedAt:    time.UnixMilli(row.ComputedAtMs).UTC(),
	}, nil
}

func (s *SQLCalibrationStore) Put(ctx context.Context, rec models.CalibrationRecord) error {
	row := calibrationRow{
		Symbol:        rec.Symbol,
		AccuracyScore: rec.AccuracyScore,
		SampleCount:   rec.SampleCount,
		Strategy:      rec.Strategy,
		ComputedAtMs:  rec.ComputedAt.UnixMilli(),
	}
	const q = `
		INSERT INTO calibrations (symbol, accuracy_score, sample_count, strategy, computed_at_ms)
		VALUES (:symbol, :accuracy_score, :sample_count, :strategy, :computed_at_ms)
		ON CONFLICT (symbol) DO UPDATE SET
			accuracy_score = excluded.accuracy_score,
			sample_count = excluded.sample_count,
			strategy = excluded.strategy,
			computed_at_ms = excluded.computed_at_ms`
	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("put calibration: %w", err)
	}
	return nil
}

// Health pings the database.
func (s *SQLCalibrationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLCalibrationStore) Close() error {
	return s.db.Close()
}

var _ domrepo.CalibrationStore = (*SQLCalibrationStore)(nil)
