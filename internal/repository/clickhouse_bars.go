package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	pkgch "StockCast/pkg/clickhouse"
	applogger "StockCast/pkg/logger"
)

// BarSchema creates the daily bar table. ReplacingMergeTree keeps the latest
// ingest of a (symbol, date) pair.
func BarSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.daily_bars (
			symbol LowCardinality(String),
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime64(3) DEFAULT now64(3)
		) ENGINE = ReplacingMergeTree(ingested_at)
		ORDER BY (symbol, date)`, database),
	}
}

// CHBarStore reads and writes daily bars in ClickHouse.
type CHBarStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHBarStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHBarStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarStore{db: ch.DB(), table: database + ".daily_bars", l: l, now: time.Now}
}

// FetchHistory returns bars from the last lookbackDays calendar days, oldest first.
func (s *CHBarStore) FetchHistory(ctx context.Context, symbol string, lookbackDays int) ([]models.PriceBar, error) {
	start := time.Now()
	from := s.now().UTC().AddDate(0, 0, -lookbackDays)
	q := fmt.Sprintf(`
		SELECT symbol, date, open, high, low, close, volume
		FROM %s FINAL
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query bars %s: %v: %w", symbol, err, models.ErrDataUnavailable)
	}
	defer rows.Close()

	out := make([]models.PriceBar, 0, lookbackDays)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %v: %w", symbol, err, models.ErrDataUnavailable)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %v: %w", symbol, err, models.ErrDataUnavailable)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bars for %s: %w", symbol, models.ErrDataUnavailable)
	}
	s.l.Debug("clickhouse history ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBars inserts bars in multi-row chunks.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.PriceBar) error {
	const chunkSize = 1000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, b.Symbol, b.Date.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse bar insert error", applogger.Int("rows", end-start), applogger.Error(err))
			return fmt.Errorf("insert bars: %w", err)
		}
	}
	return nil
}

var (
	_ domrepo.HistoryProvider = (*CHBarStore)(nil)
	_ domrepo.BarSink         = (*CHBarStore)(nil)
)
