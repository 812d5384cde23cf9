package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/services/backtest"
	applogger "StockCast/pkg/logger"
	pkgmetrics "StockCast/pkg/metrics"
	"StockCast/pkg/util"
)

type CalibrationConfig struct {
	Windows         int
	Horizon         int
	Strategy        string
	LookbackDays    int
	FetchTimeout    time.Duration
	FreshnessWindow time.Duration
	LockTTL         time.Duration
}

// Tracker backtests a naive baseline per symbol and stores the accuracy score.
// At most one recalibration per symbol runs at a time; a second caller gets
// ErrRecalibrationInProgress instead of waiting.
type Tracker struct {
	history  domrepo.HistoryProvider
	store    domrepo.CalibrationStore
	locker   domrepo.Locker
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	l        *applogger.Logger
	cfg      CalibrationConfig
	baseline backtest.Baseline
	now      func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewTracker builds a tracker. locker and events may be nil.
func NewTracker(
	history domrepo.HistoryProvider,
	store domrepo.CalibrationStore,
	locker domrepo.Locker,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg CalibrationConfig,
) (*Tracker, error) {
	b, err := backtest.ByName(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Noop{}
	}
	if cfg.Windows <= 0 {
		cfg.Windows = 10
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 5
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 420
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = 7 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Tracker{
		history:  history,
		store:    store,
		locker:   locker,
		events:   events,
		metrics:  metrics,
		l:        l,
		cfg:      cfg,
		baseline: b,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}, nil
}

// Recalibrate replays the baseline over recent windows and upserts the record for symbol.
func (t *Tracker) Recalibrate(ctx context.Context, raw string) (*models.CalibrationRecord, error) {
	symbol, ok := util.NormalizeSymbol(raw)
	if !ok {
		return nil, fmt.Errorf("%q: %w", raw, models.ErrInvalidSymbol)
	}

	release, err := t.acquire(ctx, symbol)
	if err != nil {
		t.metrics.RecordError(string(models.KindOf(err)))
		return nil, err
	}
	defer release()

	start := t.now()
	rec, err := t.recalibrate(ctx, symbol)
	t.metrics.RecordLatency("recalibrate", t.now().Sub(start).Seconds())
	if err != nil {
		t.metrics.RecordError(string(models.KindOf(err)))
		return nil, err
	}
	return rec, nil
}

func (t *Tracker) recalibrate(ctx context.Context, symbol string) (*models.CalibrationRecord, error) {
	bars, err := fetchHistory(ctx, t.history, symbol, t.cfg.LookbackDays, t.cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}
	res, err := backtest.Run(models.Closes(bars), t.baseline, t.cfg.Windows, t.cfg.Horizon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	rec := models.CalibrationRecord{
		Symbol:        symbol,
		AccuracyScore: res.Accuracy,
		SampleCount:   res.Windows,
		Strategy:      t.baseline.Name(),
		ComputedAt:    t.now().UTC(),
	}
	if err := t.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store calibration %s: %w", symbol, err)
	}

	t.metrics.RecordCalibration(symbol, rec.AccuracyScore)
	t.l.Info("calibration updated",
		applogger.String("symbol", symbol),
		applogger.Float64("accuracy", rec.AccuracyScore),
		applogger.Int("windows", rec.SampleCount),
		applogger.String("strategy", rec.Strategy),
	)
	if t.events != nil {
		ev := models.CalibrationEvent{ID: uuid.NewString(), Record: rec}
		if err := t.events.PublishCalibration(ctx, ev); err != nil {
			t.metrics.RecordError("publish_calibration")
			t.l.Warn("publish calibration failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return &rec, nil
}

// Status reports the stored record for symbol and whether it is fresh.
func (t *Tracker) Status(ctx context.Context, raw string) (*models.CalibrationStatus, error) {
	symbol, ok := util.NormalizeSymbol(raw)
	if !ok {
		return nil, fmt.Errorf("%q: %w", raw, models.ErrInvalidSymbol)
	}
	rec, err := t.store.Get(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load calibration %s: %w", symbol, err)
	}
	return &models.CalibrationStatus{
		Symbol: symbol,
		State:  rec.StateAt(t.now(), t.cfg.FreshnessWindow),
		Record: rec,
	}, nil
}

// RecalibrateAll runs Recalibrate for each symbol and returns the failures by symbol.
func (t *Tracker) RecalibrateAll(ctx context.Context, symbols []string) map[string]error {
	failed := make(map[string]error)
	for _, s := range symbols {
		if err := ctx.Err(); err != nil {
			failed[s] = err
			continue
		}
		if _, err := t.Recalibrate(ctx, s); err != nil {
			failed[s] = err
			t.l.Warn("recalibration failed", applogger.String("symbol", s), applogger.Error(err))
		}
	}
	return failed
}

// acquire takes the in-process slot for symbol and, when configured, the distributed lock.
func (t *Tracker) acquire(ctx context.Context, symbol string) (func(), error) {
	t.mu.Lock()
	if _, busy := t.inflight[symbol]; busy {
		t.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrRecalibrationInProgress)
	}
	t.inflight[symbol] = struct{}{}
	t.mu.Unlock()

	local := func() {
		t.mu.Lock()
		delete(t.inflight, symbol)
		t.mu.Unlock()
	}
	if t.locker == nil {
		return local, nil
	}

	key := "calibration:lock:" + symbol
	ok, err := t.locker.TryLock(ctx, key, t.cfg.LockTTL)
	if err != nil {
		local()
		return nil, fmt.Errorf("calibration lock %s: %w", symbol, err)
	}
	if !ok {
		local()
		return nil, fmt.Errorf("%s: held elsewhere: %w", symbol, models.ErrRecalibrationInProgress)
	}
	return func() {
		if err := t.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			t.l.Warn("calibration unlock failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		local()
	}, nil
}
