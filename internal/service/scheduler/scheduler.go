package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	applogger "StockCast/pkg/logger"
)

// Recalibrator refreshes calibration records for a watchlist.
type Recalibrator interface {
	RecalibrateAll(ctx context.Context, symbols []string) map[string]error
}

// Scheduler runs watchlist recalibration on a cron spec.
type Scheduler struct {
	cron      *cron.Cron
	rec       Recalibrator
	watchlist []string
	timeout   time.Duration
	l         *applogger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New builds a scheduler. The spec accepts five or six fields (leading seconds) and descriptors like @daily.
func New(rec Recalibrator, watchlist []string, timeout time.Duration, l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.Nop()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLogger{l}), cron.SkipIfStillRunning(cronLogger{l})),
		),
		rec:       rec,
		watchlist: watchlist,
		timeout:   timeout,
		l:         l,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register adds the recalibration job for spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register recalibration %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.Int("symbols", len(s.watchlist)))
}

// Stop cancels a running job and waits for it to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow recalibrates the whole watchlist once.
func (s *Scheduler) RunNow() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	failed := s.rec.RecalibrateAll(ctx, s.watchlist)
	s.l.Info("scheduled recalibration finished",
		applogger.Int("symbols", len(s.watchlist)),
		applogger.Int("failed", len(failed)),
		applogger.Duration("duration", time.Since(start)),
	)
}

// cronLogger adapts applogger to cron.Logger.
type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, applogger.Any("kv", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, applogger.Error(err), applogger.Any("kv", keysAndValues))
}
