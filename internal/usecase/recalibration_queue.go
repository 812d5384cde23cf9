package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"StockCast/internal/domain/models"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

const RecalibrateJobType = "recalibrate"

// RecalibrationJob runs queued recalibrations. Outcomes a retry cannot change are not errors.
type RecalibrationJob struct {
	tracker *Tracker
	l       *applogger.Logger
}

func NewRecalibrationJob(tracker *Tracker, l *applogger.Logger) *RecalibrationJob {
	if l == nil {
		l = applogger.Nop()
	}
	return &RecalibrationJob{tracker: tracker, l: l}
}

func (j *RecalibrationJob) Type() string { return RecalibrateJobType }

func (j *RecalibrationJob) Handle(ctx context.Context, payload json.RawMessage) error {
	req, err := queue.Decode[models.CalibrateRequest](payload)
	if err != nil {
		j.l.Warn("dropping malformed recalibrate job", applogger.Error(err))
		return nil
	}
	_, err = j.tracker.Recalibrate(ctx, req.Symbol)
	if err == nil || permanent(err) {
		if err != nil {
			j.l.Info("recalibrate job skipped",
				applogger.String("symbol", req.Symbol),
				applogger.String("reason", string(models.KindOf(err))),
			)
		}
		return nil
	}
	return err
}

// QueuedRecalibrator fans a watchlist out to the work queue so any instance can run each symbol.
type QueuedRecalibrator struct {
	q queue.Enqueuer
}

func NewQueuedRecalibrator(q queue.Enqueuer) *QueuedRecalibrator {
	return &QueuedRecalibrator{q: q}
}

// RecalibrateAll enqueues one job per symbol and reports enqueue failures.
func (r *QueuedRecalibrator) RecalibrateAll(ctx context.Context, symbols []string) map[string]error {
	failed := make(map[string]error)
	for _, s := range symbols {
		if err := r.q.Enqueue(ctx, RecalibrateJobType, models.CalibrateRequest{Symbol: s}); err != nil {
			failed[s] = fmt.Errorf("enqueue %s: %w", s, err)
		}
	}
	return failed
}

// permanent reports failures that retrying the same request cannot fix.
func permanent(err error) bool {
	return errors.Is(err, models.ErrRecalibrationInProgress) ||
		errors.Is(err, models.ErrInvalidSymbol) ||
		errors.Is(err, models.ErrInsufficientHistory)
}

var _ queue.Job = (*RecalibrationJob)(nil)
