package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/services/aggregator"
	"StockCast/internal/services/features"
	"StockCast/internal/services/recommend"
	applogger "StockCast/pkg/logger"
	pkgmetrics "StockCast/pkg/metrics"
	"StockCast/pkg/util"
)

const MaxHorizonDays = 30

type PredictorConfig struct {
	LookbackDays int
	FetchTimeout time.Duration
}

// Predictor runs fetch -> features -> ensemble -> blend -> recommendation for one symbol.
type Predictor struct {
	history domrepo.HistoryProvider
	builder *features.Builder
	loader  domsvc.ModelLoader
	agg     *aggregator.Aggregator
	calib   domrepo.CalibrationStore
	stocks  domsvc.StockDirectory
	events  domrepo.EventPublisher
	hub     domsvc.Broadcaster
	metrics domrepo.Metrics
	l       *applogger.Logger
	cfg     PredictorConfig
	now     func() time.Time
}

// NewPredictor wires the pipeline. stocks, events and hub may be nil.
func NewPredictor(
	history domrepo.HistoryProvider,
	builder *features.Builder,
	loader domsvc.ModelLoader,
	agg *aggregator.Aggregator,
	calib domrepo.CalibrationStore,
	stocks domsvc.StockDirectory,
	events domrepo.EventPublisher,
	hub domsvc.Broadcaster,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg PredictorConfig,
) *Predictor {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Noop{}
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 420
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Predictor{
		history: history,
		builder: builder,
		loader:  loader,
		agg:     agg,
		calib:   calib,
		stocks:  stocks,
		events:  events,
		hub:     hub,
		metrics: metrics,
		l:       l,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Predict forecasts horizon trading days for symbol using kinds (all kinds when empty).
func (p *Predictor) Predict(ctx context.Context, symbol string, horizon int, kinds ...models.ModelKind) (*models.PredictionResult, error) {
	start := p.now()
	res, err := p.predict(ctx, symbol, horizon, kinds)
	p.metrics.RecordLatency("predict", p.now().Sub(start).Seconds())
	if err != nil {
		p.metrics.RecordError(string(models.KindOf(err)))
		return nil, err
	}
	return res, nil
}

func (p *Predictor) predict(ctx context.Context, raw string, horizon int, kinds []models.ModelKind) (*models.PredictionResult, error) {
	symbol, ok := util.NormalizeSymbol(raw)
	if !ok {
		return nil, fmt.Errorf("%q: %w", raw, models.ErrInvalidSymbol)
	}
	if horizon < 1 || horizon > MaxHorizonDays {
		return nil, fmt.Errorf("horizon %d outside 1..%d: %w", horizon, MaxHorizonDays, models.ErrInvalidHorizon)
	}

	bars, err := fetchHistory(ctx, p.history, symbol, p.cfg.LookbackDays, p.cfg.FetchTimeout)
	if err != nil {
		return nil, err
	}
	f, err := p.builder.Build(symbol, bars, time.Time{})
	if err != nil {
		return nil, err
	}

	paths := p.runModels(ctx, symbol, f, horizon, kinds)
	blend, err := p.agg.Blend(f.AsOf, horizon, paths)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	now := p.now().UTC()
	rec, err := p.calib.Get(ctx, symbol)
	if err != nil {
		p.l.Warn("calibration lookup failed", applogger.String("symbol", symbol), applogger.Error(err))
		rec = nil
	}
	final := blend.Forecast[len(blend.Forecast)-1]
	confidence, fresh := p.agg.Confidence(rec, now, final.PerModel)
	if !fresh {
		p.l.Debug("using default confidence baseline",
			applogger.String("symbol", symbol),
			applogger.Error(models.ErrStaleCalibration),
		)
	}

	current := f.LastClose()
	pct := recommend.PercentChange(current, final.PredictedPrice)
	res := &models.PredictionResult{
		Symbol:         symbol,
		Name:           p.nameOf(symbol),
		CurrentPrice:   current,
		HorizonDays:    horizon,
		Forecast:       blend.Forecast,
		Confidence:     confidence,
		Recommendation: recommend.Map(pct, confidence),
		PercentChange:  pct,
		ModelsUsed:     blend.ModelsUsed,
		Weights:        blend.Weights,
		Advice:         recommend.Advise(pct, confidence, horizon),
		GeneratedAt:    now,
	}

	p.metrics.RecordPrediction(symbol, res.Recommendation, confidence)
	p.metrics.RecordLastPrice(symbol, current)
	p.emit(ctx, res)
	return res, nil
}

// runModels collects a path from every requested kind that loads and forecasts.
// Failures are logged and skipped; the blend decides whether enough survived.
func (p *Predictor) runModels(ctx context.Context, symbol string, f models.Features, horizon int, kinds []models.ModelKind) map[models.ModelKind][]float64 {
	paths := make(map[models.ModelKind][]float64, len(kinds))
	for _, kind := range dedupeKinds(kinds) {
		m, err := p.loader.Load(ctx, symbol, kind)
		if err == nil {
			var path []float64
			if path, err = m.Forecast(ctx, f, horizon); err == nil {
				paths[kind] = path
				p.metrics.RecordModelOutcome(kind, "ok")
				continue
			}
		}
		if errors.Is(err, models.ErrModelUnavailable) {
			p.metrics.RecordModelOutcome(kind, "unavailable")
			p.l.Debug("model unavailable", applogger.String("symbol", symbol), applogger.String("model", string(kind)))
			continue
		}
		p.metrics.RecordModelOutcome(kind, "failed")
		p.l.Warn("model forecast failed",
			applogger.String("symbol", symbol),
			applogger.String("model", string(kind)),
			applogger.Error(err),
		)
	}
	return paths
}

// nameOf is the catalog name, or the symbol for stocks outside the catalog.
func (p *Predictor) nameOf(symbol string) string {
	if p.stocks != nil {
		if s, ok := p.stocks.Lookup(symbol); ok {
			return s.Name
		}
	}
	return symbol
}

func (p *Predictor) emit(ctx context.Context, res *models.PredictionResult) {
	ev := models.PredictionEvent{
		ID:             uuid.NewString(),
		Symbol:         res.Symbol,
		HorizonDays:    res.HorizonDays,
		CurrentPrice:   res.CurrentPrice,
		FinalPrice:     res.FinalPrice(),
		PercentChange:  res.PercentChange,
		Confidence:     res.Confidence,
		Recommendation: res.Recommendation,
		ModelsUsed:     res.ModelsUsed,
		GeneratedAt:    res.GeneratedAt,
	}
	if p.hub != nil {
		p.hub.Broadcast(ev)
	}
	if p.events != nil {
		if err := p.events.PublishPrediction(ctx, ev); err != nil {
			p.metrics.RecordError("publish_prediction")
			p.l.Warn("publish prediction failed", applogger.String("symbol", res.Symbol), applogger.Error(err))
		}
	}
}

func dedupeKinds(kinds []models.ModelKind) []models.ModelKind {
	if len(kinds) == 0 {
		return models.AllModelKinds()
	}
	seen := make(map[models.ModelKind]bool, len(kinds))
	out := make([]models.ModelKind, 0, len(kinds))
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// fetchHistory bounds the provider call by timeout and checks bar ordering.
// Every failure, including a timeout or malformed series, is DataUnavailable.
func fetchHistory(ctx context.Context, h domrepo.HistoryProvider, symbol string, lookback int, timeout time.Duration) ([]models.PriceBar, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bars, err := h.FetchHistory(fctx, symbol, lookback)
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch %s: %v: %w", symbol, err, models.ErrDataUnavailable)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s: no bars: %w", symbol, models.ErrDataUnavailable)
	}
	if err := models.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", symbol, err, models.ErrDataUnavailable)
	}
	return bars, nil
}
