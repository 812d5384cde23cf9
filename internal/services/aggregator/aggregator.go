package aggregator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/util"
)

// Config holds blend weights and the confidence policy.
type Config struct {
	Weights          map[models.ModelKind]float64
	DefaultBaseline  float64
	Min              float64
	Max              float64
	AgreementSpan    float64
	MaxDispersionPct float64
	FreshnessWindow  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Weights: map[models.ModelKind]float64{
			models.KindSequence: 0.4,
			models.KindForest:   0.3,
			models.KindBoosted:  0.3,
		},
		DefaultBaseline:  75,
		Min:              50,
		Max:              95,
		AgreementSpan:    10,
		MaxDispersionPct: 5,
		FreshnessWindow:  7 * 24 * time.Hour,
	}
}

// Aggregator blends per-model price paths into one forecast.
type Aggregator struct {
	cfg Config
}

func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

func (a *Aggregator) Config() Config { return a.cfg }

// Blend is the outcome of combining model paths.
type Blend struct {
	Forecast   []models.ForecastPoint
	Weights    map[models.ModelKind]float64
	ModelsUsed []models.ModelKind
}

// Blend combines paths (kind -> prices for days 1..horizon) into forecast points dated on
// the trading days after lastDate. Paths of the wrong length are ignored. Weights are
// renormalised over the models present and again per day over the usable values.
func (a *Aggregator) Blend(lastDate time.Time, horizon int, paths map[models.ModelKind][]float64) (*Blend, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon %d must be positive", horizon)
	}
	kinds := make([]models.ModelKind, 0, len(paths))
	for k, p := range paths {
		if len(p) == horizon {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no model produced a %d-day path: %w", horizon, models.ErrNoModelAvailable)
	}
	sortKinds(kinds)
	weights := a.normalise(kinds)

	dates := util.NextTradingDays(lastDate, horizon)
	out := make([]models.ForecastPoint, horizon)
	for d := 0; d < horizon; d++ {
		per := make(map[models.ModelKind]float64, len(kinds))
		var sum, wsum float64
		for _, k := range kinds {
			v := paths[k][d]
			if !usable(v) {
				continue
			}
			per[k] = v
			sum += weights[k] * v
			wsum += weights[k]
		}
		if wsum == 0 {
			return nil, fmt.Errorf("day %d has no usable model value: %w", d+1, models.ErrNoModelAvailable)
		}
		out[d] = models.ForecastPoint{
			Day:            d + 1,
			Date:           dates[d],
			PredictedPrice: sum / wsum,
			PerModel:       per,
		}
	}
	return &Blend{Forecast: out, Weights: weights, ModelsUsed: kinds}, nil
}

// normalise rescales the configured weights of kinds to sum to 1. When every
// configured weight is zero the kinds share equally.
func (a *Aggregator) normalise(kinds []models.ModelKind) map[models.ModelKind]float64 {
	total := 0.0
	for _, k := range kinds {
		total += math.Max(a.cfg.Weights[k], 0)
	}
	out := make(map[models.ModelKind]float64, len(kinds))
	for _, k := range kinds {
		if total == 0 {
			out[k] = 1 / float64(len(kinds))
			continue
		}
		out[k] = math.Max(a.cfg.Weights[k], 0) / total
	}
	return out
}

// Confidence scores a forecast from the calibration record and model agreement on
// the final day. It reports whether the calibration was fresh.
func (a *Aggregator) Confidence(rec *models.CalibrationRecord, now time.Time, final map[models.ModelKind]float64) (float64, bool) {
	base := a.cfg.DefaultBaseline
	fresh := rec.StateAt(now, a.cfg.FreshnessWindow) == models.CalibrationFresh
	if fresh {
		base = rec.AccuracyScore
	}
	return clamp(base+a.agreement(final), a.cfg.Min, a.cfg.Max), fresh
}

// agreement maps the dispersion of final-day prices onto [-span, +span].
func (a *Aggregator) agreement(final map[models.ModelKind]float64) float64 {
	if len(final) < 2 || a.cfg.MaxDispersionPct <= 0 {
		return 0
	}
	var mean float64
	for _, v := range final {
		mean += v
	}
	mean /= float64(len(final))
	if mean <= 0 {
		return 0
	}
	var ss float64
	for _, v := range final {
		ss += (v - mean) * (v - mean)
	}
	disp := math.Sqrt(ss/float64(len(final))) / mean * 100
	return a.cfg.AgreementSpan * (1 - 2*math.Min(disp/a.cfg.MaxDispersionPct, 1))
}

func usable(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// sortKinds orders the known kinds first in blend order, then any others by name.
func sortKinds(kinds []models.ModelKind) {
	rank := map[models.ModelKind]int{}
	for i, k := range models.AllModelKinds() {
		rank[k] = i + 1
	}
	sort.Slice(kinds, func(i, j int) bool {
		ri, rj := rank[kinds[i]], rank[kinds[j]]
		if ri == 0 && rj == 0 {
			return kinds[i] < kinds[j]
		}
		if ri == 0 || rj == 0 {
			return rj == 0
		}
		return ri < rj
	})
}
