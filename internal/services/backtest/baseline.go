package backtest

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"StockCast/internal/domain/models"
)

// Baseline forecasts the close horizon bars ahead from the closes seen so far.
type Baseline interface {
	Name() string
	// MinBars is the shortest history Forecast accepts.
	MinBars() int
	Forecast(closes []float64, horizon int) float64
}

// Persistence predicts the last close.
type Persistence struct{}

func (Persistence) Name() string { return "persistence" }
func (Persistence) MinBars() int { return 1 }

func (Persistence) Forecast(closes []float64, _ int) float64 {
	return closes[len(closes)-1]
}

// Drift extrapolates the mean daily change over the last Lookback bars.
type Drift struct {
	Lookback int
}

func (Drift) Name() string   { return "drift" }
func (d Drift) MinBars() int { return d.Lookback + 1 }

func (d Drift) Forecast(closes []float64, horizon int) float64 {
	last := closes[len(closes)-1]
	first := closes[len(closes)-1-d.Lookback]
	return last + (last-first)/float64(d.Lookback)*float64(horizon)
}

// MovingAverage predicts the simple average of the last Period closes.
type MovingAverage struct {
	Period int
}

func (MovingAverage) Name() string   { return "sma" }
func (m MovingAverage) MinBars() int { return m.Period }

func (m MovingAverage) Forecast(closes []float64, _ int) float64 {
	sma := talib.Sma(closes[len(closes)-m.Period:], m.Period)
	return sma[len(sma)-1]
}

// ByName resolves a configured strategy name.
func ByName(name string) (Baseline, error) {
	switch name {
	case "", "persistence":
		return Persistence{}, nil
	case "drift":
		return Drift{Lookback: 20}, nil
	case "sma":
		return MovingAverage{Period: 20}, nil
	}
	return nil, fmt.Errorf("unknown baseline strategy %q", name)
}

// Result is the outcome of replaying a baseline.
type Result struct {
	Accuracy float64
	MAPE     float64
	Windows  int
}

// Run replays up to windows non-overlapping windows of horizon bars, newest first.
// Each window forecasts its end close from the closes before its start.
// Accuracy is 100 - MAPE, floored at 50.
func Run(closes []float64, b Baseline, windows, horizon int) (Result, error) {
	if windows < 1 || horizon < 1 {
		return Result{}, fmt.Errorf("windows %d and horizon %d must be positive", windows, horizon)
	}
	var apeSum float64
	n := 0
	for w := 0; w < windows; w++ {
		end := len(closes) - 1 - w*horizon
		origin := end - horizon
		if origin+1 < b.MinBars() {
			break
		}
		actual := closes[end]
		if actual <= 0 {
			continue
		}
		pred := b.Forecast(closes[:origin+1], horizon)
		apeSum += math.Abs(pred-actual) / actual * 100
		n++
	}
	if n == 0 {
		return Result{}, fmt.Errorf("%d closes cannot fill one %d-bar %s window: %w",
			len(closes), horizon, b.Name(), models.ErrInsufficientHistory)
	}
	mape := apeSum / float64(n)
	return Result{Accuracy: math.Max(50, 100-mape), MAPE: mape, Windows: n}, nil
}
