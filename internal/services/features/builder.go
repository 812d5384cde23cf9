package features

import (
	"fmt"
	"math"
	"time"

	"StockCast/internal/domain/models"
)

const tradingDaysPerYear = 252

// Config selects the indicator set and the minimum window.
type Config struct {
	MinWindow    int
	SMAPeriods   []int
	EMAPeriods   []int
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BBPeriod     int
	BBStd        float64
	ATRPeriod    int
	VolumePeriod int
	MomentumLag  int
	VolPeriod    int
	Lags         []int
}

// DefaultConfig mirrors the production indicator set.
func DefaultConfig() Config {
	return Config{
		MinWindow:    60,
		SMAPeriods:   []int{10, 20, 50, 200},
		EMAPeriods:   []int{12, 26},
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BBPeriod:     20,
		BBStd:        2,
		ATRPeriod:    14,
		VolumePeriod: 20,
		MomentumLag:  10,
		VolPeriod:    20,
		Lags:         []int{1, 2, 3, 5},
	}
}

// Builder derives FeatureVectors from bar windows.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = DefaultConfig().MinWindow
	}
	return &Builder{cfg: cfg}
}

// MinWindow is the length of the close window handed to sequence models.
func (b *Builder) MinWindow() int { return b.cfg.MinWindow }

// RequiredBars is the longest lookback across the configured indicators.
func (b *Builder) RequiredBars() int {
	c := b.cfg
	need := c.MinWindow
	use := func(n int) {
		if n > need {
			need = n
		}
	}
	for _, p := range c.SMAPeriods {
		use(p)
	}
	for _, p := range c.EMAPeriods {
		use(p)
	}
	use(c.RSIPeriod + 1)
	use(c.MACDSlow + c.MACDSignal - 1)
	use(c.BBPeriod)
	use(c.ATRPeriod + 1)
	use(c.VolumePeriod)
	use(c.MomentumLag + 1)
	use(c.VolPeriod + 1)
	for _, l := range c.Lags {
		// price_change_lag_k needs the change k bars back
		use(l + 2)
	}
	return need
}

// Build computes features from bars dated on or before ref.
// A zero ref uses every bar.
func (b *Builder) Build(symbol string, bars []models.PriceBar, ref time.Time) (models.Features, error) {
	window := bars
	if !ref.IsZero() {
		cut := len(bars)
		for cut > 0 && bars[cut-1].Date.After(ref) {
			cut--
		}
		window = bars[:cut]
	}
	need := b.RequiredBars()
	if len(window) < need {
		return models.Features{}, fmt.Errorf("%s: have %d bars, need %d: %w",
			symbol, len(window), need, models.ErrInsufficientHistory)
	}

	n := len(window)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	vols := make([]float64, n)
	for i, bar := range window {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
		vols[i] = volumeOrZero(bar.Volume)
	}

	c := b.cfg
	last := window[n-1]
	px := last.Close
	fv := models.FeatureVector{}

	fv["close"] = px
	fv["price_change"] = pctChange(closes, n-1)
	fv["high_low_pct"] = ratio(last.High-last.Low, px)
	fv["price_position"] = ratio(px-last.Low, last.High-last.Low)

	for _, p := range c.SMAPeriods {
		sma := SMA(closes, p)
		fv[fmt.Sprintf("sma_%d", p)] = sma
		fv[fmt.Sprintf("price_sma_%d_ratio", p)] = ratio(px, sma)
	}
	for _, p := range c.EMAPeriods {
		fv[fmt.Sprintf("ema_%d", p)] = EMA(closes, p)
	}

	fv[fmt.Sprintf("rsi_%d", c.RSIPeriod)] = RSI(closes, c.RSIPeriod)

	line, sig, hist := MACD(closes, c.MACDFast, c.MACDSlow, c.MACDSignal)
	fv["macd"] = line
	fv["macd_signal"] = sig
	fv["macd_hist"] = hist

	upper, lower := Bollinger(closes, c.BBPeriod, c.BBStd)
	fv["bb_upper"] = upper
	fv["bb_lower"] = lower
	fv["bb_width"] = ratio(upper-lower, px)
	fv["bb_position"] = ratio(px-lower, upper-lower)

	fv[fmt.Sprintf("atr_%d", c.ATRPeriod)] = ATR(highs, lows, closes, c.ATRPeriod)

	volSMA := SMA(vols, c.VolumePeriod)
	fv[fmt.Sprintf("volume_sma_%d", c.VolumePeriod)] = volSMA
	fv["volume_ratio"] = ratio(vols[n-1], volSMA)

	past := closes[n-1-c.MomentumLag]
	mom := ratio(px, past) - 1
	fv[fmt.Sprintf("momentum_%d", c.MomentumLag)] = mom
	fv[fmt.Sprintf("roc_%d", c.MomentumLag)] = mom * 100
	fv[fmt.Sprintf("volatility_%d", c.VolPeriod)] = StdDev(closes, c.VolPeriod, true)

	for _, l := range c.Lags {
		fv[fmt.Sprintf("close_lag_%d", l)] = closes[n-1-l]
		fv[fmt.Sprintf("volume_lag_%d", l)] = vols[n-1-l]
		fv[fmt.Sprintf("price_change_lag_%d", l)] = pctChange(closes, n-1-l)
	}

	rets := LogReturns(closes)
	fv["log_return"] = rets[len(rets)-1]
	fv[fmt.Sprintf("realized_vol_%d", c.VolPeriod)] = RealizedVolatility(rets, c.VolPeriod, tradingDaysPerYear)

	seq := make([]float64, c.MinWindow)
	copy(seq, closes[n-c.MinWindow:])

	return models.Features{
		Symbol: symbol,
		AsOf:   last.Date,
		Values: fv,
		Closes: seq,
	}, nil
}

func pctChange(closes []float64, i int) float64 {
	if i < 1 {
		return math.NaN()
	}
	return ratio(closes[i], closes[i-1]) - 1
}

func volumeOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
