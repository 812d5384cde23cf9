package features

import (
	"math"

	"github.com/markcheno/go-talib"
)

// ratio returns num/den, or NaN when den is zero or either side is not finite.
func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) || math.IsInf(den, 0) || math.IsInf(num, 0) {
		return math.NaN()
	}
	return num / den
}

// lastOf returns the final element of a talib output, or NaN for an empty one.
func lastOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}

// SMA returns the simple moving average of the last period values.
func SMA(xs []float64, period int) float64 {
	if period <= 0 || len(xs) < period {
		return math.NaN()
	}
	if period == 1 {
		return xs[len(xs)-1]
	}
	return lastOf(talib.Sma(xs, period))
}

// EMA returns the latest exponential moving average, seeded with the SMA of the first period values.
func EMA(xs []float64, period int) float64 {
	if period <= 0 || len(xs) < period {
		return math.NaN()
	}
	return lastOf(talib.Ema(xs, period))
}

// RSI computes the Wilder-smoothed relative strength index.
// A series with no price change is undefined and returns NaN.
func RSI(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period+1 || unchanged(closes) {
		return math.NaN()
	}
	return lastOf(talib.Rsi(closes, period))
}

// MACD returns the MACD line, its signal line and the histogram at the last index.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist float64) {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		nan := math.NaN()
		return nan, nan, nan
	}
	l, s, h := talib.Macd(closes, fast, slow, signal)
	return lastOf(l), lastOf(s), lastOf(h)
}

// StdDev returns the standard deviation of the last period values.
// sample selects the n-1 denominator.
func StdDev(xs []float64, period int, sample bool) float64 {
	if period <= 1 || len(xs) < period {
		return math.NaN()
	}
	sd := lastOf(talib.StdDev(xs[len(xs)-period:], period, 1))
	if sample {
		n := float64(period)
		sd *= math.Sqrt(n / (n - 1))
	}
	return sd
}

// Bollinger returns the upper and lower bands of period with k standard deviations.
func Bollinger(closes []float64, period int, k float64) (upper, lower float64) {
	if period <= 1 || len(closes) < period {
		return math.NaN(), math.NaN()
	}
	u, _, l := talib.BBands(closes, period, k, k, talib.SMA)
	return lastOf(u), lastOf(l)
}

// ATR computes the Wilder-smoothed average true range.
func ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 1 || n < period+1 || len(highs) != n || len(lows) != n {
		return math.NaN()
	}
	return lastOf(talib.Atr(highs, lows, closes, period))
}

// LogReturns computes r_t = ln(C_t / C_{t-1}); non-positive prices yield 0.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized volatility of the last window log returns.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return math.NaN()
	}
	return StdDev(logReturns, window, true) * math.Sqrt(barsPerYear)
}

func unchanged(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}
