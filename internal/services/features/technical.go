package features

import (
	"math"

	"StockCast/internal/domain/models"
)

// Analyze summarizes trend, strength and signals from the latest bars.
// Fewer than 20 bars yields a neutral, weak reading without indicators.
func Analyze(symbol string, bars []models.PriceBar) models.TechnicalAnalysis {
	ta := models.TechnicalAnalysis{
		Symbol:     symbol,
		Trend:      "neutral",
		Strength:   "weak",
		Indicators: map[string]float64{},
		Signals:    []string{},
	}
	if len(bars) < 20 {
		return ta
	}
	closes := models.Closes(bars)
	px := closes[len(closes)-1]
	ta.AsOf = bars[len(bars)-1].Date
	ta.Price = px

	sma20 := SMA(closes, 20)
	sma50 := SMA(closes, 50)
	rsi := orDefault(RSI(closes, 14), 50)
	line, sig, _ := MACD(closes, 12, 26, 9)
	line = orDefault(line, 0)
	sig = orDefault(sig, 0)
	upper, lower := Bollinger(closes, 20, 2)

	switch {
	case math.IsNaN(sma50):
		if px > sma20 {
			ta.Trend = "bullish"
		} else {
			ta.Trend = "bearish"
		}
	case px > sma20 && sma20 > sma50:
		ta.Trend = "bullish"
	case px < sma20 && sma20 < sma50:
		ta.Trend = "bearish"
	}

	score := 0
	if rsi > 60 {
		score++
	} else if rsi < 40 {
		score--
	}
	if line > sig {
		score++
	} else {
		score--
	}
	if px > sma20 {
		score++
	} else {
		score--
	}
	ta.StrengthScore = score
	switch {
	case score >= 2:
		ta.Strength = "strong"
	case score <= -2:
		ta.Strength = "weak"
	default:
		ta.Strength = "moderate"
	}

	if rsi > 70 {
		ta.Signals = append(ta.Signals, "RSI Overbought")
	} else if rsi < 30 {
		ta.Signals = append(ta.Signals, "RSI Oversold")
	}
	if line > sig {
		ta.Signals = append(ta.Signals, "MACD Bullish")
	} else {
		ta.Signals = append(ta.Signals, "MACD Bearish")
	}

	ta.Indicators["rsi"] = rsi
	ta.Indicators["macd"] = line
	ta.Indicators["macd_signal"] = sig
	ta.Indicators["sma_20"] = sma20
	ta.Indicators["bb_upper"] = upper
	ta.Indicators["bb_lower"] = lower
	if !math.IsNaN(sma50) {
		ta.Indicators["sma_50"] = sma50
	}
	return ta
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
