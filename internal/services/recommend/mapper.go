package recommend

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"StockCast/internal/domain/models"
)

// pctPlaces drops float noise such as 5.000000000000005 while keeping 5.0001 apart from 5.
const pctPlaces = 6

// PercentChange is (final-current)*100/current rounded to pctPlaces; NaN when current is not positive.
func PercentChange(current, final float64) float64 {
	if current <= 0 || math.IsNaN(final) || math.IsInf(final, 0) {
		return math.NaN()
	}
	pct := (final - current) * 100 / current
	return decimal.NewFromFloat(pct).Round(pctPlaces).InexactFloat64()
}

// Map labels a percent change. Boundaries resolve to the less extreme label:
// exactly ±2 is HOLD and exactly ±5 is BUY/SELL. Confidence never changes the
// label; it only feeds Advise.
func Map(pct, _ float64) models.Recommendation {
	switch {
	case math.IsNaN(pct):
		return models.Hold
	case pct > 5:
		return models.StrongBuy
	case pct > 2:
		return models.Buy
	case pct >= -2:
		return models.Hold
	case pct >= -5:
		return models.Sell
	default:
		return models.StrongSell
	}
}

// Advise expands the label with strength, risk level and reasons.
func Advise(pct, confidence float64, horizon int) models.Advice {
	adv := models.Advice{
		Action:    Map(pct, confidence),
		Strength:  strength(confidence),
		RiskLevel: risk(pct),
	}
	adv.Reasoning = append(adv.Reasoning,
		fmt.Sprintf("Expected price change: %.1f%% over %d days", pct, horizon),
		fmt.Sprintf("Model confidence: %.0f%%", confidence),
	)
	switch abs := math.Abs(pct); {
	case abs > 5:
		adv.Reasoning = append(adv.Reasoning, "Significant price movement expected")
	case abs < 1:
		adv.Reasoning = append(adv.Reasoning, "Minimal price movement expected")
	}
	return adv
}

func strength(confidence float64) string {
	switch {
	case confidence > 85:
		return "High"
	case confidence > 75:
		return "Moderate"
	default:
		return "Low"
	}
}

func risk(pct float64) string {
	switch abs := math.Abs(pct); {
	case abs > 5:
		return "High"
	case abs > 2:
		return "Medium"
	default:
		return "Low"
	}
}
