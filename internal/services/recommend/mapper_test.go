package recommend

import (
	"math"
	"testing"

	"StockCast/internal/domain/models"
)

func TestMapBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want models.Recommendation
	}{
		{0, models.Hold},
		{2, models.Hold},
		{-2, models.Hold},
		{2.0001, models.Buy},
		{5, models.Buy},
		{5.0001, models.StrongBuy},
		{-2.0001, models.Sell},
		{-5, models.Sell},
		{-5.0001, models.StrongSell},
		{math.NaN(), models.Hold},
	}
	for _, tc := range cases {
		for _, conf := range []float64{50, 70, 95} {
			if got := Map(tc.pct, conf); got != tc.want {
				t.Fatalf("Map(%v, %v) = %s, want %s", tc.pct, conf, got, tc.want)
			}
		}
	}
}

func TestPercentChangeExactFive(t *testing.T) {
	pct := PercentChange(100, 105)
	if Map(pct, 80) != models.Buy {
		t.Fatalf("5%% move should be BUY, pct=%v", pct)
	}
	// 19.9 -> 20.895 is 5.000000000000005 in raw float arithmetic
	if pct := PercentChange(19.9, 20.895); pct != 5 || Map(pct, 80) != models.Buy {
		t.Fatalf("nominal 5%% move = %v -> %s", pct, Map(pct, 80))
	}
	if pct := PercentChange(50, 49); pct != -2 || Map(pct, 80) != models.Hold {
		t.Fatalf("nominal -2%% move = %v -> %s", pct, Map(pct, 80))
	}
	if pct := PercentChange(100, 105.0001); Map(pct, 80) != models.StrongBuy {
		t.Fatalf("5.0001%% move should be STRONG_BUY, pct=%v", pct)
	}
	if !math.IsNaN(PercentChange(0, 10)) {
		t.Fatalf("zero current price should give NaN")
	}
}

func TestAdvise(t *testing.T) {
	adv := Advise(6, 90, 5)
	if adv.Action != models.StrongBuy || adv.Strength != "High" || adv.RiskLevel != "High" {
		t.Fatalf("unexpected advice %+v", adv)
	}
	if len(adv.Reasoning) != 3 {
		t.Fatalf("expected 3 reasons, got %v", adv.Reasoning)
	}
	adv = Advise(0.5, 76, 5)
	if adv.Strength != "Moderate" || adv.RiskLevel != "Low" || adv.Reasoning[2] != "Minimal price movement expected" {
		t.Fatalf("unexpected advice %+v", adv)
	}
	if Advise(-3, 75, 5).Strength != "Low" || Advise(-3, 75, 5).RiskLevel != "Medium" {
		t.Fatalf("75 confidence should be Low strength, -3%% Medium risk")
	}
}
