package aggregator

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

// Friday
var last = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBlendWeightsSumToOne(t *testing.T) {
	a := New(DefaultConfig())
	b, err := a.Blend(last, 2, map[models.ModelKind][]float64{
		models.KindSequence: {100, 101},
		models.KindForest:   {102, 103},
		models.KindBoosted:  {104, 105},
	})
	if err != nil {
		t.Fatalf("blend: %v", err)
	}
	sum := 0.0
	for _, w := range b.Weights {
		sum += w
	}
	if !approx(sum, 1) {
		t.Fatalf("weights sum %v", sum)
	}
	want := 0.4*100 + 0.3*102 + 0.3*104
	if !approx(b.Forecast[0].PredictedPrice, want) {
		t.Fatalf("day 1 = %v, want %v", b.Forecast[0].PredictedPrice, want)
	}
	if len(b.ModelsUsed) != 3 || b.ModelsUsed[0] != models.KindSequence {
		t.Fatalf("unexpected models used %v", b.ModelsUsed)
	}
}

func TestBlendRenormalisesWithoutSequence(t *testing.T) {
	a := New(DefaultConfig())
	b, err := a.Blend(last, 1, map[models.ModelKind][]float64{
		models.KindForest:  {100},
		models.KindBoosted: {110},
	})
	if err != nil {
		t.Fatalf("blend: %v", err)
	}
	if !approx(b.Weights[models.KindForest], 0.5) || !approx(b.Weights[models.KindBoosted], 0.5) {
		t.Fatalf("unexpected weights %v", b.Weights)
	}
	if !approx(b.Forecast[0].PredictedPrice, 105) {
		t.Fatalf("day 1 = %v", b.Forecast[0].PredictedPrice)
	}
}

func TestBlendSkipsUnusableValues(t *testing.T) {
	a := New(DefaultConfig())
	b, err := a.Blend(last, 2, map[models.ModelKind][]float64{
		models.KindForest:  {100, 100},
		models.KindBoosted: {math.NaN(), 110},
	})
	if err != nil {
		t.Fatalf("blend: %v", err)
	}
	if !approx(b.Forecast[0].PredictedPrice, 100) {
		t.Fatalf("day 1 = %v, want forest only", b.Forecast[0].PredictedPrice)
	}
	if _, ok := b.Forecast[0].PerModel[models.KindBoosted]; ok {
		t.Fatalf("NaN value must not be reported per model")
	}
	if !approx(b.Forecast[1].PredictedPrice, 105) {
		t.Fatalf("day 2 = %v", b.Forecast[1].PredictedPrice)
	}
}

func TestBlendNoUsableModel(t *testing.T) {
	a := New(DefaultConfig())
	if _, err := a.Blend(last, 3, nil); !errors.Is(err, models.ErrNoModelAvailable) {
		t.Fatalf("expected no model available, got %v", err)
	}
	_, err := a.Blend(last, 1, map[models.ModelKind][]float64{
		models.KindForest: {-1},
	})
	if !errors.Is(err, models.ErrNoModelAvailable) {
		t.Fatalf("expected no model available for non-positive day, got %v", err)
	}
}

func TestBlendDatesAreTradingDays(t *testing.T) {
	a := New(DefaultConfig())
	b, err := a.Blend(last, 5, map[models.ModelKind][]float64{
		models.KindForest: {1, 2, 3, 4, 5},
	})
	if err != nil {
		t.Fatalf("blend: %v", err)
	}
	for i, p := range b.Forecast {
		if p.Day != i+1 {
			t.Fatalf("point %d has day %d", i, p.Day)
		}
		if wd := p.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("day %d falls on %s", p.Day, wd)
		}
	}
	if b.Forecast[0].Date.Day() != 4 {
		t.Fatalf("first forecast date %v, want Monday 4th", b.Forecast[0].Date)
	}
}

func TestConfidence(t *testing.T) {
	a := New(DefaultConfig())
	now := last
	agree := map[models.ModelKind]float64{models.KindSequence: 100, models.KindForest: 100, models.KindBoosted: 100}
	spread := map[models.ModelKind]float64{models.KindSequence: 80, models.KindForest: 100, models.KindBoosted: 120}
	single := map[models.ModelKind]float64{models.KindForest: 100}

	fresh := &models.CalibrationRecord{AccuracyScore: 90, ComputedAt: now.Add(-time.Hour)}
	stale := &models.CalibrationRecord{AccuracyScore: 90, ComputedAt: now.Add(-30 * 24 * time.Hour)}
	poor := &models.CalibrationRecord{AccuracyScore: 52, ComputedAt: now.Add(-time.Hour)}

	cases := []struct {
		name  string
		rec   *models.CalibrationRecord
		final map[models.ModelKind]float64
		want  float64
		fresh bool
	}{
		{"no record single", nil, single, 75, false},
		{"stale agree", stale, agree, 85, false},
		{"fresh agree clamps", fresh, agree, 95, true},
		{"no record spread", nil, spread, 65, false},
		{"poor spread clamps", poor, spread, 50, true},
	}
	for _, tc := range cases {
		got, isFresh := a.Confidence(tc.rec, now, tc.final)
		if !approx(got, tc.want) || isFresh != tc.fresh {
			t.Fatalf("%s: got %v fresh=%v, want %v fresh=%v", tc.name, got, isFresh, tc.want, tc.fresh)
		}
		if got < 50 || got > 95 {
			t.Fatalf("%s: confidence %v outside [50,95]", tc.name, got)
		}
	}
}
