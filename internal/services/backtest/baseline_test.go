package backtest

import (
	"errors"
	"math"
	"testing"

	"StockCast/internal/domain/models"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestPersistenceOnFlatSeriesIsPerfect(t *testing.T) {
	r, err := Run(ramp(100, 50, 0), Persistence{}, 10, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Accuracy != 100 || r.Windows != 10 {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestDriftOnLinearSeriesIsPerfect(t *testing.T) {
	r, err := Run(ramp(200, 100, 0.5), Drift{Lookback: 20}, 10, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if math.Abs(r.Accuracy-100) > 1e-9 {
		t.Fatalf("drift should track a line exactly, got %+v", r)
	}
}

func TestPersistenceOnRamp(t *testing.T) {
	closes := ramp(60, 100, 1)
	r, err := Run(closes, Persistence{}, 2, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// windows end at 159 and 154, forecast 5 below each
	want := 100 - (5.0/159*100+5.0/154*100)/2
	if math.Abs(r.Accuracy-want) > 1e-9 {
		t.Fatalf("accuracy %v, want %v", r.Accuracy, want)
	}
}

func TestAccuracyFloor(t *testing.T) {
	closes := []float64{1, 1, 1, 1, 1, 1, 10, 10, 10, 10, 10}
	r, err := Run(closes, Persistence{}, 1, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Accuracy != 50 {
		t.Fatalf("accuracy should floor at 50, got %v", r.Accuracy)
	}
}

func TestRunUsesAvailableWindows(t *testing.T) {
	r, err := Run(ramp(12, 10, 0), Persistence{}, 10, 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.Windows != 2 {
		t.Fatalf("expected 2 windows, got %d", r.Windows)
	}
	if _, err := Run(ramp(5, 10, 0), Persistence{}, 10, 5); !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected insufficient history, got %v", err)
	}
}

func TestByName(t *testing.T) {
	for _, n := range []string{"persistence", "drift", "sma"} {
		b, err := ByName(n)
		if err != nil || b.Name() != n {
			t.Fatalf("ByName(%q) = %v, %v", n, b, err)
		}
	}
	if _, err := ByName("random"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestMovingAverageUsesLastPeriod(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	if got := (MovingAverage{Period: 20}).Forecast(closes, 5); got != 20.5 {
		t.Fatalf("sma forecast = %v, want 20.5", got)
	}
}
