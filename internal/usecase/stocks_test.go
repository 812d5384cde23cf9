package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"StockCast/internal/domain/models"
	"StockCast/internal/services/catalog"
)

type fakeForecaster struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeForecaster) Predict(_ context.Context, symbol string, horizon int, _ ...models.ModelKind) (*models.PredictionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if f.fail[symbol] {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrDataUnavailable)
	}
	return &models.PredictionResult{
		Symbol:         symbol,
		CurrentPrice:   110,
		HorizonDays:    horizon,
		Forecast:       []models.ForecastPoint{{Day: horizon, PredictedPrice: 115.5}},
		Confidence:     80,
		Recommendation: models.Buy,
		PercentChange:  5,
	}, nil
}

func newStocks(t *testing.T, f *fakeForecaster) *Stocks {
	t.Helper()
	c, err := catalog.Load("")
	if err != nil {
		t.Fatal(err)
	}
	h := &fakeHistory{bars: map[string][]models.PriceBar{
		"RELIANCE":   flatBars(30, 100),
		"ADANIPORTS": flatBars(30, 100),
		"BAJFINANCE": flatBars(3, 100),
	}}
	return NewStocks(c, f, h, nil, StocksConfig{Workers: 2})
}

func TestStocksSearch(t *testing.T) {
	uc := newStocks(t, &fakeForecaster{})
	if r := uc.Search("infosys"); !r.Found || r.Symbol != "INFY" || r.Sector != "IT" {
		t.Fatalf("search infosys = %+v", r)
	}
	if r := uc.Search("newco.ns"); r.Found || r.SuggestedSymbol != "NEWCO" {
		t.Fatalf("search miss = %+v", r)
	}
}

func TestStocksTopSkipsFailures(t *testing.T) {
	f := &fakeForecaster{fail: map[string]bool{"ADANIPORTS": true}}
	res, err := newStocks(t, f).Top(context.Background(), models.CategoryVolatile, 3, 5)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if res.Count != 2 || res.Stocks[0].Symbol != "RELIANCE" || res.Stocks[1].Symbol != "BAJFINANCE" {
		t.Fatalf("stocks = %+v", res.Stocks)
	}
	first := res.Stocks[0]
	if first.Name != "Reliance Industries" || first.PredictedPrice != 115.5 || first.PriceChange != 10 {
		t.Fatalf("reliance = %+v", first)
	}
	if res.Stocks[1].PriceChange != 0 {
		t.Fatalf("short history should give zero past change, got %v", res.Stocks[1].PriceChange)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected 3 forecasts, got %v", f.calls)
	}
}

func TestStocksTopAllFailed(t *testing.T) {
	f := &fakeForecaster{fail: map[string]bool{"HDFCBANK": true, "TCS": true}}
	_, err := newStocks(t, f).Top(context.Background(), models.StockCategory("unknown"), 2, 5)
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected data unavailable, got %v", err)
	}
}
