package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"StockCast/internal/domain/models"
)

func TestRemoteModelForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/boosted/forecast" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path != "/models/forest/forecast" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req forecastRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if _, ok := req.Features["rsi_14"]; ok {
			t.Errorf("NaN feature should be dropped")
		}
		prices := make([]float64, req.Horizon)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		_ = json.NewEncoder(w).Encode(forecastResponse{Prices: prices})
	}))
	defer srv.Close()

	loader := NewRemoteLoader(srv.URL, time.Second)
	f := models.Features{
		Values: models.FeatureVector{"close": 99, "rsi_14": math.NaN()},
		Closes: []float64{98, 99},
	}

	m, err := loader.Load(context.Background(), "TCS", models.KindForest)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	path, err := m.Forecast(context.Background(), f, 3)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(path) != 3 || path[2] != 102 {
		t.Fatalf("unexpected path %v", path)
	}

	m, _ = loader.Load(context.Background(), "TCS", models.KindBoosted)
	if _, err := m.Forecast(context.Background(), f, 3); !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable on 404, got %v", err)
	}
}

func TestRemoteLoaderUnconfigured(t *testing.T) {
	_, err := NewRemoteLoader("", time.Second).Load(context.Background(), "TCS", models.KindSequence)
	if !errors.Is(err, models.ErrModelUnavailable) {
		t.Fatalf("expected model unavailable, got %v", err)
	}
}
