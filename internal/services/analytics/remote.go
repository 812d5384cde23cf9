package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"StockCast/internal/domain/models"
	domsvc "StockCast/internal/domain/service"
	xhttp "StockCast/pkg/http"
)

// RemoteLoader serves every model kind from an external inference service.
// Load is cheap; availability is only known when Forecast is called.
type RemoteLoader struct {
	base *HTTPServiceBase
}

func NewRemoteLoader(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *RemoteLoader {
	return &RemoteLoader{base: NewHTTPServiceBase(baseURL, timeout, opts...)}
}

func (r *RemoteLoader) Load(_ context.Context, symbol string, kind models.ModelKind) (domsvc.Model, error) {
	if r.base.baseURL == "" {
		return nil, fmt.Errorf("%s/%s: no model service configured: %w", symbol, kind, models.ErrModelUnavailable)
	}
	return &RemoteModel{base: r.base, symbol: symbol, kind: kind}, nil
}

// RemoteModel forecasts through POST {base}/models/{kind}/forecast.
type RemoteModel struct {
	base   *HTTPServiceBase
	symbol string
	kind   models.ModelKind
}

type forecastRequest struct {
	Symbol   string             `json:"symbol"`
	Horizon  int                `json:"horizon"`
	Features map[string]float64 `json:"features"`
	Closes   []float64          `json:"closes"`
}

type forecastResponse struct {
	Prices []float64 `json:"prices"`
}

func (m *RemoteModel) Kind() models.ModelKind { return m.kind }

func (m *RemoteModel) Forecast(ctx context.Context, f models.Features, horizon int) ([]float64, error) {
	req := forecastRequest{
		Symbol:   m.symbol,
		Horizon:  horizon,
		Features: finiteOnly(f.Values),
		Closes:   f.Closes,
	}
	var resp forecastResponse
	if err := m.base.PostJSON(ctx, "/models/"+string(m.kind)+"/forecast", req, &resp); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%s/%s: %w", m.symbol, m.kind, models.ErrModelUnavailable)
		}
		return nil, fmt.Errorf("remote %s forecast: %w", m.kind, err)
	}
	if len(resp.Prices) != horizon {
		return nil, fmt.Errorf("remote %s forecast: got %d prices, want %d", m.kind, len(resp.Prices), horizon)
	}
	return resp.Prices, nil
}

// finiteOnly drops NaN and Inf values, which JSON cannot encode.
func finiteOnly(fv models.FeatureVector) map[string]float64 {
	out := make(map[string]float64, len(fv))
	for k, v := range fv {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

var (
	_ domsvc.ModelLoader = (*RemoteLoader)(nil)
	_ domsvc.Model       = (*RemoteModel)(nil)
)
