package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"StockCast/internal/domain/models"
	"StockCast/internal/usecase"
)

type fakePredictor struct {
	gotSymbol  string
	gotHorizon int
	gotKinds   []models.ModelKind
	err        error
}

func (f *fakePredictor) Predict(_ context.Context, symbol string, horizon int, kinds ...models.ModelKind) (*models.PredictionResult, error) {
	f.gotSymbol = symbol
	f.gotHorizon = horizon
	f.gotKinds = kinds
	if f.err != nil {
		return nil, f.err
	}
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	return &models.PredictionResult{
		Symbol:       symbol,
		CurrentPrice: 100,
		HorizonDays:  horizon,
		Forecast: []models.ForecastPoint{
			{Day: 1, Date: day, PredictedPrice: 103.456789, PerModel: map[models.ModelKind]float64{models.KindForest: 103.456789}},
		},
		Confidence:     75.04,
		Recommendation: models.Hold,
		PercentChange:  3.456789,
		ModelsUsed:     []models.ModelKind{models.KindForest},
		Weights:        map[models.ModelKind]float64{models.KindForest: 1},
	}, nil
}

type fakeCalibrator struct{ err error }

func (f *fakeCalibrator) Recalibrate(_ context.Context, symbol string) (*models.CalibrationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CalibrationRecord{Symbol: symbol, AccuracyScore: 81.2345, SampleCount: 10, Strategy: "persistence"}, nil
}

func (f *fakeCalibrator) Status(_ context.Context, symbol string) (*models.CalibrationStatus, error) {
	return &models.CalibrationStatus{Symbol: symbol, State: models.CalibrationStale}, nil
}

type fakeTechnical struct{}

func (fakeTechnical) Analyze(_ context.Context, symbol string) (*models.TechnicalAnalysis, error) {
	return &models.TechnicalAnalysis{Symbol: symbol, Trend: "BULLISH"}, nil
}

type fakeHistory struct{ days int }

func (f *fakeHistory) GetBars(_ context.Context, symbol string, days int) (*usecase.GetBarsResult, error) {
	f.days = days
	return &usecase.GetBarsResult{Symbol: symbol}, nil
}

type fakeStocks struct {
	category models.StockCategory
	count    int
	period   int
	err      error
}

func (f *fakeStocks) Search(input string) models.StockSearchResult {
	if input == "infosys" {
		return models.StockSearchResult{Found: true, Symbol: "INFY", Name: "Infosys", Sector: "IT"}
	}
	return models.StockSearchResult{SuggestedSymbol: "NEWCO"}
}

func (f *fakeStocks) Top(_ context.Context, category models.StockCategory, count, period int) (*models.TopStocks, error) {
	f.category, f.count, f.period = category, count, period
	if f.err != nil {
		return nil, f.err
	}
	return &models.TopStocks{
		Category:   category,
		TimePeriod: period,
		Count:      1,
		Stocks:     []models.TopStock{{Symbol: "TCS", Name: "Tata Consultancy Services", CurrentPrice: 3999.456, PredictedChange: 1.23456}},
	}, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(p Predictor, c Calibrator, hist HistoryReader) *echo.Echo {
	e := echo.New()
	NewForecastHandler(nil, p, c, fakeTechnical{}, hist, &fakeStocks{}, nil, nil).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestPredictPostRoundsAndDefaults(t *testing.T) {
	p := &fakePredictor{}
	e := newTestServer(p, &fakeCalibrator{}, &fakeHistory{})

	rec, env := do(t, e, http.MethodPost, "/api/predict", `{"symbol":"reliance.ns","models":["forest","lstm"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown model should fail validation, got %d", rec.Code)
	}

	rec, env = do(t, e, http.MethodPost, "/api/predict", `{"symbol":"reliance.ns","models":["forest"]}`)
	if rec.Code != http.StatusOK || env.Status != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if p.gotHorizon != 5 {
		t.Fatalf("days_ahead default not applied: %d", p.gotHorizon)
	}
	if len(p.gotKinds) != 1 || p.gotKinds[0] != models.KindForest {
		t.Fatalf("kinds = %v", p.gotKinds)
	}
	var dto PredictionDTO
	if err := json.Unmarshal(env.Data, &dto); err != nil {
		t.Fatal(err)
	}
	if dto.PredictedPrice != 103.46 || dto.PercentChange != 3.46 || dto.Confidence != 75 {
		t.Fatalf("rounding: %+v", dto)
	}
	if dto.Forecast[0].Date != "2024-03-08" {
		t.Fatalf("date = %s", dto.Forecast[0].Date)
	}
}

func TestPredictGetValidatesHorizon(t *testing.T) {
	p := &fakePredictor{}
	e := newTestServer(p, &fakeCalibrator{}, &fakeHistory{})

	rec, _ := do(t, e, http.MethodGet, "/api/predict?symbol=TCS&days_ahead=31", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("days_ahead=31 should be rejected, got %d", rec.Code)
	}
	rec, _ = do(t, e, http.MethodGet, "/api/predict?symbol=TCS&days_ahead=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("days_ahead=0 should be rejected, got %d", rec.Code)
	}
	rec, _ = do(t, e, http.MethodPost, "/api/predict", `{"symbol":"TCS","days_ahead":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("explicit days_ahead 0 in body should be rejected, got %d", rec.Code)
	}
	rec, _ = do(t, e, http.MethodGet, "/api/predict?symbol=TCS&days_ahead=10", "")
	if rec.Code != http.StatusOK || p.gotHorizon != 10 {
		t.Fatalf("status %d horizon %d", rec.Code, p.gotHorizon)
	}
}

func TestPredictAcceptsSuffixedLongSymbol(t *testing.T) {
	p := &fakePredictor{}
	e := newTestServer(p, &fakeCalibrator{}, &fakeHistory{})
	sym := strings.Repeat("A", 20) + ".NS"
	rec, _ := do(t, e, http.MethodGet, "/api/predict?symbol="+sym, "")
	if rec.Code != http.StatusOK || p.gotSymbol != sym {
		t.Fatalf("status %d symbol %q", rec.Code, p.gotSymbol)
	}
	rec, _ = do(t, e, http.MethodGet, "/api/predict?symbol="+strings.Repeat("A", 24), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized symbol should be rejected, got %d", rec.Code)
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", models.ErrDataUnavailable), http.StatusServiceUnavailable, "DATA_UNAVAILABLE"},
		{models.ErrNoModelAvailable, http.StatusServiceUnavailable, "NO_MODEL_AVAILABLE"},
		{models.ErrInsufficientHistory, http.StatusUnprocessableEntity, "INSUFFICIENT_HISTORY"},
		{models.ErrInvalidSymbol, http.StatusBadRequest, "INVALID_SYMBOL"},
		{fmt.Errorf("horizon 40 outside 1..30: %w", models.ErrInvalidHorizon), http.StatusBadRequest, "INVALID_HORIZON"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		e := newTestServer(&fakePredictor{err: tc.err}, &fakeCalibrator{}, &fakeHistory{})
		rec, env := do(t, e, http.MethodGet, "/api/predict?symbol=TCS", "")
		if rec.Code != tc.status || env.Status != tc.status {
			t.Fatalf("%v: status %d, want %d", tc.err, rec.Code, tc.status)
		}
		var errs []struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != tc.code {
			t.Fatalf("%v: data %s", tc.err, env.Data)
		}
	}
}

func TestCalibrateConflict(t *testing.T) {
	e := newTestServer(&fakePredictor{}, &fakeCalibrator{err: fmt.Errorf("TCS: %w", models.ErrRecalibrationInProgress)}, &fakeHistory{})
	rec, _ := do(t, e, http.MethodPost, "/api/calibrate", `{"symbol":"TCS"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409", rec.Code)
	}
}

func TestCalibrateAndStatus(t *testing.T) {
	e := newTestServer(&fakePredictor{}, &fakeCalibrator{}, &fakeHistory{})
	rec, env := do(t, e, http.MethodPost, "/api/calibrate", `{"symbol":"TCS"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var dto CalibrationDTO
	if err := json.Unmarshal(env.Data, &dto); err != nil || dto.AccuracyScore != 81.23 {
		t.Fatalf("calibration dto %s", env.Data)
	}

	rec, env = do(t, e, http.MethodGet, "/api/calibration/TCS", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"STALE"`) {
		t.Fatalf("status %d data %s", rec.Code, env.Data)
	}
}

func TestHistoryAndTechnical(t *testing.T) {
	h := &fakeHistory{}
	e := newTestServer(&fakePredictor{}, &fakeCalibrator{}, h)
	rec, _ := do(t, e, http.MethodGet, "/api/history/INFY", "")
	if rec.Code != http.StatusOK || h.days != 90 {
		t.Fatalf("status %d days %d", rec.Code, h.days)
	}
	rec, env := do(t, e, http.MethodGet, "/api/technical/INFY", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), "BULLISH") {
		t.Fatalf("status %d data %s", rec.Code, env.Data)
	}
	if rec.Header().Get(echo.HeaderCacheControl) == "" {
		t.Fatalf("technical response should be cacheable")
	}
}

func TestTrainRouteOnlyWhenConfigured(t *testing.T) {
	e := newTestServer(&fakePredictor{}, &fakeCalibrator{}, &fakeHistory{})
	req := httptest.NewRequest(http.MethodPost, "/api/models/train", strings.NewReader(`{"symbol":"TCS"}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("train without trainer: %d", rec.Code)
	}
}

func TestSearchStock(t *testing.T) {
	e := newTestServer(&fakePredictor{}, &fakeCalibrator{}, &fakeHistory{})
	rec, env := do(t, e, http.MethodPost, "/api/search-stock", `{"input":"infosys"}`)
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"symbol":"INFY"`) {
		t.Fatalf("status %d data %s", rec.Code, env.Data)
	}
	rec, env = do(t, e, http.MethodGet, "/api/search-stock?q=newco", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(env.Data), `"found":false`) ||
		!strings.Contains(string(env.Data), `"suggested_symbol":"NEWCO"`) {
		t.Fatalf("status %d data %s", rec.Code, env.Data)
	}
	rec, _ = do(t, e, http.MethodPost, "/api/search-stock", `{"input":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank input should be rejected, got %d", rec.Code)
	}
}

func TestTopStocks(t *testing.T) {
	s := &fakeStocks{}
	e := echo.New()
	NewForecastHandler(nil, &fakePredictor{}, &fakeCalibrator{}, fakeTechnical{}, &fakeHistory{}, s, nil, nil).RegisterRoutes(e)

	rec, env := do(t, e, http.MethodGet, "/api/top-stocks", "")
	if rec.Code != http.StatusOK || s.category != models.CategorySafe || s.count != 5 || s.period != 5 {
		t.Fatalf("status %d defaults %s/%d/%d", rec.Code, s.category, s.count, s.period)
	}
	var top models.TopStocks
	if err := json.Unmarshal(env.Data, &top); err != nil {
		t.Fatal(err)
	}
	if top.Stocks[0].CurrentPrice != 3999.46 || top.Stocks[0].PredictedChange != 1.23 {
		t.Fatalf("rounding: %+v", top.Stocks[0])
	}

	for _, q := range []string{"category=penny", "count=0", "count=11", "time_period=31"} {
		rec, _ = do(t, e, http.MethodGet, "/api/top-stocks?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400", q, rec.Code)
		}
	}

	s.err = fmt.Errorf("x: %w", models.ErrDataUnavailable)
	rec, _ = do(t, e, http.MethodGet, "/api/top-stocks?category=volatile&count=3&time_period=10", "")
	if rec.Code != http.StatusServiceUnavailable || s.category != models.CategoryVolatile || s.count != 3 || s.period != 10 {
		t.Fatalf("status %d args %s/%d/%d", rec.Code, s.category, s.count, s.period)
	}
}

func TestPredictionCarriesName(t *testing.T) {
	dto := newPredictionDTO(&models.PredictionResult{Symbol: "TCS", Name: "Tata Consultancy Services", CurrentPrice: 1})
	if dto.Name != "Tata Consultancy Services" {
		t.Fatalf("name = %q", dto.Name)
	}
}
