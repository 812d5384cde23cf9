package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"StockCast/internal/domain/models"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"
)

type Predictor interface {
	Predict(ctx context.Context, symbol string, horizon int, kinds ...models.ModelKind) (*models.PredictionResult, error)
}

type Calibrator interface {
	Recalibrate(ctx context.Context, symbol string) (*models.CalibrationRecord, error)
	Status(ctx context.Context, symbol string) (*models.CalibrationStatus, error)
}

type TechnicalAnalyzer interface {
	Analyze(ctx context.Context, symbol string) (*models.TechnicalAnalysis, error)
}

type HistoryReader interface {
	GetBars(ctx context.Context, symbol string, days int) (*usecase.GetBarsResult, error)
}

type StockCatalog interface {
	Search(input string) models.StockSearchResult
	Top(ctx context.Context, category models.StockCategory, count, period int) (*models.TopStocks, error)
}

type ModelTrainer interface {
	Train(ctx context.Context, symbol string) ([]usecase.TrainedModel, error)
}

// ForecastHandler serves the prediction and calibration API.
type ForecastHandler struct {
	logger    *xlogger.Logger
	predictor Predictor
	tracker   Calibrator
	technical TechnicalAnalyzer
	history   HistoryReader
	stocks    StockCatalog
	trainer   ModelTrainer
	stream    http.Handler
}

// NewForecastHandler builds the handler. stocks, trainer and stream may be nil, which disables their routes.
func NewForecastHandler(
	logger *xlogger.Logger,
	predictor Predictor,
	tracker Calibrator,
	technical TechnicalAnalyzer,
	history HistoryReader,
	stocks StockCatalog,
	trainer ModelTrainer,
	stream http.Handler,
) *ForecastHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastHandler{
		logger:    logger,
		predictor: predictor,
		tracker:   tracker,
		technical: technical,
		history:   history,
		stocks:    stocks,
		trainer:   trainer,
		stream:    stream,
	}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/predict", h.Predict)
	g.GET("/predict", h.Predict)
	g.POST("/calibrate", h.Calibrate)
	g.GET("/calibration/:symbol", h.CalibrationStatus)
	g.GET("/technical/:symbol", h.Technical)
	g.GET("/history/:symbol", h.History)
	if h.stocks != nil {
		g.POST("/search-stock", h.SearchStock)
		g.GET("/search-stock", h.SearchStock)
		g.GET("/top-stocks", h.TopStocks)
	}
	if h.trainer != nil {
		g.POST("/models/train", h.Train)
	}
	if h.stream != nil {
		e.GET("/ws/predictions", echo.WrapHandler(h.stream))
	}
}

func (h *ForecastHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	kinds := make([]models.ModelKind, 0, len(req.Models))
	for _, m := range req.Models {
		if k, ok := models.ParseModelKind(m); ok {
			kinds = append(kinds, k)
		}
	}

	res, err := h.predictor.Predict(c.Request().Context(), req.Symbol, req.DaysAhead, kinds...)
	if err != nil {
		return h.fail(c, "predict", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, newPredictionDTO(res))
}

func (h *ForecastHandler) Calibrate(c echo.Context) error {
	req := &models.CalibrateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rec, err := h.tracker.Recalibrate(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "calibrate", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, newCalibrationDTO(rec))
}

func (h *ForecastHandler) CalibrationStatus(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.tracker.Status(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "calibration status", req.Symbol, err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *ForecastHandler) Technical(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ta, err := h.technical.Analyze(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "technical", req.Symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, ta)
}

func (h *ForecastHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.history.GetBars(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		return h.fail(c, "history", req.Symbol, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) SearchStock(c echo.Context) error {
	req := &models.SearchStockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.stocks.Search(req.Input))
}

func (h *ForecastHandler) TopStocks(c echo.Context) error {
	req := &models.TopStocksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.stocks.Top(c.Request().Context(), models.StockCategory(req.Category), req.Count, req.TimePeriod)
	if err != nil {
		return h.fail(c, "top stocks", req.Category, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, newTopStocksDTO(res))
}

func (h *ForecastHandler) Train(c echo.Context) error {
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.trainer.Train(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "train", req.Symbol, err)
	}
	return xhttp.CreatedResponse(c, out)
}

func (h *ForecastHandler) fail(c echo.Context, op, symbol string, err error) error {
	appErr := toAppError(err)
	fields := []xlogger.Field{
		xlogger.String("op", op),
		xlogger.String("symbol", symbol),
		xlogger.String("kind", appErr.Code),
		xlogger.Error(err),
	}
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Warn("request rejected", fields...)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps a domain failure onto an HTTP status with the kind as its code.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	kind := models.KindOf(err)
	status := http.StatusInternalServerError
	msg := "something went wrong"
	switch kind {
	case models.KindDataUnavailable:
		status, msg = http.StatusServiceUnavailable, "price history unavailable, try again"
	case models.KindNoModelAvailable:
		status, msg = http.StatusServiceUnavailable, "no forecast model available"
	case models.KindInsufficientHistory:
		status, msg = http.StatusUnprocessableEntity, "insufficient data for forecast"
	case models.KindRecalibrationInProgress:
		status, msg = http.StatusConflict, "recalibration already in progress"
	case models.KindInvalidSymbol:
		status, msg = http.StatusBadRequest, "invalid symbol"
	case models.KindInvalidHorizon:
		status, msg = http.StatusBadRequest, "days_ahead must be between 1 and 30"
	}
	return xhttp.NewAppError(string(kind), "", msg, status).WithError(err)
}
