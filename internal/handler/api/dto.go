package api

import (
	"time"

	"github.com/shopspring/decimal"

	"StockCast/internal/domain/models"
)

type ForecastPointDTO struct {
	Day            int                          `json:"day"`
	Date           string                       `json:"date"`
	PredictedPrice float64                      `json:"predicted_price"`
	PerModel       map[models.ModelKind]float64 `json:"per_model"`
}

type PredictionDTO struct {
	Symbol         string                       `json:"symbol"`
	Name           string                       `json:"name"`
	CurrentPrice   float64                      `json:"current_price"`
	PredictedPrice float64                      `json:"predicted_price"`
	PercentChange  float64                      `json:"percent_change"`
	HorizonDays    int                          `json:"horizon_days"`
	Confidence     float64                      `json:"confidence"`
	Recommendation models.Recommendation        `json:"recommendation"`
	Advice         models.Advice                `json:"advice"`
	ModelsUsed     []models.ModelKind           `json:"models_used"`
	Weights        map[models.ModelKind]float64 `json:"weights"`
	Forecast       []ForecastPointDTO           `json:"forecast"`
	GeneratedAt    time.Time                    `json:"generated_at"`
}

type CalibrationDTO struct {
	Symbol        string    `json:"symbol"`
	AccuracyScore float64   `json:"accuracy_score"`
	SampleCount   int       `json:"sample_count"`
	Strategy      string    `json:"strategy"`
	ComputedAt    time.Time `json:"computed_at"`
}

// round is half-away-from-zero at places decimals.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func newPredictionDTO(r *models.PredictionResult) PredictionDTO {
	points := make([]ForecastPointDTO, 0, len(r.Forecast))
	for _, p := range r.Forecast {
		per := make(map[models.ModelKind]float64, len(p.PerModel))
		for k, v := range p.PerModel {
			per[k] = round(v, 2)
		}
		points = append(points, ForecastPointDTO{
			Day:            p.Day,
			Date:           p.Date.Format("2006-01-02"),
			PredictedPrice: round(p.PredictedPrice, 2),
			PerModel:       per,
		})
	}
	weights := make(map[models.ModelKind]float64, len(r.Weights))
	for k, w := range r.Weights {
		weights[k] = round(w, 4)
	}
	return PredictionDTO{
		Symbol:         r.Symbol,
		Name:           r.Name,
		CurrentPrice:   round(r.CurrentPrice, 2),
		PredictedPrice: round(r.FinalPrice(), 2),
		PercentChange:  round(r.PercentChange, 2),
		HorizonDays:    r.HorizonDays,
		Confidence:     round(r.Confidence, 1),
		Recommendation: r.Recommendation,
		Advice:         r.Advice,
		ModelsUsed:     r.ModelsUsed,
		Weights:        weights,
		Forecast:       points,
		GeneratedAt:    r.GeneratedAt,
	}
}

func newCalibrationDTO(r *models.CalibrationRecord) CalibrationDTO {
	return CalibrationDTO{
		Symbol:        r.Symbol,
		AccuracyScore: round(r.AccuracyScore, 2),
		SampleCount:   r.SampleCount,
		Strategy:      r.Strategy,
		ComputedAt:    r.ComputedAt,
	}
}

func newTopStocksDTO(r *models.TopStocks) *models.TopStocks {
	out := *r
	out.Stocks = make([]models.TopStock, len(r.Stocks))
	for i, s := range r.Stocks {
		s.CurrentPrice = round(s.CurrentPrice, 2)
		s.PredictedPrice = round(s.PredictedPrice, 2)
		s.PredictedChange = round(s.PredictedChange, 2)
		s.PriceChange = round(s.PriceChange, 2)
		s.Confidence = round(s.Confidence, 1)
		out.Stocks[i] = s
	}
	return &out
}
