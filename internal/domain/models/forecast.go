package models

import (
	"math"
	"time"
)

// ModelKind identifies an ensemble member.
type ModelKind string

const (
	KindSequence ModelKind = "sequence"
	KindForest   ModelKind = "forest"
	KindBoosted  ModelKind = "boosted"
)

// AllModelKinds lists the ensemble members in blend order.
func AllModelKinds() []ModelKind {
	return []ModelKind{KindSequence, KindForest, KindBoosted}
}

// ParseModelKind returns the kind for s, or false when unknown.
func ParseModelKind(s string) (ModelKind, bool) {
	switch ModelKind(s) {
	case KindSequence, KindForest, KindBoosted:
		return ModelKind(s), true
	}
	return "", false
}

// FeatureVector maps indicator name to value. NaN marks an undefined indicator.
type FeatureVector map[string]float64

// Get returns the value for name and whether it is defined (present and finite).
func (f FeatureVector) Get(name string) (float64, bool) {
	v, ok := f[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Features is the model input derived from a bar window ending at AsOf.
type Features struct {
	Symbol string        `json:"symbol"`
	AsOf   time.Time     `json:"as_of"`
	Values FeatureVector `json:"values"`
	// Closes is the trailing close window used by sequence models.
	Closes []float64 `json:"closes"`
}

// LastClose is the close at AsOf.
func (f Features) LastClose() float64 {
	if len(f.Closes) == 0 {
		return 0
	}
	return f.Closes[len(f.Closes)-1]
}

// ForecastPoint is the blended price at a day offset from the request date.
type ForecastPoint struct {
	Day            int                   `json:"day"`
	Date           time.Time             `json:"date"`
	PredictedPrice float64               `json:"predicted_price"`
	PerModel       map[ModelKind]float64 `json:"per_model"`
}

// Recommendation is the discrete action label.
type Recommendation string

const (
	StrongBuy  Recommendation = "STRONG_BUY"
	Buy        Recommendation = "BUY"
	Hold       Recommendation = "HOLD"
	Sell       Recommendation = "SELL"
	StrongSell Recommendation = "STRONG_SELL"
)

// Advice expands a recommendation with strength, risk and reasons.
type Advice struct {
	Action    Recommendation `json:"action"`
	Strength  string         `json:"strength"`
	RiskLevel string         `json:"risk_level"`
	Reasoning []string       `json:"reasoning"`
}

// PredictionResult is the outcome of one predict call.
type PredictionResult struct {
	Symbol         string                `json:"symbol"`
	Name           string                `json:"name"`
	CurrentPrice   float64               `json:"current_price"`
	HorizonDays    int                   `json:"horizon_days"`
	Forecast       []ForecastPoint       `json:"forecast"`
	Confidence     float64               `json:"confidence"`
	Recommendation Recommendation        `json:"recommendation"`
	PercentChange  float64               `json:"percent_change"`
	ModelsUsed     []ModelKind           `json:"models_used"`
	Weights        map[ModelKind]float64 `json:"weights"`
	Advice         Advice                `json:"advice"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// FinalPrice is the blended price on the last horizon day.
func (r *PredictionResult) FinalPrice() float64 {
	if len(r.Forecast) == 0 {
		return r.CurrentPrice
	}
	return r.Forecast[len(r.Forecast)-1].PredictedPrice
}
