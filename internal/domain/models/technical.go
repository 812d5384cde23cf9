package models

import "time"

// TechnicalAnalysis summarizes the latest indicator state for a symbol.
type TechnicalAnalysis struct {
	Symbol        string             `json:"symbol"`
	AsOf          time.Time          `json:"as_of"`
	Price         float64            `json:"price"`
	Trend         string             `json:"trend"`
	Strength      string             `json:"strength"`
	StrengthScore int                `json:"strength_score"`
	Indicators    map[string]float64 `json:"indicators"`
	Signals       []string           `json:"signals"`
}

// PredictionEvent is published after a successful prediction.
type PredictionEvent struct {
	ID             string         `json:"id"`
	Symbol         string         `json:"symbol"`
	HorizonDays    int            `json:"horizon_days"`
	CurrentPrice   float64        `json:"current_price"`
	FinalPrice     float64        `json:"final_price"`
	PercentChange  float64        `json:"percent_change"`
	Confidence     float64        `json:"confidence"`
	Recommendation Recommendation `json:"recommendation"`
	ModelsUsed     []ModelKind    `json:"models_used"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// CalibrationEvent is published after a recalibration stores a record.
type CalibrationEvent struct {
	ID     string            `json:"id"`
	Record CalibrationRecord `json:"record"`
}
