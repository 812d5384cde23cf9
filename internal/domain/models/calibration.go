package models

import "time"

// CalibrationState is STALE until a recalibration lands within the freshness window.
type CalibrationState string

const (
	CalibrationStale CalibrationState = "STALE"
	CalibrationFresh CalibrationState = "FRESH"
)

// CalibrationRecord is the latest accuracy estimate for a symbol.
type CalibrationRecord struct {
	Symbol        string    `json:"symbol" db:"symbol"`
	AccuracyScore float64   `json:"accuracy_score" db:"accuracy_score"`
	SampleCount   int       `json:"sample_count" db:"sample_count"`
	Strategy      string    `json:"strategy" db:"strategy"`
	ComputedAt    time.Time `json:"computed_at" db:"computed_at"`
}

// StateAt reports FRESH when r was computed within window of now.
func (r *CalibrationRecord) StateAt(now time.Time, window time.Duration) CalibrationState {
	if r == nil || r.ComputedAt.IsZero() {
		return CalibrationStale
	}
	if now.Sub(r.ComputedAt) > window {
		return CalibrationStale
	}
	return CalibrationFresh
}

// CalibrationStatus pairs a record with its state for callers.
type CalibrationStatus struct {
	Symbol string             `json:"symbol"`
	State  CalibrationState   `json:"state"`
	Record *CalibrationRecord `json:"record,omitempty"`
}
