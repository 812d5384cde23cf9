package models

import "errors"

var (
	// ErrDataUnavailable means the history provider failed or does not know the symbol.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientHistory means fewer bars than the longest indicator lookback.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrModelUnavailable means no trained artifact exists for (symbol, kind).
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrNoModelAvailable means every ensemble member was unavailable.
	ErrNoModelAvailable = errors.New("no model available")

	// ErrStaleCalibration means the calibration record is missing or too old.
	ErrStaleCalibration = errors.New("stale calibration")

	// ErrRecalibrationInProgress means another recalibration holds the symbol lock.
	ErrRecalibrationInProgress = errors.New("recalibration in progress")

	// ErrInvalidSymbol means the symbol failed normalization.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrInvalidHorizon means the forecast horizon is outside 1..30 trading days.
	ErrInvalidHorizon = errors.New("invalid horizon")
)

// ErrorKind is a stable code for a failed operation.
type ErrorKind string

const (
	KindDataUnavailable         ErrorKind = "DATA_UNAVAILABLE"
	KindInsufficientHistory     ErrorKind = "INSUFFICIENT_HISTORY"
	KindModelUnavailable        ErrorKind = "MODEL_UNAVAILABLE"
	KindNoModelAvailable        ErrorKind = "NO_MODEL_AVAILABLE"
	KindStaleCalibration        ErrorKind = "STALE_CALIBRATION"
	KindRecalibrationInProgress ErrorKind = "RECALIBRATION_IN_PROGRESS"
	KindInvalidSymbol           ErrorKind = "INVALID_SYMBOL"
	KindInvalidHorizon          ErrorKind = "INVALID_HORIZON"
	KindInternal                ErrorKind = "INTERNAL"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrDataUnavailable, KindDataUnavailable},
	{ErrInsufficientHistory, KindInsufficientHistory},
	{ErrNoModelAvailable, KindNoModelAvailable},
	{ErrModelUnavailable, KindModelUnavailable},
	{ErrStaleCalibration, KindStaleCalibration},
	{ErrRecalibrationInProgress, KindRecalibrationInProgress},
	{ErrInvalidSymbol, KindInvalidSymbol},
	{ErrInvalidHorizon, KindInvalidHorizon},
}

// KindOf classifies err by the first matching sentinel in its chain.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
