package models

import (
	"fmt"
	"time"
)

// PriceBar is one trading day of OHLCV data.
type PriceBar struct {
	Symbol string    `json:"symbol,omitempty"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the price ordering high >= max(open,close) >= min(open,close) >= low >= 0.
func (b PriceBar) Validate() error {
	hi := b.Open
	lo := b.Close
	if b.Close > hi {
		hi, lo = b.Close, b.Open
	}
	switch {
	case b.Low < 0:
		return fmt.Errorf("bar %s: negative low %v", b.Date.Format("2006-01-02"), b.Low)
	case b.High < hi:
		return fmt.Errorf("bar %s: high %v below body %v", b.Date.Format("2006-01-02"), b.High, hi)
	case lo < b.Low:
		return fmt.Errorf("bar %s: low %v above body %v", b.Date.Format("2006-01-02"), b.Low, lo)
	}
	return nil
}

// ValidateSeries checks each bar and that dates are strictly increasing.
func ValidateSeries(bars []PriceBar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return fmt.Errorf("bar %d: date %s not after %s", i,
				b.Date.Format("2006-01-02"), bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Closes extracts close prices in order.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
