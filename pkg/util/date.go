package util

import "time"

// IsTradingDay reports whether t falls on Monday through Friday.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextTradingDays returns the n trading days strictly after from, keeping its clock and location.
func NextTradingDays(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := from
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}
