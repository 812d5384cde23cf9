package util

import (
	"testing"
	"time"
)

func TestNextTradingDaysSkipsWeekend(t *testing.T) {
	fri := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := NextTradingDays(fri, 3)
	want := []int{4, 5, 6}
	for i, d := range got {
		if d.Day() != want[i] || !IsTradingDay(d) {
			t.Fatalf("day %d = %v", i, d)
		}
	}
}

func TestIsTradingDay(t *testing.T) {
	sat := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if IsTradingDay(sat) || IsTradingDay(sat.AddDate(0, 0, 1)) {
		t.Fatalf("weekend reported as trading day")
	}
	if !IsTradingDay(sat.AddDate(0, 0, 2)) {
		t.Fatalf("monday not a trading day")
	}
}
