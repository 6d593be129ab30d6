// Package stats computes read-side rollups over weekly questionnaires.
// Every function is pure, tolerates empty input and never mutates records.
package stats

import (
	"math"
	"time"
)

// Options holds the tunables that used to be hardcoded.
type Options struct {
	// A week whose guest total exceeds this is high season.
	HighSeasonThreshold int
	// Days per month when turning a reporting span into months active.
	MonthDays int
	// Number of provenance descriptions kept in a summary.
	TopProvenance int
	// Share of monthly buckets flagged as peaks.
	PeakShare float64
}

func DefaultOptions() Options {
	return Options{HighSeasonThreshold: 50, MonthDays: 30, TopProvenance: 10, PeakShare: 0.2}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HighSeasonThreshold <= 0 {
		o.HighSeasonThreshold = d.HighSeasonThreshold
	}
	if o.MonthDays <= 0 {
		o.MonthDays = d.MonthDays
	}
	if o.TopProvenance <= 0 {
		o.TopProvenance = d.TopProvenance
	}
	if o.PeakShare <= 0 || o.PeakShare > 1 {
		o.PeakShare = d.PeakShare
	}
	return o
}

// Variation is the percentage change from previous to current, rounded to
// one decimal. A zero baseline yields 100 when anything appeared and 0 otherwise.
func Variation(previous, current float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return round1((current - previous) / previous * 100)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func percent(part, whole int) float64 {
	return round1(ratio(float64(part), float64(whole)) * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
