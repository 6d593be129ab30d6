package stats

import (
	"sort"
	"time"

	"tourism_occupancy/internal/domain"
)

type PeakWeek struct {
	Week          domain.WeekKey `json:"week"`
	FirstDate     time.Time      `json:"firstDate"`
	Records       int            `json:"records"`
	Guests        int            `json:"guests"`
	AverageGuests float64        `json:"averageGuests"`
	HighSeason    bool           `json:"highSeason"`
	// Variation is the week's total as a percentage of its per-record average.
	Variation float64       `json:"variation"`
	Kinds     []domain.Kind `json:"kinds"`
}

type PeakSummary struct {
	TotalWeeks        int     `json:"totalWeeks"`
	HighSeasonWeeks   int     `json:"highSeasonWeeks"`
	PeakGuests        int     `json:"peakGuests"`
	AverageGuests     float64 `json:"averageGuests"`
	HighSeasonPercent float64 `json:"highSeasonPercent"`
}

type PeakReport struct {
	Weeks   []PeakWeek  `json:"weeks"`
	Summary PeakSummary `json:"summary"`
}

// PeakPeriods buckets records by ISO week and flags high-season weeks.
func PeakPeriods(records []domain.Questionnaire, opts Options) PeakReport {
	opts = opts.withDefaults()
	weeks := map[domain.WeekKey]*PeakWeek{}
	seen := map[domain.WeekKey]map[domain.Kind]bool{}

	for _, q := range records {
		wk := q.Week
		if !wk.Valid() {
			wk = domain.DeriveWeekKey(q.StartDate)
		}
		w, ok := weeks[wk]
		if !ok {
			w = &PeakWeek{Week: wk, FirstDate: dateOnly(q.StartDate), Kinds: []domain.Kind{}}
			weeks[wk] = w
			seen[wk] = map[domain.Kind]bool{}
		}
		w.Records++
		w.Guests += totals(q).Guests
		if d := dateOnly(q.StartDate); d.Before(w.FirstDate) {
			w.FirstDate = d
		}
		if !seen[wk][q.Kind] {
			seen[wk][q.Kind] = true
			w.Kinds = append(w.Kinds, q.Kind)
		}
	}

	rep := PeakReport{Weeks: make([]PeakWeek, 0, len(weeks))}
	sum := 0
	for _, w := range weeks {
		avg := ratio(float64(w.Guests), float64(w.Records))
		w.AverageGuests = round1(avg)
		w.Variation = round1(ratio(float64(w.Guests), avg) * 100)
		w.HighSeason = w.Guests > opts.HighSeasonThreshold
		if w.HighSeason {
			rep.Summary.HighSeasonWeeks++
		}
		if w.Guests > rep.Summary.PeakGuests {
			rep.Summary.PeakGuests = w.Guests
		}
		sum += w.Guests
		rep.Weeks = append(rep.Weeks, *w)
	}
	sort.Slice(rep.Weeks, func(i, j int) bool { return rep.Weeks[i].Week.Before(rep.Weeks[j].Week) })

	rep.Summary.TotalWeeks = len(rep.Weeks)
	rep.Summary.AverageGuests = round1(ratio(float64(sum), float64(len(rep.Weeks))))
	rep.Summary.HighSeasonPercent = percent(rep.Summary.HighSeasonWeeks, rep.Summary.TotalWeeks)
	return rep
}
