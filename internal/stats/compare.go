package stats

import (
	"fmt"
	"time"

	"tourism_occupancy/internal/domain"
)

type PeriodMetrics struct {
	Guests         int     `json:"guests"`
	Records        int     `json:"records"`
	AverageGuests  float64 `json:"averageGuests"`
	Domestic       int     `json:"domestic"`
	Foreign        int     `json:"foreign"`
	Overnight      int     `json:"overnight"`
	ForeignPercent float64 `json:"foreignPercent"`
}

type Period struct {
	From    time.Time     `json:"from"`
	To      time.Time     `json:"to"`
	Metrics PeriodMetrics `json:"metrics"`
}

type Variations struct {
	Guests    float64 `json:"guests"`
	Records   float64 `json:"records"`
	Average   float64 `json:"average"`
	Domestic  float64 `json:"domestic"`
	Foreign   float64 `json:"foreign"`
	Overnight float64 `json:"overnight"`
}

type Direction string

const (
	DirectionGrowth  Direction = "growth"
	DirectionStable  Direction = "stable"
	DirectionDecline Direction = "decline"
)

type Comparison struct {
	Current    Period     `json:"current"`
	Previous   Period     `json:"previous"`
	Variations Variations `json:"variations"`
	Trend      Direction  `json:"trend"`
	Headline   string     `json:"headline"`
}

// ComparisonWindows returns the bounds used by ComparePeriods: the previous
// window is [prevFrom, curFrom), the current one [curFrom, now].
func ComparisonWindows(now time.Time, monthsBack int) (prevFrom, curFrom time.Time) {
	curFrom = now.AddDate(0, -monthsBack, 0)
	prevFrom = curFrom.AddDate(0, -monthsBack, 0)
	return prevFrom, curFrom
}

// ComparePeriods splits records into the last monthsBack months and the
// monthsBack months before them and reports the change of each metric.
func ComparePeriods(records []domain.Questionnaire, now time.Time, monthsBack int) Comparison {
	prevFrom, curFrom := ComparisonWindows(now, monthsBack)

	var cur, prev []domain.Questionnaire
	for _, q := range records {
		switch d := q.StartDate; {
		case !d.Before(curFrom) && !d.After(now):
			cur = append(cur, q)
		case !d.Before(prevFrom) && d.Before(curFrom):
			prev = append(prev, q)
		}
	}

	c := Comparison{
		Current:  Period{From: curFrom, To: now, Metrics: periodMetrics(cur)},
		Previous: Period{From: prevFrom, To: curFrom, Metrics: periodMetrics(prev)},
	}
	cm, pm := c.Current.Metrics, c.Previous.Metrics
	c.Variations = Variations{
		Guests:    Variation(float64(pm.Guests), float64(cm.Guests)),
		Records:   Variation(float64(pm.Records), float64(cm.Records)),
		Average:   Variation(pm.AverageGuests, cm.AverageGuests),
		Domestic:  Variation(float64(pm.Domestic), float64(cm.Domestic)),
		Foreign:   Variation(float64(pm.Foreign), float64(cm.Foreign)),
		Overnight: Variation(float64(pm.Overnight), float64(cm.Overnight)),
	}

	switch v := c.Variations.Guests; {
	case v > 0:
		c.Trend = DirectionGrowth
		c.Headline = fmt.Sprintf("+%.1f%%", v)
	case v < 0:
		c.Trend = DirectionDecline
		c.Headline = fmt.Sprintf("%.1f%%", v)
	default:
		c.Trend = DirectionStable
		c.Headline = "0.0%"
	}
	return c
}

func periodMetrics(records []domain.Questionnaire) PeriodMetrics {
	var m PeriodMetrics
	for _, q := range records {
		t := totals(q)
		m.Records++
		m.Guests += t.Guests
		m.Domestic += t.Domestic
		m.Foreign += t.Foreign
		m.Overnight += t.Overnight
	}
	m.AverageGuests = round1(ratio(float64(m.Guests), float64(m.Records)))
	m.ForeignPercent = percent(m.Foreign, m.Guests)
	return m
}
