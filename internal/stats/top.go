package stats

import (
	"sort"
	"strings"
	"time"

	"tourism_occupancy/internal/domain"
)

type Metric string

const (
	MetricGuests         Metric = "guests"
	MetricAverage        Metric = "average"
	MetricConsistency    Metric = "consistency"
	MetricDiversity      Metric = "diversity"
	MetricForeignPercent Metric = "foreignPercent"
)

var metricAliases = map[string]Metric{
	"guests":         MetricGuests,
	"turistas":       MetricGuests,
	"average":        MetricAverage,
	"promedio":       MetricAverage,
	"consistency":    MetricConsistency,
	"consistencia":   MetricConsistency,
	"diversity":      MetricDiversity,
	"diversidad":     MetricDiversity,
	"foreignpercent": MetricForeignPercent,
	"foreign":        MetricForeignPercent,
	"extranjeros":    MetricForeignPercent,
}

// ParseMetric resolves a ranking metric name; anything unknown ranks by guests.
func ParseMetric(s string) Metric {
	if m, ok := metricAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m
	}
	return MetricGuests
}

type EstablishmentStats struct {
	ID             string           `json:"id"`
	Kind           domain.Kind      `json:"kind,omitempty"`
	Name           string           `json:"name"`
	Location       *domain.Location `json:"location,omitempty"`
	Records        int              `json:"records"`
	Guests         int              `json:"guests"`
	Domestic       int              `json:"domestic"`
	Foreign        int              `json:"foreign"`
	Overnight      int              `json:"overnight"`
	AverageGuests  float64          `json:"averageGuests"`
	ForeignPercent float64          `json:"foreignPercent"`
	// Consistency is reports per month active.
	Consistency float64   `json:"consistency"`
	Diversity   int       `json:"diversity"`
	FirstReport time.Time `json:"firstReport"`
	LastReport  time.Time `json:"lastReport"`
}

type Averages struct {
	Guests      float64 `json:"guests"`
	Records     float64 `json:"records"`
	Consistency float64 `json:"consistency"`
}

type TopSummary struct {
	Establishments int                 `json:"establishments"`
	Top            *EstablishmentStats `json:"top"`
	Average        Averages            `json:"average"`
}

type TopReport struct {
	Metric         Metric               `json:"metric"`
	Establishments []EstablishmentStats `json:"establishments"`
	Summary        TopSummary           `json:"summary"`
}

// TopEstablishments ranks establishments by metric, keeping limit of them.
// The summary averages cover every establishment, not only the ranked ones.
func TopEstablishments(records []domain.Questionnaire, metric Metric, limit int, opts Options) TopReport {
	opts = opts.withDefaults()
	all := perEstablishment(records, opts)
	sortBy(all, metric)

	rep := TopReport{Metric: metric, Summary: TopSummary{Establishments: len(all)}}
	var g, r, c float64
	for _, e := range all {
		g += float64(e.Guests)
		r += float64(e.Records)
		c += e.Consistency
	}
	n := float64(len(all))
	rep.Summary.Average = Averages{Guests: round1(ratio(g, n)), Records: round1(ratio(r, n)), Consistency: round2(ratio(c, n))}

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	rep.Establishments = all
	if len(all) > 0 {
		top := all[0]
		rep.Summary.Top = &top
	}
	return rep
}

type KindTotals struct {
	Establishments int     `json:"establishments"`
	Guests         int     `json:"guests"`
	Records        int     `json:"records"`
	OverallAverage float64 `json:"overallAverage"`
}

type KindHighlights struct {
	Best             string  `json:"best"`
	HighestAverage   float64 `json:"highestAverage"`
	HighestDiversity int     `json:"highestDiversity"`
}

type KindReport struct {
	Kind           domain.Kind          `json:"kind"`
	Totals         KindTotals           `json:"totals"`
	Establishments []EstablishmentStats `json:"establishments"`
	Summary        KindHighlights       `json:"summary"`
}

// EstablishmentsByKind reports per-establishment stats for one kind sorted by guests.
func EstablishmentsByKind(records []domain.Questionnaire, kind domain.Kind, limit int, opts Options) KindReport {
	opts = opts.withDefaults()
	var scoped []domain.Questionnaire
	for _, q := range records {
		if q.Kind == kind {
			scoped = append(scoped, q)
		}
	}
	all := perEstablishment(scoped, opts)
	sortBy(all, MetricGuests)

	rep := KindReport{Kind: kind, Summary: KindHighlights{Best: "N/A"}}
	rep.Totals.Establishments = len(all)
	for _, e := range all {
		rep.Totals.Guests += e.Guests
		rep.Totals.Records += e.Records
		if e.AverageGuests > rep.Summary.HighestAverage {
			rep.Summary.HighestAverage = e.AverageGuests
		}
		if e.Diversity > rep.Summary.HighestDiversity {
			rep.Summary.HighestDiversity = e.Diversity
		}
	}
	rep.Totals.OverallAverage = round1(ratio(float64(rep.Totals.Guests), float64(rep.Totals.Records)))
	if len(all) > 0 {
		rep.Summary.Best = all[0].Name
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	rep.Establishments = all
	return rep
}

func perEstablishment(records []domain.Questionnaire, opts Options) []EstablishmentStats {
	byKey := map[string]*EstablishmentStats{}
	provs := map[string]map[string]bool{}
	var order []string

	for _, q := range records {
		key := establishmentKey(q)
		e, ok := byKey[key]
		if !ok {
			e = &EstablishmentStats{ID: q.EstablishmentID, Kind: q.Kind, Name: establishmentName(q)}
			if key == unknownEstablishment {
				e.ID, e.Kind = unknownEstablishment, ""
			}
			if q.Establishment != nil {
				loc := q.Establishment.Location
				e.Location = &loc
			}
			byKey[key] = e
			provs[key] = map[string]bool{}
			order = append(order, key)
		}
		t := totals(q)
		e.Records++
		e.Guests += t.Guests
		e.Domestic += t.Domestic
		e.Foreign += t.Foreign
		e.Overnight += t.Overnight

		d := dateOnly(q.StartDate)
		if e.FirstReport.IsZero() || d.Before(e.FirstReport) {
			e.FirstReport = d
		}
		if d.After(e.LastReport) {
			e.LastReport = d
		}
		if p := strings.TrimSpace(provenance(q)); p != "" {
			provs[key][p] = true
		}
	}

	monthLen := time.Duration(opts.MonthDays) * 24 * time.Hour
	out := make([]EstablishmentStats, 0, len(order))
	for _, key := range order {
		e := byKey[key]
		e.AverageGuests = round1(ratio(float64(e.Guests), float64(e.Records)))
		e.ForeignPercent = percent(e.Foreign, e.Guests)
		e.Diversity = len(provs[key])
		months := float64(e.LastReport.Sub(e.FirstReport)) / float64(monthLen)
		if months < 1 {
			months = 1
		}
		e.Consistency = round2(float64(e.Records) / months)
		out = append(out, *e)
	}
	return out
}

func sortBy(es []EstablishmentStats, m Metric) {
	var less func(a, b EstablishmentStats) bool
	switch m {
	case MetricAverage:
		less = func(a, b EstablishmentStats) bool { return a.AverageGuests > b.AverageGuests }
	case MetricConsistency:
		less = func(a, b EstablishmentStats) bool { return a.Consistency > b.Consistency }
	case MetricDiversity:
		less = func(a, b EstablishmentStats) bool { return a.Diversity > b.Diversity }
	case MetricForeignPercent:
		less = func(a, b EstablishmentStats) bool { return a.ForeignPercent > b.ForeignPercent }
	default:
		less = func(a, b EstablishmentStats) bool { return a.Guests > b.Guests }
	}
	sort.SliceStable(es, func(i, j int) bool { return less(es[i], es[j]) })
}
