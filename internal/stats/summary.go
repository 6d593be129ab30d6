package stats

import (
	"sort"
	"strings"

	"tourism_occupancy/internal/domain"
)

type Summary struct {
	Totals        SummaryTotals     `json:"totals"`
	ByKind        []KindBucket      `json:"byKind"`
	ByMonth       []MonthBucket     `json:"byMonth"`
	TopProvenance []ProvenanceCount `json:"topProvenance"`
}

type SummaryTotals struct {
	Records        int     `json:"records"`
	Guests         int     `json:"guests"`
	Domestic       int     `json:"domestic"`
	Foreign        int     `json:"foreign"`
	Overnight      int     `json:"overnight"`
	AverageGuests  float64 `json:"averageGuests"`
	ForeignPercent float64 `json:"foreignPercent"`
}

type KindBucket struct {
	Kind          domain.Kind `json:"kind"`
	Records       int         `json:"records"`
	Guests        int         `json:"guests"`
	AverageGuests float64     `json:"averageGuests"`
}

type MonthBucket struct {
	Month         string  `json:"month"` // YYYY-MM
	Records       int     `json:"records"`
	Guests        int     `json:"guests"`
	AverageGuests float64 `json:"averageGuests"`
}

type ProvenanceCount struct {
	Description string `json:"description"`
	Records     int    `json:"records"`
	Guests      int    `json:"guests"`
}

const provenanceKeyLen = 100

// Summarize rolls records up into totals, per-kind and per-month buckets and
// the most frequent provenance descriptions by guests.
func Summarize(records []domain.Questionnaire, opts Options) Summary {
	opts = opts.withDefaults()
	s := Summary{
		ByKind:        []KindBucket{},
		ByMonth:       []MonthBucket{},
		TopProvenance: []ProvenanceCount{},
	}

	kinds := map[domain.Kind]*KindBucket{}
	months := map[string]*MonthBucket{}
	provs := map[string]*ProvenanceCount{}
	var provOrder []string

	for _, q := range records {
		t := totals(q)
		s.Totals.Records++
		s.Totals.Guests += t.Guests
		s.Totals.Domestic += t.Domestic
		s.Totals.Foreign += t.Foreign
		s.Totals.Overnight += t.Overnight

		kb, ok := kinds[q.Kind]
		if !ok {
			kb = &KindBucket{Kind: q.Kind}
			kinds[q.Kind] = kb
		}
		kb.Records++
		kb.Guests += t.Guests

		key := q.StartDate.Format("2006-01")
		mb, ok := months[key]
		if !ok {
			mb = &MonthBucket{Month: key}
			months[key] = mb
		}
		mb.Records++
		mb.Guests += t.Guests

		if p := strings.TrimSpace(provenance(q)); p != "" {
			pk := truncateRunes(p, provenanceKeyLen)
			pc, ok := provs[pk]
			if !ok {
				pc = &ProvenanceCount{Description: pk}
				provs[pk] = pc
				provOrder = append(provOrder, pk)
			}
			pc.Records++
			pc.Guests += t.Guests
		}
	}

	s.Totals.AverageGuests = round1(ratio(float64(s.Totals.Guests), float64(s.Totals.Records)))
	s.Totals.ForeignPercent = percent(s.Totals.Foreign, s.Totals.Guests)

	for _, k := range domain.Kinds {
		if kb, ok := kinds[k]; ok {
			kb.AverageGuests = round1(ratio(float64(kb.Guests), float64(kb.Records)))
			s.ByKind = append(s.ByKind, *kb)
		}
	}

	for _, mb := range months {
		mb.AverageGuests = round1(ratio(float64(mb.Guests), float64(mb.Records)))
		s.ByMonth = append(s.ByMonth, *mb)
	}
	sort.Slice(s.ByMonth, func(i, j int) bool { return s.ByMonth[i].Month < s.ByMonth[j].Month })

	for _, pk := range provOrder {
		s.TopProvenance = append(s.TopProvenance, *provs[pk])
	}
	sort.SliceStable(s.TopProvenance, func(i, j int) bool {
		return s.TopProvenance[i].Guests > s.TopProvenance[j].Guests
	})
	if len(s.TopProvenance) > opts.TopProvenance {
		s.TopProvenance = s.TopProvenance[:opts.TopProvenance]
	}
	return s
}

// KindStats is the basic weekly aggregate for one establishment kind.
// Units are rooms, bookings or occupied days depending on the kind.
type KindStats struct {
	Kind          domain.Kind `json:"kind"`
	Records       int         `json:"records"`
	Units         int         `json:"units"`
	Guests        int         `json:"guests"`
	AverageUnits  float64     `json:"averageUnitsPerWeek"`
	AverageGuests float64     `json:"averageGuestsPerWeek"`
}

// KindStatistics reports one entry per kind, in canonical order, zeroed when
// the kind has no records.
func KindStatistics(records []domain.Questionnaire) []KindStats {
	out := make([]KindStats, len(domain.Kinds))
	idx := map[domain.Kind]int{}
	for i, k := range domain.Kinds {
		out[i].Kind = k
		idx[k] = i
	}
	for _, q := range records {
		i, ok := idx[q.Kind]
		if !ok {
			continue
		}
		t := totals(q)
		out[i].Records++
		out[i].Units += t.Units
		out[i].Guests += t.Guests
	}
	for i := range out {
		n := float64(out[i].Records)
		out[i].AverageUnits = round1(ratio(float64(out[i].Units), n))
		out[i].AverageGuests = round1(ratio(float64(out[i].Guests), n))
	}
	return out
}
