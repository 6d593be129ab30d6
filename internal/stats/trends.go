package stats

import (
	"math"
	"sort"

	"tourism_occupancy/internal/domain"
)

type TrendLevel string

const (
	TrendStrongGrowth     TrendLevel = "strong_growth"
	TrendModerateGrowth   TrendLevel = "moderate_growth"
	TrendStable           TrendLevel = "stable"
	TrendModerateDecline  TrendLevel = "moderate_decline"
	TrendStrongDecline    TrendLevel = "strong_decline"
	TrendInsufficientData TrendLevel = "insufficient_data"
)

type TrendBucket struct {
	Year           int         `json:"year"`
	Month          int         `json:"month"`
	MonthName      string      `json:"monthName"`
	Kind           domain.Kind `json:"kind"`
	Records        int         `json:"records"`
	Guests         int         `json:"guests"`
	Domestic       int         `json:"domestic"`
	Foreign        int         `json:"foreign"`
	Overnight      int         `json:"overnight"`
	AverageGuests  float64     `json:"averageGuests"`
	ForeignPercent float64     `json:"foreignPercent"`
	Establishments int         `json:"establishments"`
	// Growth is relative to the nearest earlier bucket of the same kind.
	Growth float64 `json:"growth"`
	Peak   bool    `json:"peak"`
}

type TrendSummary struct {
	Buckets          int          `json:"buckets"`
	MonthlyAverage   float64      `json:"monthlyAverage"`
	Busiest          *TrendBucket `json:"busiest"`
	Trend            TrendLevel   `json:"trend"`
	AverageVariation float64      `json:"averageVariation"`
}

type TrendReport struct {
	Buckets []TrendBucket `json:"buckets"`
	Summary TrendSummary  `json:"summary"`
}

type trendKey struct {
	year  int
	month int
	kind  domain.Kind
}

// MonthlyTrends buckets records by (year, month, kind) and derives growth,
// peaks and an overall trend level.
func MonthlyTrends(records []domain.Questionnaire, opts Options) TrendReport {
	opts = opts.withDefaults()
	buckets := map[trendKey]*TrendBucket{}
	estabs := map[trendKey]map[string]bool{}

	for _, q := range records {
		d := q.StartDate
		k := trendKey{year: d.Year(), month: int(d.Month()), kind: q.Kind}
		b, ok := buckets[k]
		if !ok {
			b = &TrendBucket{Year: k.year, Month: k.month, MonthName: d.Month().String(), Kind: q.Kind}
			buckets[k] = b
			estabs[k] = map[string]bool{}
		}
		t := totals(q)
		b.Records++
		b.Guests += t.Guests
		b.Domestic += t.Domestic
		b.Foreign += t.Foreign
		b.Overnight += t.Overnight
		estabs[k][establishmentKey(q)] = true
	}

	rep := TrendReport{Buckets: make([]TrendBucket, 0, len(buckets))}
	for k, b := range buckets {
		b.AverageGuests = round1(ratio(float64(b.Guests), float64(b.Records)))
		b.ForeignPercent = percent(b.Foreign, b.Guests)
		b.Establishments = len(estabs[k])
		rep.Buckets = append(rep.Buckets, *b)
	}
	bs := rep.Buckets
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Year != bs[j].Year {
			return bs[i].Year < bs[j].Year
		}
		if bs[i].Month != bs[j].Month {
			return bs[i].Month < bs[j].Month
		}
		return bs[i].Kind < bs[j].Kind
	})

	last := map[domain.Kind]int{}
	for i := range bs {
		if prev, ok := last[bs[i].Kind]; ok && prev > 0 {
			bs[i].Growth = round2(float64(bs[i].Guests-prev) / float64(prev) * 100)
		}
		last[bs[i].Kind] = bs[i].Guests
	}

	byGuests := make([]int, len(bs))
	for i := range byGuests {
		byGuests[i] = i
	}
	sort.SliceStable(byGuests, func(i, j int) bool { return bs[byGuests[i]].Guests > bs[byGuests[j]].Guests })
	peaks := int(math.Ceil(float64(len(bs)) * opts.PeakShare))
	for _, i := range byGuests[:peaks] {
		bs[i].Peak = true
	}

	rep.Summary.Buckets = len(bs)
	sum := 0
	for _, b := range bs {
		sum += b.Guests
	}
	rep.Summary.MonthlyAverage = round1(ratio(float64(sum), float64(len(bs))))
	if len(bs) > 0 {
		busiest := bs[byGuests[0]]
		rep.Summary.Busiest = &busiest
	}
	rep.Summary.Trend = trendLevel(bs)
	rep.Summary.AverageVariation = averageVariation(bs)
	return rep
}

func trendLevel(bs []TrendBucket) TrendLevel {
	if len(bs) < 2 {
		return TrendInsufficientData
	}
	third := int(math.Ceil(float64(len(bs)) / 3))
	first := meanGuests(bs[:third])
	last := meanGuests(bs[len(bs)-third:])

	var v float64
	if first == 0 {
		v = Variation(first, last)
	} else {
		v = (last - first) / first * 100
	}
	switch {
	case v > 10:
		return TrendStrongGrowth
	case v > 3:
		return TrendModerateGrowth
	case v > -3:
		return TrendStable
	case v > -10:
		return TrendModerateDecline
	}
	return TrendStrongDecline
}

func meanGuests(bs []TrendBucket) float64 {
	sum := 0
	for _, b := range bs {
		sum += b.Guests
	}
	return ratio(float64(sum), float64(len(bs)))
}

func averageVariation(bs []TrendBucket) float64 {
	if len(bs) < 2 {
		return 0
	}
	var sum float64
	n := 0
	for _, b := range bs {
		if b.Growth != 0 {
			sum += math.Abs(b.Growth)
			n++
		}
	}
	return round2(ratio(sum, float64(n)))
}
