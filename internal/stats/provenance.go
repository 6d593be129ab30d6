package stats

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"tourism_occupancy/internal/domain"
)

type Category string

const (
	CategoryDomestic      Category = "domestic"
	CategoryInternational Category = "international"
	CategoryOther         Category = "other"
)

// Keywords are stored folded: lowercase, no accents.
var domesticKeywords = []string{
	"mexico", "mexicano", "mexicanos", "mexicanas", "nacional", "nacionales", "local", "locales",
	"cdmx", "ciudad de mexico", "df", "edomex", "estado de mexico", "guadalajara", "monterrey", "puebla",
	"queretaro", "jalpan", "sierra gorda", "san juan del rio", "tequisquiapan", "guanajuato", "leon",
	"hidalgo", "pachuca", "san luis potosi", "toluca", "jalisco", "nuevo leon", "veracruz", "tamaulipas",
	"michoacan", "morelia", "oaxaca", "yucatan", "merida", "cancun", "quintana roo", "chihuahua",
	"sonora", "sinaloa", "tijuana", "baja california", "aguascalientes", "zacatecas", "morelos",
	"cuernavaca", "tlaxcala", "chiapas", "tabasco", "campeche", "guerrero", "acapulco", "durango",
	"coahuila", "saltillo", "nayarit", "colima",
}

var internationalKeywords = []string{
	"estados unidos", "eeuu", "eua", "usa", "us", "texas", "california", "canada", "canadienses",
	"espana", "francia", "alemania", "italia", "reino unido", "inglaterra", "holanda", "paises bajos",
	"suiza", "belgica", "portugal", "europa", "europeos", "japon", "china", "corea", "asia",
	"australia", "argentina", "colombia", "brasil", "chile", "peru", "venezuela", "guatemala",
	"cuba", "costa rica", "sudamerica", "centroamerica",
	"extranjero", "extranjeros", "extranjera", "extranjeras", "internacional", "internacionales",
}

// foldText lowercases s, strips accents and collapses every run of
// non-alphanumerics into a single space, padding both ends.
func foldText(s string) string {
	// transform.Chain is stateful, so each call builds its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func containsWord(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, " "+kw+" ") {
			return true
		}
	}
	return false
}

// Classify places a provenance description in a category. Domestic place
// names win over foreign ones when a text mentions both.
func Classify(text string) Category {
	f := foldText(text)
	switch {
	case containsWord(f, domesticKeywords):
		return CategoryDomestic
	case containsWord(f, internationalKeywords):
		return CategoryInternational
	}
	return CategoryOther
}

type ProvenanceGroup struct {
	Description   string        `json:"description"`
	Short         string        `json:"short"`
	Category      Category      `json:"category"`
	Foreign       bool          `json:"foreign"`
	Records       int           `json:"records"`
	Guests        int           `json:"guests"`
	AverageGuests float64       `json:"averageGuests"`
	Kinds         []domain.Kind `json:"kinds"`
	LastReport    time.Time     `json:"lastReport"`
}

type ProvenanceSummary struct {
	Groups          int     `json:"groups"`
	Guests          int     `json:"guests"`
	DomesticGuests  int     `json:"domesticGuests"`
	ForeignGuests   int     `json:"foreignGuests"`
	DomesticPercent float64 `json:"domesticPercent"`
	ForeignPercent  float64 `json:"foreignPercent"`
	Main            string  `json:"main"`
}

type ProvenanceReport struct {
	Groups  []ProvenanceGroup `json:"groups"`
	Summary ProvenanceSummary `json:"summary"`
}

const shortDescriptionLen = 50

// ProvenanceBreakdown groups records by provenance text and classifies each
// group. The domestic/international split covers every group, the returned
// list only the top limit by guests.
func ProvenanceBreakdown(records []domain.Questionnaire, limit int) ProvenanceReport {
	groups := map[string]*ProvenanceGroup{}
	var order []string
	seen := map[string]map[domain.Kind]bool{}

	for _, q := range records {
		p := strings.TrimSpace(provenance(q))
		if p == "" {
			continue
		}
		g, ok := groups[p]
		if !ok {
			cat := Classify(p)
			g = &ProvenanceGroup{
				Description: p,
				Short:       shorten(p),
				Category:    cat,
				Foreign:     cat == CategoryInternational,
				Kinds:       []domain.Kind{},
			}
			groups[p] = g
			seen[p] = map[domain.Kind]bool{}
			order = append(order, p)
		}
		g.Records++
		g.Guests += totals(q).Guests
		if !seen[p][q.Kind] {
			seen[p][q.Kind] = true
			g.Kinds = append(g.Kinds, q.Kind)
		}
		if q.StartDate.After(g.LastReport) {
			g.LastReport = q.StartDate
		}
	}

	rep := ProvenanceReport{Groups: make([]ProvenanceGroup, 0, len(order))}
	for _, p := range order {
		g := groups[p]
		g.AverageGuests = round1(ratio(float64(g.Guests), float64(g.Records)))
		rep.Summary.Guests += g.Guests
		switch g.Category {
		case CategoryDomestic:
			rep.Summary.DomesticGuests += g.Guests
		case CategoryInternational:
			rep.Summary.ForeignGuests += g.Guests
		}
		rep.Groups = append(rep.Groups, *g)
	}
	sort.SliceStable(rep.Groups, func(i, j int) bool { return rep.Groups[i].Guests > rep.Groups[j].Guests })

	rep.Summary.Groups = len(rep.Groups)
	rep.Summary.DomesticPercent = percent(rep.Summary.DomesticGuests, rep.Summary.Guests)
	rep.Summary.ForeignPercent = percent(rep.Summary.ForeignGuests, rep.Summary.Guests)
	if len(rep.Groups) > 0 {
		rep.Summary.Main = rep.Groups[0].Short
	}
	if limit > 0 && len(rep.Groups) > limit {
		rep.Groups = rep.Groups[:limit]
	}
	return rep
}

func shorten(s string) string {
	if t := truncateRunes(s, shortDescriptionLen); t != s {
		return t + "..."
	}
	return s
}
