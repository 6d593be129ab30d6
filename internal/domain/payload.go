package domain

import (
	"fmt"
	"math"
)

// Payload is the kind-specific body of a weekly questionnaire. The set of
// implementations is closed: *HotelPayload, *RentalPayload, *CabinPayload.
type Payload interface {
	Kind() Kind
	// Totals normalizes the variant's counters for cross-kind rollups.
	Totals() Totals
	Provenance() string

	fields() []payloadField
	setProvenance(string)
	invariants() []Violation
}

// Totals are the counters every kind reports, under common names.
// Units is rooms for hotels, bookings for rentals and occupied days for cabins.
type Totals struct {
	Units         int `json:"units"`
	DomesticUnits int `json:"domesticUnits"`
	ForeignUnits  int `json:"foreignUnits"`
	Guests        int `json:"guests"`
	Domestic      int `json:"domestic"`
	Foreign       int `json:"foreign"`
	Overnight     int `json:"overnight"`
}

// DomesticOccupancy is the rounded share of units taken by domestic guests.
func (t Totals) DomesticOccupancy() int { return unitShare(t.DomesticUnits, t.Units) }

// ForeignOccupancy is the rounded share of units taken by foreign guests.
func (t Totals) ForeignOccupancy() int { return unitShare(t.ForeignUnits, t.Units) }

func unitShare(part, units int) int {
	if units == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(units) * 100))
}

const (
	provenanceSummaryLen  = 100
	unspecifiedProvenance = "Not specified"
)

// ProvenanceSummary shortens a provenance text for listings.
func ProvenanceSummary(s string) string {
	if s == "" {
		return unspecifiedProvenance
	}
	r := []rune(s)
	if len(r) <= provenanceSummaryLen {
		return s
	}
	return string(r[:provenanceSummaryLen]) + "..."
}

type payloadField struct {
	name string
	ptr  any
}

const provenanceField = "procedenciaTuristas"

type HotelPayload struct {
	OccupiedRooms           int    `json:"occupiedRooms" validate:"min=0"`
	DomesticRooms           int    `json:"domesticRooms" validate:"min=0"`
	ForeignRooms            int    `json:"foreignRooms" validate:"min=0"`
	TotalGuests             int    `json:"totalGuests" validate:"min=0"`
	DomesticGuests          int    `json:"domesticGuests" validate:"min=0"`
	ForeignGuests           int    `json:"foreignGuests" validate:"min=0"`
	TotalOvernightGuests    int    `json:"totalOvernightGuests" validate:"min=0"`
	DomesticOvernightGuests int    `json:"domesticOvernightGuests" validate:"min=0"`
	ForeignOvernightGuests  int    `json:"foreignOvernightGuests" validate:"min=0"`
	ProcedenciaTuristas     string `json:"procedenciaTuristas" validate:"min=10,max=500"`
}

func (p *HotelPayload) Kind() Kind         { return KindHotel }
func (p *HotelPayload) Provenance() string { return p.ProcedenciaTuristas }
func (p *HotelPayload) setProvenance(s string) {
	p.ProcedenciaTuristas = s
}

func (p *HotelPayload) Totals() Totals {
	return Totals{
		Units:         p.OccupiedRooms,
		DomesticUnits: p.DomesticRooms,
		ForeignUnits:  p.ForeignRooms,
		Guests:        p.TotalGuests,
		Domestic:      p.DomesticGuests,
		Foreign:       p.ForeignGuests,
		Overnight:     p.TotalOvernightGuests,
	}
}

func (p *HotelPayload) fields() []payloadField {
	return []payloadField{
		{"occupiedRooms", &p.OccupiedRooms},
		{"domesticRooms", &p.DomesticRooms},
		{"foreignRooms", &p.ForeignRooms},
		{"totalGuests", &p.TotalGuests},
		{"domesticGuests", &p.DomesticGuests},
		{"foreignGuests", &p.ForeignGuests},
		{"totalOvernightGuests", &p.TotalOvernightGuests},
		{"domesticOvernightGuests", &p.DomesticOvernightGuests},
		{"foreignOvernightGuests", &p.ForeignOvernightGuests},
		{provenanceField, &p.ProcedenciaTuristas},
	}
}

func (p *HotelPayload) invariants() []Violation {
	var out []Violation
	out = appendSum(out, "occupiedRooms", "domesticRooms", "foreignRooms", p.DomesticRooms, p.ForeignRooms, p.OccupiedRooms)
	out = appendSum(out, "totalGuests", "domesticGuests", "foreignGuests", p.DomesticGuests, p.ForeignGuests, p.TotalGuests)
	out = appendSum(out, "totalOvernightGuests", "domesticOvernightGuests", "foreignOvernightGuests",
		p.DomesticOvernightGuests, p.ForeignOvernightGuests, p.TotalOvernightGuests)
	return out
}

type RentalPayload struct {
	WeeklyBookings          int    `json:"weeklyBookings" validate:"min=0,max=7"`
	DomesticBookings        int    `json:"domesticBookings" validate:"min=0"`
	ForeignBookings         int    `json:"foreignBookings" validate:"min=0"`
	TotalWeeklyGuests       int    `json:"totalWeeklyGuests" validate:"min=0"`
	DomesticGuests          int    `json:"domesticGuests" validate:"min=0"`
	ForeignGuests           int    `json:"foreignGuests" validate:"min=0"`
	OvernightGuests         int    `json:"overnightGuests" validate:"min=0"`
	DomesticOvernightGuests int    `json:"domesticOvernightGuests" validate:"min=0"`
	ForeignOvernightGuests  int    `json:"foreignOvernightGuests" validate:"min=0"`
	ProcedenciaTuristas     string `json:"procedenciaTuristas" validate:"min=10,max=500"`
}

func (p *RentalPayload) Kind() Kind         { return KindRental }
func (p *RentalPayload) Provenance() string { return p.ProcedenciaTuristas }
func (p *RentalPayload) setProvenance(s string) {
	p.ProcedenciaTuristas = s
}

func (p *RentalPayload) Totals() Totals {
	return Totals{
		Units:         p.WeeklyBookings,
		DomesticUnits: p.DomesticBookings,
		ForeignUnits:  p.ForeignBookings,
		Guests:        p.TotalWeeklyGuests,
		Domestic:      p.DomesticGuests,
		Foreign:       p.ForeignGuests,
		Overnight:     p.OvernightGuests,
	}
}

func (p *RentalPayload) fields() []payloadField {
	return []payloadField{
		{"weeklyBookings", &p.WeeklyBookings},
		{"domesticBookings", &p.DomesticBookings},
		{"foreignBookings", &p.ForeignBookings},
		{"totalWeeklyGuests", &p.TotalWeeklyGuests},
		{"domesticGuests", &p.DomesticGuests},
		{"foreignGuests", &p.ForeignGuests},
		{"overnightGuests", &p.OvernightGuests},
		{"domesticOvernightGuests", &p.DomesticOvernightGuests},
		{"foreignOvernightGuests", &p.ForeignOvernightGuests},
		{provenanceField, &p.ProcedenciaTuristas},
	}
}

func (p *RentalPayload) invariants() []Violation {
	var out []Violation
	out = appendSum(out, "weeklyBookings", "domesticBookings", "foreignBookings", p.DomesticBookings, p.ForeignBookings, p.WeeklyBookings)
	out = appendSum(out, "totalWeeklyGuests", "domesticGuests", "foreignGuests", p.DomesticGuests, p.ForeignGuests, p.TotalWeeklyGuests)
	out = appendSum(out, "overnightGuests", "domesticOvernightGuests", "foreignOvernightGuests",
		p.DomesticOvernightGuests, p.ForeignOvernightGuests, p.OvernightGuests)
	out = appendNotAbove(out, "overnightGuests", "totalWeeklyGuests", p.OvernightGuests, p.TotalWeeklyGuests)
	return out
}

type CabinPayload struct {
	OccupiedDays        int    `json:"occupiedDays" validate:"min=0,max=7"`
	DomesticDays        int    `json:"domesticDays" validate:"min=0"`
	ForeignDays         int    `json:"foreignDays" validate:"min=0"`
	TotalGuests         int    `json:"totalGuests" validate:"min=0"`
	DomesticGuests      int    `json:"domesticGuests" validate:"min=0"`
	ForeignGuests       int    `json:"foreignGuests" validate:"min=0"`
	TotalNights         int    `json:"totalNights" validate:"min=0"`
	DomesticNights      int    `json:"domesticNights" validate:"min=0"`
	ForeignNights       int    `json:"foreignNights" validate:"min=0"`
	ProcedenciaTuristas string `json:"procedenciaTuristas" validate:"min=10,max=500"`
}

func (p *CabinPayload) Kind() Kind         { return KindCabin }
func (p *CabinPayload) Provenance() string { return p.ProcedenciaTuristas }
func (p *CabinPayload) setProvenance(s string) {
	p.ProcedenciaTuristas = s
}

func (p *CabinPayload) Totals() Totals {
	return Totals{
		Units:         p.OccupiedDays,
		DomesticUnits: p.DomesticDays,
		ForeignUnits:  p.ForeignDays,
		Guests:        p.TotalGuests,
		Domestic:      p.DomesticGuests,
		Foreign:       p.ForeignGuests,
		Overnight:     p.TotalNights,
	}
}

func (p *CabinPayload) fields() []payloadField {
	return []payloadField{
		{"occupiedDays", &p.OccupiedDays},
		{"domesticDays", &p.DomesticDays},
		{"foreignDays", &p.ForeignDays},
		{"totalGuests", &p.TotalGuests},
		{"domesticGuests", &p.DomesticGuests},
		{"foreignGuests", &p.ForeignGuests},
		{"totalNights", &p.TotalNights},
		{"domesticNights", &p.DomesticNights},
		{"foreignNights", &p.ForeignNights},
		{provenanceField, &p.ProcedenciaTuristas},
	}
}

func (p *CabinPayload) invariants() []Violation {
	var out []Violation
	out = appendSum(out, "occupiedDays", "domesticDays", "foreignDays", p.DomesticDays, p.ForeignDays, p.OccupiedDays)
	out = appendSum(out, "totalGuests", "domesticGuests", "foreignGuests", p.DomesticGuests, p.ForeignGuests, p.TotalGuests)
	out = appendSum(out, "totalNights", "domesticNights", "foreignNights", p.DomesticNights, p.ForeignNights, p.TotalNights)
	out = appendNotAbove(out, "totalNights", "totalGuests", p.TotalNights, p.TotalGuests)
	return out
}

func appendSum(out []Violation, total, a, b string, av, bv, tv int) []Violation {
	if av+bv == tv {
		return out
	}
	return append(out, Violation{
		Field:   total,
		Rule:    "sum",
		Message: fmt.Sprintf("%s + %s must equal %s (%d + %d != %d)", a, b, total, av, bv, tv),
	})
}

func appendNotAbove(out []Violation, field, limit string, v, lv int) []Violation {
	if v <= lv {
		return out
	}
	return append(out, Violation{
		Field:   field,
		Rule:    "not_above",
		Message: fmt.Sprintf("%s cannot exceed %s (%d > %d)", field, limit, v, lv),
	})
}

func newPayload(k Kind) (Payload, error) {
	switch k {
	case KindHotel:
		return &HotelPayload{}, nil
	case KindRental:
		return &RentalPayload{}, nil
	case KindCabin:
		return &CabinPayload{}, nil
	}
	return nil, fmt.Errorf("unknown establishment kind %q", k)
}
