package domain

import (
	"fmt"
	"strings"
)

// Kind discriminates the establishment a questionnaire reports on.
type Kind string

const (
	KindHotel  Kind = "hotel"
	KindRental Kind = "rental"
	KindCabin  Kind = "cabin"
)

// Kinds lists every questionnaire kind in canonical order.
var Kinds = []Kind{KindHotel, KindRental, KindCabin}

var kindAliases = map[string]Kind{
	"hotel":  KindHotel,
	"hotels": KindHotel,
	"rental": KindRental,
	"airbnb": KindRental,
	"cabin":  KindCabin,
	"cabana": KindCabin,
	"cabaña": KindCabin,
}

// ParseKind accepts canonical names plus the legacy listing names (airbnb, cabana).
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown establishment kind %q", s)
}

func (k Kind) Valid() bool {
	return k == KindHotel || k == KindRental || k == KindCabin
}

// RefField is the request/response field naming the establishment for this kind.
func (k Kind) RefField() string {
	switch k {
	case KindHotel:
		return "hotelId"
	case KindRental:
		return "rentalId"
	case KindCabin:
		return "cabinId"
	}
	return ""
}

func (k Kind) Label() string {
	switch k {
	case KindHotel:
		return "Hotel"
	case KindRental:
		return "Rental"
	case KindCabin:
		return "Cabin"
	}
	return "N/A"
}
