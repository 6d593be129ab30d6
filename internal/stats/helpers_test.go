package stats_test

import (
	"time"

	"tourism_occupancy/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// hotel builds a valid hotel record with all guests domestic unless foreign > 0.
func hotel(estab, date string, guests, foreign int, prov string) domain.Questionnaire {
	start := day(date)
	return domain.Questionnaire{
		ID:              estab + "-" + date,
		Kind:            domain.KindHotel,
		EstablishmentID: estab,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 6),
		Week:            domain.DeriveWeekKey(start),
		Establishment:   &domain.Establishment{ID: estab, Kind: domain.KindHotel, Name: "Hotel " + estab},
		Payload: &domain.HotelPayload{
			OccupiedRooms:           1,
			DomesticRooms:           1,
			TotalGuests:             guests,
			DomesticGuests:          guests - foreign,
			ForeignGuests:           foreign,
			TotalOvernightGuests:    guests,
			DomesticOvernightGuests: guests - foreign,
			ForeignOvernightGuests:  foreign,
			ProcedenciaTuristas:     prov,
		},
	}
}

func cabin(estab, date string, guests int, prov string) domain.Questionnaire {
	start := day(date)
	return domain.Questionnaire{
		ID:              estab + "-" + date,
		Kind:            domain.KindCabin,
		EstablishmentID: estab,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 6),
		Week:            domain.DeriveWeekKey(start),
		Payload: &domain.CabinPayload{
			OccupiedDays:        2,
			DomesticDays:        2,
			TotalGuests:         guests,
			DomesticGuests:      guests,
			TotalNights:         guests,
			DomesticNights:      guests,
			ProcedenciaTuristas: prov,
		},
	}
}
