package stats

import (
	"tourism_occupancy/internal/domain"
)

const unknownEstablishment = "unknown"

// establishmentKey identifies the establishment a record reports on.
func establishmentKey(q domain.Questionnaire) string {
	if q.EstablishmentID == "" || !q.Kind.Valid() {
		return unknownEstablishment
	}
	return string(q.Kind) + ":" + q.EstablishmentID
}

func establishmentName(q domain.Questionnaire) string {
	if q.Establishment != nil && q.Establishment.Name != "" {
		return q.Establishment.Name
	}
	return "Unknown establishment"
}

func totals(q domain.Questionnaire) domain.Totals {
	if q.Payload == nil {
		return domain.Totals{}
	}
	return q.Payload.Totals()
}

func provenance(q domain.Questionnaire) string {
	if q.Payload == nil {
		return ""
	}
	return q.Payload.Provenance()
}
