package domain

import "context"

type QuestionnaireRepository interface {
	// Write paths
	Insert(ctx context.Context, q Questionnaire) error
	Update(ctx context.Context, q Questionnaire) error
	Delete(ctx context.Context, id string) error

	// Read paths
	Get(ctx context.Context, id string) (Questionnaire, error)
	FindByWeek(ctx context.Context, kind Kind, establishmentID string, week WeekKey) (Questionnaire, error)
	List(ctx context.Context, f QuestionnaireFilter) ([]Questionnaire, error)
}

// EstablishmentDirectory resolves listings owned by the establishments service.
type EstablishmentDirectory interface {
	FindByID(ctx context.Context, kind Kind, id string) (Establishment, error)
}

// RevocationList answers whether a token id has been revoked.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
