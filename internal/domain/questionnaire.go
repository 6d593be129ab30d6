package domain

import (
	"encoding/json"
	"time"
)

// Questionnaire is one establishment's occupancy report for one ISO week.
type Questionnaire struct {
	ID              string
	OwnerID         string
	Kind            Kind
	EstablishmentID string
	StartDate       time.Time
	EndDate         time.Time
	Week            WeekKey
	SubmittedAt     time.Time
	Notes           string
	Payload         Payload
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Establishment is attached on read paths when the directory resolves it.
	Establishment *Establishment
}

const MaxNotesLength = 500

// Establishment is the display view the directory returns for a listing.
type Establishment struct {
	ID           string         `json:"id"`
	Kind         Kind           `json:"kind"`
	OwnerID      string         `json:"ownerId"`
	Name         string         `json:"name"`
	Location     Location       `json:"location"`
	PropertyType string         `json:"propertyType,omitempty"`
	Features     map[string]any `json:"features,omitempty"`
	Active       bool           `json:"active"`
}

type Location struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Principal is the authenticated caller, resolved once at the access boundary.
type Principal struct {
	UserID     string
	Email      string
	SuperAdmin bool
}

// CanAccess reports whether p may act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID string) bool {
	return p.SuperAdmin || (p.UserID != "" && p.UserID == ownerID)
}

// QuestionnaireFilter narrows list and aggregation reads. Zero values mean "any".
// From is inclusive, To is exclusive; both compare against StartDate.
type QuestionnaireFilter struct {
	Kind            Kind
	OwnerID         string
	EstablishmentID string
	From            time.Time
	To              time.Time
	Limit           int
}

// SubmitInput is a new weekly report as received from the caller.
type SubmitInput struct {
	Kind            Kind
	EstablishmentID string
	StartDate       time.Time
	EndDate         time.Time
	Payload         json.RawMessage
	Notes           *string
}

// UpdateInput patches an existing report. Payload keys not present are retained.
type UpdateInput struct {
	Payload json.RawMessage
	Notes   *string
}
