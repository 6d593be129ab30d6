package app

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/domain"
)

type QuestionnaireService struct {
	repo domain.QuestionnaireRepository
	dir  domain.EstablishmentDirectory
	now  func() time.Time
}

func NewQuestionnaireService(r domain.QuestionnaireRepository, d domain.EstablishmentDirectory) *QuestionnaireService {
	return &QuestionnaireService{repo: r, dir: d, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source. Tests only.
func (s *QuestionnaireService) WithClock(now func() time.Time) *QuestionnaireService {
	s.now = now
	return s
}

// internal hides a persistence or collaborator failure behind ErrInternal.
// The cause stays in the message for logs.
func internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrInternal, err)
}

func (s *QuestionnaireService) Submit(ctx context.Context, p domain.Principal, in domain.SubmitInput) (domain.Questionnaire, error) {
	// 1) Structural checks first; payload rules are collected later in one pass.
	var vs []domain.Violation
	if !in.Kind.Valid() {
		vs = append(vs, domain.Violation{Field: "kind", Rule: "oneof", Message: "establishment kind must be hotel, rental or cabin"})
	}
	if in.EstablishmentID == "" {
		vs = append(vs, domain.Violation{Field: "establishmentId", Rule: "required", Message: "an establishment reference is required"})
	}
	if in.StartDate.IsZero() {
		vs = append(vs, domain.Violation{Field: "startDate", Rule: "required", Message: "startDate is required"})
	}
	if in.EndDate.IsZero() {
		vs = append(vs, domain.Violation{Field: "endDate", Rule: "required", Message: "endDate is required"})
	} else if !in.StartDate.IsZero() && in.EndDate.Before(in.StartDate) {
		vs = append(vs, domain.Violation{Field: "endDate", Rule: "after_start", Message: "endDate cannot precede startDate"})
	}
	if v, ok := checkNotes(in.Notes); !ok {
		vs = append(vs, v)
	}
	if len(vs) > 0 {
		return domain.Questionnaire{}, domain.NewValidationError(vs...)
	}

	// 2) Establishment must exist and belong to the caller.
	est, err := s.dir.FindByID(ctx, in.Kind, in.EstablishmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Questionnaire{}, fmt.Errorf("%s %s: %w", in.Kind, in.EstablishmentID, domain.ErrNotFound)
		}
		return domain.Questionnaire{}, internal("lookup establishment", err)
	}
	if !p.CanAccess(est.OwnerID) {
		return domain.Questionnaire{}, fmt.Errorf("submit for %s %s: %w", in.Kind, in.EstablishmentID, domain.ErrForbidden)
	}

	// 3) One report per establishment and week.
	week := domain.DeriveWeekKey(in.StartDate)
	existing, err := s.repo.FindByWeek(ctx, in.Kind, in.EstablishmentID, week)
	switch {
	case err == nil:
		log.Debug().Str("existing_id", existing.ID).Str("week", week.String()).Msg("questionnaire_conflict")
		return domain.Questionnaire{}, &domain.ConflictError{ExistingID: existing.ID, Kind: in.Kind, Week: week}
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Questionnaire{}, internal("find by week", err)
	}

	payload, err := domain.DecodePayload(in.Kind, in.Payload)
	if err != nil {
		return domain.Questionnaire{}, err
	}

	// Super-admin submissions stay with the establishment's owner.
	owner := p.UserID
	if est.OwnerID != "" {
		owner = est.OwnerID
	}
	now := s.now()
	q := domain.Questionnaire{
		ID:              uuid.NewString(),
		OwnerID:         owner,
		Kind:            in.Kind,
		EstablishmentID: in.EstablishmentID,
		StartDate:       dateOnly(in.StartDate),
		EndDate:         dateOnly(in.EndDate),
		Week:            week,
		SubmittedAt:     now,
		Payload:         payload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Notes != nil {
		q.Notes = *in.Notes
	}

	// 4) The unique index is the real race guard; it surfaces as ConflictError too.
	if err := s.repo.Insert(ctx, q); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Questionnaire{}, err
		}
		return domain.Questionnaire{}, internal("insert questionnaire", err)
	}

	est.ID, est.Kind = in.EstablishmentID, in.Kind
	q.Establishment = &est
	log.Info().
		Str("id", q.ID).
		Str("kind", string(q.Kind)).
		Str("establishment_id", q.EstablishmentID).
		Str("week", q.Week.String()).
		Msg("questionnaire_submitted")
	return q, nil
}

func (s *QuestionnaireService) Update(ctx context.Context, p domain.Principal, id string, in domain.UpdateInput) (domain.Questionnaire, error) {
	q, err := s.load(ctx, p, id)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	if v, ok := checkNotes(in.Notes); !ok {
		return domain.Questionnaire{}, domain.NewValidationError(v)
	}

	merged, err := domain.MergePayload(q.Payload, in.Payload)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	q.Payload = merged
	if in.Notes != nil {
		q.Notes = *in.Notes
	}
	now := s.now()
	q.SubmittedAt, q.UpdatedAt = now, now

	if err := s.repo.Update(ctx, q); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Questionnaire{}, fmt.Errorf("questionnaire %s: %w", id, domain.ErrNotFound)
		}
		return domain.Questionnaire{}, internal("update questionnaire", err)
	}
	log.Info().Str("id", q.ID).Str("kind", string(q.Kind)).Str("week", q.Week.String()).Msg("questionnaire_updated")
	return s.withEstablishment(ctx, q), nil
}

func (s *QuestionnaireService) Remove(ctx context.Context, p domain.Principal, id string) error {
	q, err := s.load(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("questionnaire %s: %w", id, domain.ErrNotFound)
		}
		return internal("delete questionnaire", err)
	}
	log.Info().Str("id", id).Str("kind", string(q.Kind)).Str("week", q.Week.String()).Msg("questionnaire_removed")
	return nil
}

func (s *QuestionnaireService) Get(ctx context.Context, p domain.Principal, id string) (domain.Questionnaire, error) {
	q, err := s.load(ctx, p, id)
	if err != nil {
		return domain.Questionnaire{}, err
	}
	return s.withEstablishment(ctx, q), nil
}

// load fetches a record the caller may act on.
func (s *QuestionnaireService) load(ctx context.Context, p domain.Principal, id string) (domain.Questionnaire, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Questionnaire{}, fmt.Errorf("questionnaire %s: %w", id, domain.ErrNotFound)
		}
		return domain.Questionnaire{}, internal("get questionnaire", err)
	}
	if !p.CanAccess(q.OwnerID) {
		return domain.Questionnaire{}, fmt.Errorf("questionnaire %s: %w", id, domain.ErrForbidden)
	}
	return q, nil
}

func (s *QuestionnaireService) withEstablishment(ctx context.Context, q domain.Questionnaire) domain.Questionnaire {
	qs := []domain.Questionnaire{q}
	attachEstablishments(ctx, s.dir, qs)
	return qs[0]
}

func checkNotes(notes *string) (domain.Violation, bool) {
	if notes != nil && utf8.RuneCountInString(*notes) > domain.MaxNotesLength {
		return domain.Violation{Field: "notes", Rule: "max", Message: fmt.Sprintf("notes must be at most %d characters", domain.MaxNotesLength)}, false
	}
	return domain.Violation{}, true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
