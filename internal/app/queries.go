package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tourism_occupancy/internal/domain"
)

const (
	DefaultListLimit   = 10
	DefaultReportLimit = 200
	MaxListLimit       = 200

	// directory lookups in flight per request
	attachConcurrency = 8
)

// ListFilter is the caller-facing filter of the list endpoints.
// Month is only honored together with Year.
type ListFilter struct {
	Kind  domain.Kind
	Year  int
	Month int
	Limit int
}

func (f ListFilter) validate() error {
	var vs []domain.Violation
	if f.Year != 0 && (f.Year < 1 || f.Year > 9999) {
		vs = append(vs, domain.Violation{Field: "year", Rule: "range", Message: "year must be between 1 and 9999"})
	}
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		vs = append(vs, domain.Violation{Field: "month", Rule: "range", Message: "month must be between 1 and 12"})
	}
	if f.Limit < 0 {
		vs = append(vs, domain.Violation{Field: "limit", Rule: "min", Message: "limit must be positive"})
	}
	if len(vs) > 0 {
		return domain.NewValidationError(vs...)
	}
	return nil
}

func (f ListFilter) toQuery(defaultLimit int) domain.QuestionnaireFilter {
	q := domain.QuestionnaireFilter{Kind: f.Kind, Limit: f.Limit}
	switch {
	case q.Limit == 0:
		q.Limit = defaultLimit
	case q.Limit > MaxListLimit:
		q.Limit = MaxListLimit
	}
	if f.Year > 0 {
		if f.Month > 0 {
			q.From = time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
			q.To = q.From.AddDate(0, 1, 0)
		} else {
			q.From = time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
			q.To = q.From.AddDate(1, 0, 0)
		}
	}
	return q
}

// ListForEstablishment returns an establishment's reports, newest week first.
func (s *QuestionnaireService) ListForEstablishment(ctx context.Context, p domain.Principal, kind domain.Kind, establishmentID string, f ListFilter) ([]domain.Questionnaire, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if kind == "" {
		kind = domain.KindHotel
	}
	est, err := s.dir.FindByID(ctx, kind, establishmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", kind, establishmentID, domain.ErrNotFound)
		}
		return nil, internal("lookup establishment", err)
	}
	if !p.CanAccess(est.OwnerID) {
		return nil, fmt.Errorf("list %s %s: %w", kind, establishmentID, domain.ErrForbidden)
	}

	q := f.toQuery(DefaultListLimit)
	q.Kind, q.EstablishmentID = kind, establishmentID
	out, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, internal("list questionnaires", err)
	}
	est.ID, est.Kind = establishmentID, kind
	for i := range out {
		e := est
		out[i].Establishment = &e
	}
	return out, nil
}

// ListForOwner lists the caller's reports; super-admins see every tenant's.
func (s *QuestionnaireService) ListForOwner(ctx context.Context, p domain.Principal, f ListFilter) ([]domain.Questionnaire, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	q := f.toQuery(DefaultListLimit)
	if !p.SuperAdmin {
		if p.UserID == "" {
			return nil, domain.ErrUnauthorized
		}
		q.OwnerID = p.UserID
	}
	out, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, internal("list questionnaires", err)
	}
	attachEstablishments(ctx, s.dir, out)
	return out, nil
}

// ListAll is the super-admin report listing across every establishment.
func (s *QuestionnaireService) ListAll(ctx context.Context, p domain.Principal, f ListFilter) ([]domain.Questionnaire, error) {
	if !p.SuperAdmin {
		return nil, fmt.Errorf("list all reports: %w", domain.ErrForbidden)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, f.toQuery(DefaultReportLimit))
	if err != nil {
		return nil, internal("list questionnaires", err)
	}
	attachEstablishments(ctx, s.dir, out)
	return out, nil
}

type estKey struct {
	kind domain.Kind
	id   string
}

// attachEstablishments resolves display fields for every distinct
// establishment in qs. Lookup failures leave the field nil.
func attachEstablishments(ctx context.Context, dir domain.EstablishmentDirectory, qs []domain.Questionnaire) {
	if dir == nil || len(qs) == 0 {
		return
	}
	var keys []estKey
	seen := map[estKey]bool{}
	for _, q := range qs {
		k := estKey{q.Kind, q.EstablishmentID}
		if q.EstablishmentID != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	var mu sync.Mutex
	found := make(map[estKey]domain.Establishment, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(attachConcurrency)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			e, err := dir.FindByID(gctx, k.kind, k.id)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					log.Warn().Err(err).Str("kind", string(k.kind)).Str("id", k.id).Msg("establishment lookup failed")
				}
				return nil
			}
			e.ID, e.Kind = k.id, k.kind
			mu.Lock()
			found[k] = e
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i := range qs {
		if e, ok := found[estKey{qs[i].Kind, qs[i].EstablishmentID}]; ok {
			qs[i].Establishment = &e
		}
	}
}
