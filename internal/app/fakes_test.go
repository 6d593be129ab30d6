package app_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"tourism_occupancy/internal/domain"
)

// ---- fakes ----

type memRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Questionnaire
	listErr error
	lastQ   domain.QuestionnaireFilter

	// runs before Update takes the lock
	beforeUpdate func()
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]domain.Questionnaire{}} }

func (r *memRepo) Insert(ctx context.Context, q domain.Questionnaire) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.rows {
		if x.Kind == q.Kind && x.EstablishmentID == q.EstablishmentID && x.Week == q.Week {
			return &domain.ConflictError{ExistingID: x.ID, Kind: q.Kind, Week: q.Week}
		}
	}
	r.rows[q.ID] = q
	return nil
}

func (r *memRepo) Update(ctx context.Context, q domain.Questionnaire) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[q.ID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[q.ID] = q
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) Get(ctx context.Context, id string) (domain.Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.rows[id]
	if !ok {
		return domain.Questionnaire{}, domain.ErrNotFound
	}
	return q, nil
}

func (r *memRepo) FindByWeek(ctx context.Context, kind domain.Kind, estID string, week domain.WeekKey) (domain.Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.rows {
		if q.Kind == kind && q.EstablishmentID == estID && q.Week == week {
			return q, nil
		}
	}
	return domain.Questionnaire{}, domain.ErrNotFound
}

func (r *memRepo) List(ctx context.Context, f domain.QuestionnaireFilter) ([]domain.Questionnaire, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQ = f
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := []domain.Questionnaire{}
	for _, q := range r.rows {
		switch {
		case f.Kind != "" && q.Kind != f.Kind,
			f.OwnerID != "" && q.OwnerID != f.OwnerID,
			f.EstablishmentID != "" && q.EstablishmentID != f.EstablishmentID,
			!f.From.IsZero() && q.StartDate.Before(f.From),
			!f.To.IsZero() && !q.StartDate.Before(f.To):
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type fakeDir struct {
	ests map[string]domain.Establishment
	err  error
}

func (d *fakeDir) FindByID(ctx context.Context, kind domain.Kind, id string) (domain.Establishment, error) {
	if d.err != nil {
		return domain.Establishment{}, d.err
	}
	e, ok := d.ests[string(kind)+":"+id]
	if !ok {
		return domain.Establishment{}, domain.ErrNotFound
	}
	return e, nil
}

var errBoom = errors.New("boom")
