package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tourism_occupancy/internal/domain"
)

// Directory reads establishments from the table the listings service maintains.
type Directory struct {
	db *sql.DB
	d  Dialect
}

func NewDirectory(db *sql.DB, d Dialect) *Directory { return &Directory{db: db, d: d} }

func (r *Directory) FindByID(ctx context.Context, kind domain.Kind, id string) (domain.Establishment, error) {
	var (
		e                                domain.Establishment
		k                                string
		addr, city, state, postal, ptype sql.NullString
		features                         []byte
	)
	err := r.db.QueryRowContext(ctx, getEstablishmentSQL, string(kind), id).Scan(
		&k, &e.ID, &e.OwnerID, &e.Name,
		&addr, &city, &state, &postal, &ptype,
		&features, &e.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Establishment{}, domain.ErrNotFound
		}
		return domain.Establishment{}, fmt.Errorf("find establishment %s/%s: %w", kind, id, err)
	}
	e.Kind = domain.Kind(k)
	e.Location = domain.Location{Address: addr.String, City: city.String, State: state.String, PostalCode: postal.String}
	e.PropertyType = ptype.String
	if len(features) > 0 {
		_ = json.Unmarshal(features, &e.Features)
	}
	return e, nil
}

// Upsert seeds or refreshes a directory row. Used by the backfill tool and tests.
func (r *Directory) Upsert(ctx context.Context, e domain.Establishment) error {
	var features any
	if len(e.Features) > 0 {
		b, err := json.Marshal(e.Features)
		if err != nil {
			return fmt.Errorf("encode features: %w", err)
		}
		features = string(b)
	}
	_, err := r.db.ExecContext(ctx, r.d.upsertEstablishment,
		string(e.Kind), e.ID, e.OwnerID, e.Name,
		valStr(e.Location.Address),
		valStr(e.Location.City),
		valStr(e.Location.State),
		valStr(e.Location.PostalCode),
		valStr(e.PropertyType),
		features,
		e.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert establishment %s/%s: %w", e.Kind, e.ID, err)
	}
	return nil
}
