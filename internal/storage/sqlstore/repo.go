// Package sqlstore persists questionnaires and the establishment directory
// over database/sql, with MySQL for production and SQLite for embedded use.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourism_occupancy/internal/domain"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = "2006-01-02 15:04:05.000"
)

var refColumns = map[domain.Kind]string{
	domain.KindHotel:  "hotel_id",
	domain.KindRental: "rental_id",
	domain.KindCabin:  "cabin_id",
}

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valRef(q domain.Questionnaire, k domain.Kind) any {
	if q.Kind != k {
		return nil
	}
	return q.EstablishmentID
}

func valDate(t time.Time) string  { return t.UTC().Format(dateLayout) }
func valStamp(t time.Time) string { return t.UTC().Format(stampLayout) }

// dbTime scans DATE/DATETIME columns whether the driver hands back
// time.Time, string or bytes.
type dbTime struct{ t time.Time }

var timeLayouts = []string{
	stampLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	dateLayout,
}

func (d *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.t = v.UTC()
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	case nil:
		d.t = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (d *dbTime) parse(s string) error {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable time %q", s)
}

type Repo struct {
	db *sql.DB
	d  Dialect
}

func New(db *sql.DB, d Dialect) *Repo { return &Repo{db: db, d: d} }

func (r *Repo) Insert(ctx context.Context, q domain.Questionnaire) error {
	payload, err := json.Marshal(q.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertQuestionnaireSQL,
		q.ID,
		q.OwnerID,
		string(q.Kind),
		valRef(q, domain.KindHotel),
		valRef(q, domain.KindRental),
		valRef(q, domain.KindCabin),
		valDate(q.StartDate),
		valDate(q.EndDate),
		q.Week.String(),
		q.Week.Year,
		q.Week.Week,
		valStamp(q.SubmittedAt),
		valStr(q.Notes),
		string(payload),
		valStamp(q.CreatedAt),
		valStamp(q.UpdatedAt),
	)
	if err == nil {
		return nil
	}
	if !r.d.isUniqueViolation(err) {
		return fmt.Errorf("insert questionnaire: %w", err)
	}
	conflict := &domain.ConflictError{Kind: q.Kind, Week: q.Week}
	if existing, ferr := r.FindByWeek(ctx, q.Kind, q.EstablishmentID, q.Week); ferr == nil {
		conflict.ExistingID = existing.ID
	}
	return conflict
}

func (r *Repo) Update(ctx context.Context, q domain.Questionnaire) error {
	payload, err := json.Marshal(q.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	res, err := r.db.ExecContext(ctx, updateQuestionnaireSQL,
		string(payload),
		valStr(q.Notes),
		valStamp(q.SubmittedAt),
		valStamp(q.UpdatedAt),
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("update questionnaire %s: %w", q.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update questionnaire %s: %w", q.ID, err)
	}
	if n > 0 {
		return nil
	}
	// MySQL reports 0 for rows matched but left unchanged.
	var one int
	err = r.db.QueryRowContext(ctx, existsQuestionnaireSQL, q.ID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update questionnaire %s: %w", q.ID, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteQuestionnaireSQL, id)
	if err != nil {
		return fmt.Errorf("delete questionnaire %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete questionnaire %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (domain.Questionnaire, error) {
	row := r.db.QueryRowContext(ctx, selectQuestionnaireSQL+"\nWHERE id = ?", id)
	q, err := scanQuestionnaire(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Questionnaire{}, domain.ErrNotFound
	}
	return q, err
}

func (r *Repo) FindByWeek(ctx context.Context, kind domain.Kind, establishmentID string, week domain.WeekKey) (domain.Questionnaire, error) {
	col, ok := refColumns[kind]
	if !ok {
		return domain.Questionnaire{}, fmt.Errorf("unknown kind %q", kind)
	}
	row := r.db.QueryRowContext(ctx,
		selectQuestionnaireSQL+"\nWHERE "+col+" = ? AND week_key = ?",
		establishmentID, week.String())
	q, err := scanQuestionnaire(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Questionnaire{}, domain.ErrNotFound
	}
	return q, err
}

func (r *Repo) List(ctx context.Context, f domain.QuestionnaireFilter) ([]domain.Questionnaire, error) {
	var where []string
	var args []any
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.EstablishmentID != "" {
		if col, ok := refColumns[f.Kind]; ok {
			where = append(where, col+" = ?")
			args = append(args, f.EstablishmentID)
		} else {
			where = append(where, "(hotel_id = ? OR rental_id = ? OR cabin_id = ?)")
			args = append(args, f.EstablishmentID, f.EstablishmentID, f.EstablishmentID)
		}
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if !f.From.IsZero() {
		where = append(where, "start_date >= ?")
		args = append(args, valDate(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "start_date < ?")
		args = append(args, valDate(f.To))
	}

	var b strings.Builder
	b.WriteString(selectQuestionnaireSQL)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(orderQuestionnairesSQL)
	if f.Limit > 0 {
		b.WriteString("\nLIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	defer rows.Close()

	out := []domain.Questionnaire{}
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestionnaire(s scanner) (domain.Questionnaire, error) {
	var (
		q                          domain.Questionnaire
		kind, weekKey              string
		hotelID, rentalID, cabinID sql.NullString
		notes                      sql.NullString
		weekYear, weekNum          int
		payload                    []byte
		start, end                 dbTime
		submitted, created, upd    dbTime
	)
	if err := s.Scan(
		&q.ID, &q.OwnerID, &kind,
		&hotelID, &rentalID, &cabinID,
		&start, &end, &weekKey, &weekYear, &weekNum,
		&submitted, &notes, &payload, &created, &upd,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return q, err
		}
		return q, fmt.Errorf("scan questionnaire: %w", err)
	}

	q.Kind = domain.Kind(kind)
	switch q.Kind {
	case domain.KindHotel:
		q.EstablishmentID = hotelID.String
	case domain.KindRental:
		q.EstablishmentID = rentalID.String
	case domain.KindCabin:
		q.EstablishmentID = cabinID.String
	}
	q.StartDate, q.EndDate = start.t, end.t
	q.Week = domain.WeekKey{Year: weekYear, Week: weekNum}
	q.SubmittedAt, q.CreatedAt, q.UpdatedAt = submitted.t, created.t, upd.t
	q.Notes = notes.String

	p, err := domain.DecodePayload(q.Kind, payload)
	if err != nil {
		return q, fmt.Errorf("questionnaire %s: corrupt payload (%v): %w", q.ID, err, domain.ErrInternal)
	}
	q.Payload = p
	return q, nil
}
