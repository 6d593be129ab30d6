package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
)

const hotelPayload = `{
	"occupiedRooms": 10, "domesticRooms": 7, "foreignRooms": 3,
	"totalGuests": 20, "domesticGuests": 15, "foreignGuests": 5,
	"totalOvernightGuests": 18, "domesticOvernightGuests": 13, "foreignOvernightGuests": 5,
	"procedenciaTuristas": "Turistas de CDMX y Monterrey"
}`

var (
	owner = domain.Principal{UserID: "u-1", Email: "owner@example.com"}
	other = domain.Principal{UserID: "u-2"}
	admin = domain.Principal{UserID: "root", SuperAdmin: true}
	clock = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
)

func newService() (*app.QuestionnaireService, *memRepo, *fakeDir) {
	repo := newMemRepo()
	dir := &fakeDir{ests: map[string]domain.Establishment{
		"hotel:h-1": {Name: "Hotel Sol", OwnerID: "u-1", Active: true},
		"cabin:c-1": {Name: "Cabañas del Bosque", OwnerID: "u-2", Active: true},
	}}
	return app.NewQuestionnaireService(repo, dir).WithClock(clock), repo, dir
}

func submitInput(start string) domain.SubmitInput {
	s, _ := time.Parse("2006-01-02", start)
	return domain.SubmitInput{
		Kind:            domain.KindHotel,
		EstablishmentID: "h-1",
		StartDate:       s,
		EndDate:         s.AddDate(0, 0, 6),
		Payload:         json.RawMessage(hotelPayload),
	}
}

func TestSubmit_StoresWeekAndOwner(t *testing.T) {
	svc, repo, _ := newService()

	q, err := svc.Submit(context.Background(), owner, submitInput("2024-03-04"))
	require.NoError(t, err)

	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "2024-W10", q.Week.String())
	assert.Equal(t, "u-1", q.OwnerID)
	assert.Equal(t, clock(), q.SubmittedAt)
	require.NotNil(t, q.Establishment)
	assert.Equal(t, "Hotel Sol", q.Establishment.Name)
	assert.Equal(t, 20, q.Payload.Totals().Guests)

	stored, err := repo.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Week, stored.Week)
}

func TestSubmit_SameWeekConflicts(t *testing.T) {
	svc, _, _ := newService()
	first, err := svc.Submit(context.Background(), owner, submitInput("2024-03-04"))
	require.NoError(t, err)

	// Thursday of the same ISO week.
	_, err = svc.Submit(context.Background(), owner, submitInput("2024-03-07"))
	require.ErrorIs(t, err, domain.ErrConflict)

	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, first.ID, ce.ExistingID)

	_, err = svc.Submit(context.Background(), owner, submitInput("2024-03-11"))
	assert.NoError(t, err)
}

func TestSubmit_SuperAdminKeepsEstablishmentOwner(t *testing.T) {
	svc, _, _ := newService()
	q, err := svc.Submit(context.Background(), admin, submitInput("2024-03-04"))
	require.NoError(t, err)
	assert.Equal(t, "u-1", q.OwnerID)
}

func TestSubmit_Rejections(t *testing.T) {
	svc, _, dir := newService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, other, submitInput("2024-03-04"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	in := submitInput("2024-03-04")
	in.EstablishmentID = "missing"
	_, err = svc.Submit(ctx, owner, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = submitInput("2024-03-04")
	in.EndDate = in.StartDate.AddDate(0, 0, -1)
	long := strings.Repeat("x", domain.MaxNotesLength+1)
	in.Notes = &long
	_, err = svc.Submit(ctx, owner, in)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Violations, 2)

	in = submitInput("2024-03-04")
	in.Payload = json.RawMessage(`{"occupiedRooms": 1}`)
	_, err = svc.Submit(ctx, owner, in)
	assert.ErrorIs(t, err, domain.ErrValidation)

	dir.err = errBoom
	_, err = svc.Submit(ctx, owner, submitInput("2024-03-04"))
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.NotErrorIs(t, err, errBoom)
}

func TestUpdate_MergesPayload(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	q, err := svc.Submit(ctx, owner, submitInput("2024-03-04"))
	require.NoError(t, err)

	notes := "corrected counts"
	patch := `{"totalGuests": 22, "domesticGuests": 17}`
	u, err := svc.Update(ctx, owner, q.ID, domain.UpdateInput{Payload: json.RawMessage(patch), Notes: &notes})
	require.NoError(t, err)

	h := u.Payload.(*domain.HotelPayload)
	assert.Equal(t, 22, h.TotalGuests)
	assert.Equal(t, 10, h.OccupiedRooms)
	assert.Equal(t, "corrected counts", u.Notes)
	assert.Equal(t, q.Week, u.Week)

	_, err = svc.Update(ctx, owner, q.ID, domain.UpdateInput{Payload: json.RawMessage(`{"totalGuests": 99}`)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(ctx, other, q.ID, domain.UpdateInput{Payload: json.RawMessage(patch)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Update(ctx, owner, "nope", domain.UpdateInput{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_RecordRemovedMeanwhile(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()
	q, err := svc.Submit(ctx, owner, submitInput("2024-03-04"))
	require.NoError(t, err)

	repo.beforeUpdate = func() { _ = repo.Delete(ctx, q.ID) }
	_, err = svc.Update(ctx, owner, q.ID, domain.UpdateInput{Payload: json.RawMessage(`{"totalGuests": 22, "domesticGuests": 17}`)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrInternal)
}

func TestRemoveAndGet(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	q, err := svc.Submit(ctx, owner, submitInput("2024-03-04"))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, other, q.ID), domain.ErrForbidden)

	got, err := svc.Get(ctx, admin, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)

	require.NoError(t, svc.Remove(ctx, owner, q.ID))
	_, err = svc.Get(ctx, owner, q.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, owner, q.ID), domain.ErrNotFound)
}

func TestListings(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()
	for _, d := range []string{"2024-01-08", "2024-02-05", "2024-02-12", "2023-12-04"} {
		_, err := svc.Submit(ctx, owner, submitInput(d))
		require.NoError(t, err)
	}

	all, err := svc.ListForEstablishment(ctx, owner, "", "h-1", app.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2024-W07", all[0].Week.String())
	assert.Equal(t, "Hotel Sol", all[0].Establishment.Name)

	feb, err := svc.ListForEstablishment(ctx, owner, domain.KindHotel, "h-1", app.ListFilter{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.Len(t, feb, 2)

	_, err = svc.ListForEstablishment(ctx, other, domain.KindHotel, "h-1", app.ListFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ListForEstablishment(ctx, owner, domain.KindHotel, "h-1", app.ListFilter{Month: 13})
	assert.ErrorIs(t, err, domain.ErrValidation)

	mine, err := svc.ListForOwner(ctx, owner, app.ListFilter{Year: 2024, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, "u-1", repo.lastQ.OwnerID)

	none, err := svc.ListForOwner(ctx, other, app.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.ListForOwner(ctx, domain.Principal{}, app.ListFilter{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.ListAll(ctx, owner, app.ListFilter{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	reports, err := svc.ListAll(ctx, admin, app.ListFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, reports, 4)
	assert.Equal(t, app.MaxListLimit, repo.lastQ.Limit)
}
