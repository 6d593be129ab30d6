//go:build integration

package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/storage/sqlstore"
)

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=tourism",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/tourism?parseTime=true&loc=UTC&charset=utf8mb4",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sqlstore.Open(context.Background(), sqlstore.MySQL, dsn)
		return e
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlstore.Migrate(context.Background(), db, sqlstore.MySQL))
	return db
}

func TestRepo_MySQL_InsertConflictAndList(t *testing.T) {
	db := startMySQL(t)
	repo := sqlstore.New(db, sqlstore.MySQL)
	dir := sqlstore.NewDirectory(db, sqlstore.MySQL)
	ctx := context.Background()

	require.NoError(t, dir.Upsert(ctx, domain.Establishment{
		ID: "H1", Kind: domain.KindHotel, OwnerID: "owner-1", Name: "Hotel Misión", Active: true,
	}))
	e, err := dir.FindByID(ctx, domain.KindHotel, "H1")
	require.NoError(t, err)
	assert.Equal(t, "Hotel Misión", e.Name)

	require.NoError(t, repo.Insert(ctx, record(t, "q-1", domain.KindHotel, "H1", "2024-03-04")))

	err = repo.Insert(ctx, record(t, "q-2", domain.KindHotel, "H1", "2024-03-05"))
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "q-1", ce.ExistingID)

	// a different kind may reuse the reference value
	require.NoError(t, repo.Insert(ctx, record(t, "q-3", domain.KindRental, "H1", "2024-03-04")))

	got, err := repo.Get(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WeekKey{Year: 2024, Week: 10}, got.Week)
	assert.Equal(t, 20, got.Payload.Totals().Guests)

	list, err := repo.List(ctx, domain.QuestionnaireFilter{OwnerID: "owner-1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Delete(ctx, "q-3"))
	assert.ErrorIs(t, repo.Delete(ctx, "q-3"), domain.ErrNotFound)
}

func TestRepo_MySQL_SameWeekUniquenessPerKind(t *testing.T) {
	db := startMySQL(t)
	repo := sqlstore.New(db, sqlstore.MySQL)
	ctx := context.Background()

	// distinct establishments share the week; their NULL columns must not collide
	for i, k := range []domain.Kind{domain.KindHotel, domain.KindRental, domain.KindCabin} {
		require.NoError(t, repo.Insert(ctx, record(t, fmt.Sprintf("a-%d", i), k, "E1", "2024-05-06")))
		require.NoError(t, repo.Insert(ctx, record(t, fmt.Sprintf("b-%d", i), k, "E2", "2024-05-06")))
	}

	for i, k := range []domain.Kind{domain.KindHotel, domain.KindRental, domain.KindCabin} {
		// Wednesday of the same ISO week
		err := repo.Insert(ctx, record(t, fmt.Sprintf("dup-%d", i), k, "E1", "2024-05-08"))
		var ce *domain.ConflictError
		require.True(t, errors.As(err, &ce), "%s: got %v", k, err)
		assert.Equal(t, fmt.Sprintf("a-%d", i), ce.ExistingID)
		assert.Equal(t, "2024-W19", ce.Week.String())
	}

	list, err := repo.List(ctx, domain.QuestionnaireFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 6)
}

func TestRepo_MySQL_ConcurrentSubmissionsExactlyOneWins(t *testing.T) {
	db := startMySQL(t)
	repo := sqlstore.New(db, sqlstore.MySQL)
	ctx := context.Background()

	const n = 8
	qs := make([]domain.Questionnaire, n)
	for i := range qs {
		qs[i] = record(t, fmt.Sprintf("q-%d", i), domain.KindHotel, "H1", "2024-05-06")
	}
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Insert(ctx, qs[i])
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestRepo_MySQL_UpdateMissingRecord(t *testing.T) {
	db := startMySQL(t)
	repo := sqlstore.New(db, sqlstore.MySQL)
	ctx := context.Background()

	q := record(t, "q-1", domain.KindHotel, "H1", "2024-03-04")
	assert.ErrorIs(t, repo.Update(ctx, q), domain.ErrNotFound)

	require.NoError(t, repo.Insert(ctx, q))
	// MySQL reports zero affected rows for an unchanged row
	require.NoError(t, repo.Update(ctx, q))
}
