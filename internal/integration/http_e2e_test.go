//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism_occupancy/internal/adapters/directory"
	server "tourism_occupancy/internal/adapters/http_server"
	"tourism_occupancy/internal/adapters/observability"
	redisad "tourism_occupancy/internal/adapters/redis"
	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/stats"
	"tourism_occupancy/internal/storage/sqlstore"
)

var secret = []byte("e2e-secret")

// ---------- helpers ----------

type stack struct {
	t    *testing.T
	api  *httptest.Server
	rev  *redisad.Revocations
	repo *sqlstore.Repo
}

// listingsServer plays the external listings service the directory client talks to.
func listingsServer(t *testing.T) *httptest.Server {
	docs := map[string]string{
		"/hotel/h-1":  `{"nombre": "Hotel Sol", "propietario": "u-1", "ubicacion": {"ciudad": "Oaxaca"}}`,
		"/hotel/h-2":  `{"name": "Hotel Luna", "ownerId": "u-2"}`,
		"/cabin/c-1":  `{"data": {"name": "Cabañas del Bosque", "ownerId": "u-1", "propertyType": "chalet"}}`,
		"/rental/r-1": `{"name": "Casa Azul", "ownerId": "u-2"}`,
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, doc)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	db, d, err := sqlstore.Connect(ctx, "sqlite", "", filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir, err := directory.New(listingsServer(t).URL, "k", 1000, 0)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rev := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rev.Close() })

	repo := sqlstore.New(db, d)
	srv := server.New(5 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(observability.InitRegistry()))
	srv.MountHandlers(&server.Handlers{
		Q:    app.NewQuestionnaireService(repo, dir),
		S:    app.NewStatisticsService(repo, dir, stats.DefaultOptions(), 0),
		Auth: server.AuthConfig{Secret: secret, SuperAdminEmail: "admin@tourism.example", Revocations: rev},
	})
	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)
	return &stack{t: t, api: api, rev: rev, repo: repo}
}

func tokenFor(t *testing.T, sub, email, jti string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "email": email, "jti": jti, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return s
}

func (s *stack) call(method, path, tok, body string) (int, []byte) {
	s.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.api.URL+path, rd)
	require.NoError(s.t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, b
}

func recentMonday(weeksAgo int) time.Time {
	now := time.Now().UTC()
	d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d.AddDate(0, 0, -7*weeksAgo)
}

func hotelBody(ref string, start time.Time, domestic, foreign int, provenance string) string {
	return fmt.Sprintf(`{"hotelId": %q, "startDate": %q, "endDate": %q, "payload": {
		"occupiedRooms": %d, "domesticRooms": %d, "foreignRooms": %d,
		"totalGuests": %d, "domesticGuests": %d, "foreignGuests": %d,
		"totalOvernightGuests": %d, "domesticOvernightGuests": %d, "foreignOvernightGuests": %d,
		"procedenciaTuristas": %q}}`,
		ref, start.Format("2006-01-02"), start.AddDate(0, 0, 6).Format("2006-01-02"),
		domestic+foreign, domestic, foreign,
		domestic+foreign, domestic, foreign,
		domestic+foreign, domestic, foreign,
		provenance)
}

// ---------- tests ----------

func TestE2E_SubmitListAggregate(t *testing.T) {
	s := newStack(t)
	owner := tokenFor(t, "u-1", "owner@example.com", "j-1")
	rival := tokenFor(t, "u-2", "rival@example.com", "j-2")
	admin := tokenFor(t, "root", "admin@tourism.example", "j-3")

	// four weekly reports for h-1 and two for h-2
	for i, g := range []int{10, 20, 30, 40} {
		code, body := s.call("POST", "/questionnaires", owner, hotelBody("h-1", recentMonday(i+1), g, 0, "Visitantes de la Ciudad de México"))
		require.Equal(t, http.StatusCreated, code, string(body))
	}
	for i, g := range []int{60, 90} {
		code, body := s.call("POST", "/questionnaires", rival, hotelBody("h-2", recentMonday(i+1), g/2, g/2, "Turistas de Estados Unidos y Canadá"))
		require.Equal(t, http.StatusCreated, code, string(body))
	}

	// same ISO week, different day
	code, body := s.call("POST", "/questionnaires", owner, hotelBody("h-1", recentMonday(1).AddDate(0, 0, 2), 5, 0, "Visitantes de Puebla"))
	require.Equal(t, http.StatusConflict, code)
	var prob map[string]any
	require.NoError(t, json.Unmarshal(body, &prob))
	assert.NotEmpty(t, prob["existingId"])

	code, _ = s.call("POST", "/questionnaires", owner, hotelBody("h-2", recentMonday(5), 5, 0, "Visitantes de Puebla"))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.call("POST", "/questionnaires", owner, hotelBody("h-404", recentMonday(5), 5, 0, "Visitantes de Puebla"))
	assert.Equal(t, http.StatusNotFound, code)

	var page struct {
		Results int `json:"results"`
		Data    []struct {
			ID            string                `json:"id"`
			OwnerID       string                `json:"ownerId"`
			Establishment *domain.Establishment `json:"establishment"`
		} `json:"data"`
	}
	code, body = s.call("GET", "/questionnaires/mine", owner, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 4, page.Results)
	require.NotNil(t, page.Data[0].Establishment)
	assert.Equal(t, "Hotel Sol", page.Data[0].Establishment.Name)
	assert.Equal(t, "Oaxaca", page.Data[0].Establishment.Location.City)

	code, body = s.call("GET", "/questionnaires/reports", admin, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, 6, page.Results)

	var top struct {
		Data stats.TopReport `json:"data"`
	}
	code, body = s.call("GET", "/questionnaires/top-establishments?metric=guests", admin, "")
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &top))
	require.Len(t, top.Data.Establishments, 2)
	assert.Equal(t, "Hotel Luna", top.Data.Establishments[0].Name)
	assert.Equal(t, 150, top.Data.Establishments[0].Guests)
	assert.Equal(t, 100, top.Data.Establishments[1].Guests)
	assert.Equal(t, 25.0, top.Data.Establishments[1].AverageGuests)

	var prov struct {
		Data stats.ProvenanceReport `json:"data"`
	}
	code, body = s.call("GET", "/questionnaires/provenance-analysis", admin, "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &prov))
	assert.Equal(t, 100, prov.Data.Summary.DomesticGuests)
	assert.Equal(t, 150, prov.Data.Summary.ForeignGuests)

	code, body = s.call("GET", "/questionnaires/export?format=csv", admin, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, strings.Split(string(body), "\n"), 7)
}

func TestE2E_UpdateRemoveRevoke(t *testing.T) {
	s := newStack(t)
	owner := tokenFor(t, "u-1", "owner@example.com", "j-9")

	code, body := s.call("POST", "/questionnaires", owner, hotelBody("h-1", recentMonday(1), 8, 2, "Turistas de Jalisco"))
	require.Equal(t, http.StatusCreated, code, string(body))
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	code, body = s.call("PUT", "/questionnaires/"+created.Data.ID, owner, `{"payload": {"totalGuests": 12, "domesticGuests": 10}}`)
	require.Equal(t, http.StatusOK, code, string(body))
	q, err := s.repo.Get(context.Background(), created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, q.Payload.Totals().Guests)

	code, _ = s.call("DELETE", "/questionnaires/"+created.Data.ID, owner, "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.call("GET", "/questionnaires/"+created.Data.ID, owner, "")
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, s.rev.Revoke(context.Background(), "j-9", time.Hour))
	code, _ = s.call("GET", "/questionnaires/mine", owner, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}
