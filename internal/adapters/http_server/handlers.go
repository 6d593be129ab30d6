package httpserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/adapters/observability"
	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
	"tourism_occupancy/internal/stats"
)

type Handlers struct {
	Q    *app.QuestionnaireService
	S    *app.StatisticsService
	Auth AuthConfig
}

type problem struct {
	Type       string             `json:"type"`
	Title      string             `json:"title"`
	Status     int                `json:"status"`
	Detail     string             `json:"detail,omitempty"`
	Errors     []domain.Violation `json:"errors,omitempty"`
	ExistingID string             `json:"existingId,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/questionnaires", func(r chi.Router) {
		r.Use(Auth(h.Auth))

		r.Post("/", h.submit)
		r.Get("/mine", h.listMine)
		r.Get("/establishment/{id}", h.listEstablishment)
		r.Get("/statistics", h.kindStatistics)

		r.Group(func(r chi.Router) {
			r.Use(RequireSuperAdmin)
			r.Get("/reports", h.reports)
			r.Get("/advanced-statistics", h.advancedStatistics)
			r.Get("/peak-periods", h.peakPeriods)
			r.Get("/provenance-analysis", h.provenanceAnalysis)
			r.Get("/period-comparison", h.periodComparison)
			r.Get("/monthly-trends", h.monthlyTrends)
			r.Get("/top-establishments", h.topEstablishments)
			r.Get("/kind-statistics/{kind}", h.establishmentsByKind)
			r.Get("/export", h.export)
		})

		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

/********** response helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemDoc(w, problem{Title: title, Status: status, Detail: detail})
}

func writeProblemDoc(w http.ResponseWriter, p problem) {
	p.Type = "about:blank"
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps a service error onto its problem document. Internal causes
// are logged, never sent.
func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var ce *domain.ConflictError
	switch {
	case errors.As(err, &ve):
		writeProblemDoc(w, problem{Title: "Validation Failed", Status: http.StatusBadRequest,
			Detail: "the request has invalid fields", Errors: ve.Violations})
	case errors.As(err, &ce):
		writeProblemDoc(w, problem{Title: "Conflict", Status: http.StatusConflict,
			Detail: fmt.Sprintf("a questionnaire already exists for week %s", ce.Week), ExistingID: ce.ExistingID})
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "a questionnaire already exists for this week")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "you do not have access to this resource")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON writes v; GET responses carry an ETag and honor If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func principal(r *http.Request) domain.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

/********** record store **********/

func (h *Handlers) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		observability.ObserveWrite(in.Kind, "submit", err)
		writeError(w, err)
		return
	}
	q, err := h.Q.Submit(r.Context(), principal(r), in)
	observability.ObserveWrite(in.Kind, "submit", err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/questionnaires/"+q.ID)
	writeJSON(w, r, http.StatusCreated, single(toDTO(q)))
}

func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	q, err := h.Q.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, single(toDTO(q)))
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.Q.Update(r.Context(), principal(r), chi.URLParam(r, "id"), domain.UpdateInput{Payload: req.Payload, Notes: req.Notes})
	observability.ObserveWrite(q.Kind, "update", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, single(toDTO(q)))
}

func (h *Handlers) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.Q.Remove(r.Context(), principal(r), id)
	observability.ObserveWrite("", "remove", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, single(map[string]string{"id": id, "status": "removed"}))
}

func (h *Handlers) listMine(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := q.listFilter()
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Q.ListForOwner(r.Context(), principal(r), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(toDTOs(out)))
}

func (h *Handlers) listEstablishment(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := q.listFilter()
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Q.ListForEstablishment(r.Context(), principal(r), f.Kind, chi.URLParam(r, "id"), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(toDTOs(out)))
}

func (h *Handlers) reports(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := q.listFilter()
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Q.ListAll(r.Context(), principal(r), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(toDTOs(out)))
}

/********** aggregation **********/

// view runs one statistics computation and records its latency.
func view[T any](w http.ResponseWriter, r *http.Request, name string, fn func() (T, error)) {
	start := time.Now()
	out, err := fn()
	observability.ObserveAggregation(name, time.Since(start))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, r, http.StatusOK, single(out))
}

func (h *Handlers) kindStatistics(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := q.listFilter()
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "kind_statistics", func() ([]stats.KindStats, error) {
		return h.S.KindStatistics(r.Context(), principal(r), f)
	})
}

type advancedResponse struct {
	From    time.Time          `json:"from"`
	To      time.Time          `json:"to"`
	Summary stats.Summary      `json:"summary"`
	Records []questionnaireDTO `json:"records"`
}

func toAdvanced(a app.AdvancedStatistics) advancedResponse {
	return advancedResponse{From: a.From, To: a.To, Summary: a.Summary, Records: toDTOs(a.Records)}
}

func (h *Handlers) advancedStatistics(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := q.rangeFilter()
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "advanced_statistics", func() (advancedResponse, error) {
		a, err := h.S.Advanced(r.Context(), principal(r), f)
		return toAdvanced(a), err
	})
}

func (h *Handlers) peakPeriods(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	kind, months := q.kind("kind"), q.number("months")
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "peak_periods", func() (stats.PeakReport, error) {
		return h.S.PeakPeriods(r.Context(), principal(r), kind, months)
	})
}

func (h *Handlers) provenanceAnalysis(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	kind, limit := q.kind("kind"), q.number("limit")
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "provenance_analysis", func() (stats.ProvenanceReport, error) {
		return h.S.ProvenanceAnalysis(r.Context(), principal(r), kind, limit)
	})
}

func (h *Handlers) periodComparison(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	kind, months := q.kind("kind"), q.number("months")
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "period_comparison", func() (stats.Comparison, error) {
		return h.S.ComparePeriods(r.Context(), principal(r), kind, months)
	})
}

func (h *Handlers) monthlyTrends(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	kind, months := q.kind("kind"), q.number("months")
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "monthly_trends", func() (stats.TrendReport, error) {
		return h.S.MonthlyTrends(r.Context(), principal(r), kind, months)
	})
}

func (h *Handlers) topEstablishments(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	metric := stats.ParseMetric(q.str("metric"))
	limit, months := q.number("limit"), q.number("months")
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "top_establishments", func() (stats.TopReport, error) {
		return h.S.TopEstablishments(r.Context(), principal(r), metric, limit, months)
	})
}

func (h *Handlers) establishmentsByKind(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, domain.NewValidationError(domain.Violation{Field: "kind", Rule: "oneof", Message: "kind must be hotel, rental or cabin"}))
		return
	}
	q := newQuery(r)
	months, limit := q.number("months"), q.number("limit")
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}
	view(w, r, "establishments_by_kind", func() (stats.KindReport, error) {
		return h.S.EstablishmentsByKind(r.Context(), principal(r), kind, months, limit)
	})
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	f := q.rangeFilter()
	format, ferr := stats.ParseFormat(q.str("format"))
	if ferr != nil {
		q.vs = append(q.vs, domain.Violation{Field: "format", Rule: "oneof", Message: "format must be json or csv"})
	}
	if err := q.err(); err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	a, err := h.S.Export(r.Context(), principal(r), f)
	observability.ObserveAggregation("export", time.Since(start))
	if err != nil {
		writeError(w, err)
		return
	}
	if format == stats.FormatJSON {
		writeJSON(w, r, http.StatusOK, single(toAdvanced(a)))
		return
	}

	var buf bytes.Buffer
	if err := stats.WriteCSV(&buf, a.Records); err != nil {
		writeError(w, err)
		return
	}
	name := fmt.Sprintf("questionnaire-statistics-%s.csv", time.Now().UTC().Format(dateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("failed to write export body")
	}
}
