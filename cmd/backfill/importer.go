package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tourism_occupancy/internal/app"
	"tourism_occupancy/internal/domain"
)

// record is one JSON line of a historic export.
type record struct {
	Kind            string                `json:"kind"`
	EstablishmentID string                `json:"establishmentId"`
	StartDate       string                `json:"startDate"`
	EndDate         string                `json:"endDate"`
	Payload         json.RawMessage       `json:"payload"`
	Notes           *string               `json:"notes"`
	Establishment   *domain.Establishment `json:"establishment"`
}

type seeder interface {
	Upsert(ctx context.Context, e domain.Establishment) error
}

type stats struct {
	Imported  int64
	Conflicts int64
	Failed    int64
}

type importer struct {
	svc     *app.QuestionnaireService
	seed    seeder // nil disables establishment seeding
	workers int
	as      domain.Principal
}

func (r record) input() (domain.SubmitInput, error) {
	kind, err := domain.ParseKind(r.Kind)
	if err != nil {
		return domain.SubmitInput{}, err
	}
	start, err := parseDay(r.StartDate)
	if err != nil {
		return domain.SubmitInput{}, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseDay(r.EndDate)
	if err != nil {
		return domain.SubmitInput{}, fmt.Errorf("endDate: %w", err)
	}
	return domain.SubmitInput{
		Kind:            kind,
		EstablishmentID: r.EstablishmentID,
		StartDate:       start,
		EndDate:         end,
		Payload:         r.Payload,
		Notes:           r.Notes,
	}, nil
}

func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// run submits every line of in. Conflicts are logged and skipped; other
// failures are counted and do not stop the import.
func (im *importer) run(ctx context.Context, in io.Reader) (stats, error) {
	var st stats
	sem := semaphore.NewWeighted(int64(im.workers))
	var wg sync.WaitGroup

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("skip malformed line")
			atomic.AddInt64(&st.Failed, 1)
			continue
		}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return st, err
		}
		wg.Add(1)
		go func(n int, rec record) {
			defer wg.Done()
			defer sem.Release(1)
			im.one(ctx, n, rec, &st)
		}(lineNo, rec)
	}
	wg.Wait()
	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("read input: %w", err)
	}
	return st, nil
}

func (im *importer) one(ctx context.Context, n int, rec record, st *stats) {
	in, err := rec.input()
	if err != nil {
		log.Warn().Int("line", n).Err(err).Msg("skip invalid line")
		atomic.AddInt64(&st.Failed, 1)
		return
	}
	if im.seed != nil && rec.Establishment != nil {
		e := *rec.Establishment
		e.ID, e.Kind = in.EstablishmentID, in.Kind
		if err := im.seed.Upsert(ctx, e); err != nil {
			log.Warn().Int("line", n).Err(err).Msg("seed establishment failed")
			atomic.AddInt64(&st.Failed, 1)
			return
		}
	}

	q, err := im.svc.Submit(ctx, im.as, in)
	switch {
	case err == nil:
		atomic.AddInt64(&st.Imported, 1)
		log.Debug().Int("line", n).Str("id", q.ID).Str("week", q.Week.String()).Msg("imported")
	case errors.Is(err, domain.ErrConflict):
		atomic.AddInt64(&st.Conflicts, 1)
		log.Info().Int("line", n).Err(err).Msg("skip existing week")
	default:
		atomic.AddInt64(&st.Failed, 1)
		log.Warn().Int("line", n).Err(err).Msg("import failed")
	}
}
