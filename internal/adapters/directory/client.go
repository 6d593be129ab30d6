// Package directory resolves establishments from the listings service over HTTP.
package directory

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tourism_occupancy/internal/adapters/observability"
	"tourism_occupancy/internal/domain"
)

type Client struct {
	base       string
	hc         *http.Client
	key        string
	rl         *rate.Limiter
	maxRetries int
}

// New builds a directory client. maxRetries 0 means a single attempt per lookup.
func New(base, key string, rps, maxRetries int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("directory base URL is required")
	}
	if rps <= 0 {
		rps = 10
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		base:       strings.TrimRight(base, "/"),
		hc:         &http.Client{Timeout: 10 * time.Second},
		key:        key,
		rl:         rate.NewLimiter(rate.Limit(rps), rps),
		maxRetries: maxRetries,
	}, nil
}

// FindByID implements domain.EstablishmentDirectory.
func (c *Client) FindByID(ctx context.Context, kind domain.Kind, id string) (domain.Establishment, error) {
	u := fmt.Sprintf("%s/%s/%s", c.base, url.PathEscape(string(kind)), url.PathEscape(id))
	var raw map[string]any
	start := time.Now()
	status, err := c.get(ctx, u, &raw)
	observability.ObserveDirectory(kind, status, time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Establishment{}, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return domain.Establishment{}, fmt.Errorf("directory %s %s: %w", kind, id, err)
	}
	e := mapEstablishment(raw)
	e.ID, e.Kind = id, kind
	return e, nil
}

// ---- Internals ----

var (
	ErrUnauthorized = errors.New("directory: unauthorized")
	ErrForbidden    = errors.New("directory: forbidden")
)

// get performs a GET with client-side rate limiting and JSON decode into out.
// 429 and transient 5xx are retried up to maxRetries times, honoring Retry-After.
// The returned status is 0 when no response was received.
func (c *Client) get(ctx context.Context, u string, out any) (int, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, err
	}

	var lastErr error
	status := 0
	for i := 0; i <= c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return 0, err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "tourism-occupancy/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			lastErr = err
			if i < c.maxRetries && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			return 0, lastErr
		}
		status = resp.StatusCode

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return status, err

		case http.StatusNotFound:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return status, domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return status, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return status, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < c.maxRetries && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return status, ctx.Err()
			}
			return status, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return status, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return status, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
