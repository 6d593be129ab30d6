package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/adapters/observability"
	"tourism_occupancy/internal/domain"
)

// AuthConfig verifies bearer tokens issued by the identity service.
type AuthConfig struct {
	Secret          []byte
	SuperAdminEmail string
	// Revocations may be nil, in which case no deny-list is consulted.
	Revocations domain.RevocationList
}

type tokenClaims struct {
	UserID     string `json:"id"`
	Email      string `json:"email"`
	SuperAdmin bool   `json:"is_super_admin"`
	jwt.RegisteredClaims
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// Auth resolves the caller once per request. Routes behind it can rely on
// PrincipalFrom returning a principal with a user id.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				observability.ObserveToken("missing")
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "a bearer token is required")
				return
			}

			var claims tokenClaims
			_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return cfg.Secret, nil })
			if err != nil {
				observability.ObserveToken("invalid")
				log.Debug().Err(err).Msg("token rejected")
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
				return
			}

			p := domain.Principal{UserID: claims.Subject, Email: claims.Email}
			if p.UserID == "" {
				p.UserID = claims.UserID
			}
			if p.UserID == "" {
				observability.ObserveToken("invalid")
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "token carries no user id")
				return
			}
			p.SuperAdmin = claims.SuperAdmin ||
				(cfg.SuperAdminEmail != "" && strings.EqualFold(p.Email, cfg.SuperAdminEmail))

			if cfg.Revocations != nil && claims.ID != "" {
				revoked, err := cfg.Revocations.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					// fail closed
					observability.ObserveToken("error")
					log.Error().Err(err).Str("jti", claims.ID).Msg("revocation check failed")
					writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not verify token")
					return
				}
				if revoked {
					observability.ObserveToken("revoked")
					writeProblem(w, http.StatusUnauthorized, "Unauthorized", "token has been revoked")
					return
				}
			}

			observability.ObserveToken("ok")
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireSuperAdmin guards analytical routes. It must run after Auth.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", "a bearer token is required")
			return
		}
		if !p.SuperAdmin {
			writeProblem(w, http.StatusForbidden, "Forbidden", "super administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
