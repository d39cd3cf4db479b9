package server

import (
	"net/http"
	"strings"

	"github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
)

// RequireSession is the per-request gatekeeper. It extracts the bearer token,
// resolves it through the session cache only, and attaches the principal's
// identity and tenant connection routing to the request context. Any failure
// terminates the request; nothing is retried.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionToken, err := bearerToken(r)
			if err != nil {
				s.metrics.ValidateResults.WithLabelValues("missing").Inc()
				writeError(w, http.StatusUnauthorized, "missing_token", "Missing or malformed Authorization header")
				return
			}

			session, err := s.auth.Validate(r.Context(), sessionToken)
			if errors.Is(err, errors.ErrSessionNotFound) {
				s.metrics.ValidateResults.WithLabelValues("miss").Inc()
				writeError(w, http.StatusUnauthorized, "invalid_session", "Unknown or expired session token")
				return
			}
			if err != nil {
				s.metrics.ValidateResults.WithLabelValues("error").Inc()
				writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Session store unreachable")
				return
			}
			s.metrics.ValidateResults.WithLabelValues("hit").Inc()

			ctx := withIdentity(r.Context(), Identity{
				PrincipalID: session.PrincipalID,
				Kind:        session.PrincipalKind,
				Username:    session.Username,
			})
			ctx = withTenantConnection(ctx, TenantConnectionDescriptor{
				Host:     session.TenantHost,
				DBName:   session.TenantDBName,
				User:     session.TenantUser,
				Password: session.TenantPassword,
			})

			next(w, r.WithContext(ctx))
		}
	}
}

// RequireKind restricts a route to the given principal kinds. Chain after
// RequireSession so the identity is present.
func (s *Server) RequireKind(kinds ...principals.Kind) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid_session", "No authenticated principal")
				return
			}
			for _, kind := range kinds {
				if identity.Kind == kind {
					next(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "forbidden", "Principal kind not permitted for this operation")
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errors.ErrMissingToken
	}
	return parts[1], nil
}
