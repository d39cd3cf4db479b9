package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
)

const contentTypeJSON = "application/json; charset=utf-8"

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	RecoveryCode string `json:"recovery_code,omitempty"`
}

type loginResponse struct {
	Token           string          `json:"token"`
	PrincipalID     int64           `json:"principal_id"`
	Kind            principals.Kind `json:"kind"`
	TenantHost      string          `json:"tenant_host"`
	TenantDBName    string          `json:"tenant_db_name"`
	TenantUser      string          `json:"tenant_user"`
	ExportTriggered bool            `json:"export_triggered,omitempty"`
}

type logoutRequest struct {
	Token string `json:"token"`
	Kind  string `json:"kind"`
}

// LoginHandler authenticates a credential and opens a session. The response
// for collectors additionally reports that the tenant dataset export was
// triggered.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
			return
		}

		result, err := s.auth.Login(r.Context(), req.Username, req.Password, req.RecoveryCode)
		if errors.Is(err, errors.ErrAuthFailed) {
			s.metrics.LoginAttempts.WithLabelValues("unknown", "denied").Inc()
			writeError(w, http.StatusUnauthorized, "auth_failed", "Invalid credentials")
			return
		}
		if err != nil {
			s.metrics.LoginAttempts.WithLabelValues("unknown", "error").Inc()
			log.Error().Err(err).Str("username", req.Username).Msg("login failed")
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Login could not be completed")
			return
		}

		s.metrics.LoginAttempts.WithLabelValues(string(result.Kind), "ok").Inc()
		log.Info().Str("username", result.Username).Str("kind", string(result.Kind)).Msg("login")

		writeJSON(w, http.StatusOK, loginResponse{
			Token:           result.Token,
			PrincipalID:     result.PrincipalID,
			Kind:            result.Kind,
			TenantHost:      result.TenantHost,
			TenantDBName:    result.TenantDBName,
			TenantUser:      result.TenantUser,
			ExportTriggered: result.ExportTriggered,
		})
	}
}

// LogoutHandler closes a session. Reported successful even when the directory
// clear fails after the cache delete; the cache is authoritative for reads.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req logoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
			return
		}

		kind, err := principals.Parse(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown principal kind")
			return
		}

		if err := s.auth.Logout(r.Context(), req.Token, kind); err != nil {
			log.Error().Err(err).Msg("logout failed")
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Logout could not be completed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionsHandler enumerates cached sessions for diagnostics. Owner only;
// never part of the request hot path.
func (s *Server) SessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionList, err := s.auth.ListSessions(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("session listing failed")
			writeError(w, http.StatusServiceUnavailable, "store_unavailable", "Session store unreachable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(sessionList),
			"sessions": sessionList,
		})
	}
}

// HealthHandler reports liveness.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}
