package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fieldcollect/go-session-server/auth"
	"github.com/fieldcollect/go-session-server/internal/config"
	"github.com/fieldcollect/go-session-server/internal/metrics"
)

// Server hosts the authentication surface: login, logout, the session gate
// and the diagnostic endpoints. Business routes are registered by downstream
// collaborators through RegisterRouteFunc, wrapped in RequireSession.
type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	auth    *auth.Orchestrator
	metrics *metrics.Metrics
}

func New(cfg config.Config, orchestrator *auth.Orchestrator, m *metrics.Metrics) (*Server, error) {
	if orchestrator == nil {
		return nil, errors.New("[server.New] orchestrator is required")
	}
	if m == nil {
		return nil, errors.New("[server.New] metrics is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  cfg,
		auth:    orchestrator,
		metrics: m,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		log.Info().Str("route", route).Msg("registered")
	}
}
