package server

import "github.com/fieldcollect/go-session-server/principals"

func (s *Server) initRoutes() {
	requireSession := s.RequireSession()
	ownerOnly := s.RequireKind(principals.KindOwner)

	s.RegisterRouteFunc("POST "+RouteLogin, s.LoginHandler())
	s.RegisterRouteFunc("POST "+RouteLogout, s.LogoutHandler())
	s.RegisterRouteFunc("GET "+RouteSessions, requireSession(ownerOnly(s.SessionsHandler())))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}
