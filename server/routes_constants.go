package server

// Route paths
const (
	RouteLogin    = "/auth/login"
	RouteLogout   = "/auth/logout"
	RouteSessions = "/auth/sessions"
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"
)
