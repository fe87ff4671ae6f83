package auth

import (
	"slices"
	"strings"
)

// Route path constants
const (
	RouteLogin          = "/login"
	RouteDashboard      = "/dashboard"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteTest           = "/test"
	RouteBookings       = "/dashboard/bookings"
	RouteEmailReports   = "/dashboard/reports/email"
)

// Routes is fixed configuration for the route guard.
type Routes struct {
	Login   string
	Default string
	Public  []string
}

func DefaultRoutes() Routes {
	return Routes{
		Login:   RouteLogin,
		Default: RouteDashboard,
		Public:  []string{RouteLogin, RouteForgotPassword, RouteResetPassword, RouteTest},
	}
}

func (r Routes) IsPublic(path string) bool {
	return slices.Contains(r.Public, normalizePath(path))
}

// Guard decides whether path may be shown in state. It returns the redirect
// target and true when navigation must be redirected.
func Guard(state State, path string, routes Routes) (string, bool) {
	path = normalizePath(path)
	switch state {
	case StateAnonymous:
		if !routes.IsPublic(path) {
			return routes.Login, true
		}
	case StateAuthenticated:
		if path == routes.Login {
			return routes.Default, true
		}
	}
	return "", false
}

// normalizePath drops the query, fragment and any trailing slash.
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}
