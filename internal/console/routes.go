// Package console builds the route tree of the admin console from the
// session state.
package console

import (
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
)

const (
	SplashRoute       = "splash"
	LoginRoute        = "/login"
	HomeRoute         = "/"
	DoctorsRoute      = "/doctors"
	PatientsRoute     = "/patients"
	AppointmentsRoute = "/appointments"
	QuestionsRoute    = "/questions"
	ContentsRoute     = "/contents"
)

// Route is one reachable screen.
type Route struct {
	Path  string
	Title string
}

// Guard is what the route tree needs from the session.
type Guard interface {
	State() model.LoadState
	CheckPermission(p rbac.Permission) bool
}

type guardedRoute struct {
	Route
	perm rbac.Permission
}

var resourceRoutes = []guardedRoute{
	{Route{DoctorsRoute, "Doctors"}, rbac.CreateDoctor},
	{Route{PatientsRoute, "Patients"}, rbac.ReadPatient},
	{Route{AppointmentsRoute, "Appointments"}, rbac.ReadAppointment},
	{Route{QuestionsRoute, "Questions"}, rbac.ReadQuestion},
	{Route{ContentsRoute, "Contents"}, rbac.ReadContent},
}

// Routes returns the routes reachable in the current state. While loading
// only the splash screen exists; signed out only the login screen.
func Routes(g Guard) []Route {
	switch g.State() {
	case model.SignedIn:
		routes := []Route{{Path: HomeRoute, Title: "Home"}}
		for _, r := range resourceRoutes {
			if g.CheckPermission(r.perm) {
				routes = append(routes, r.Route)
			}
		}
		return routes
	case model.SignedOut:
		return []Route{{Path: LoginRoute, Title: "Sign in"}}
	default:
		return []Route{{Path: SplashRoute, Title: "Loading"}}
	}
}

// Allowed reports whether path is reachable in the current state.
func Allowed(g Guard, path string) bool {
	for _, r := range Routes(g) {
		if r.Path == path {
			return true
		}
	}
	return false
}

// Resolve returns path when it is reachable, otherwise the state's fallback
// route.
func Resolve(g Guard, path string) string {
	if Allowed(g, path) {
		return path
	}
	return Routes(g)[0].Path
}
