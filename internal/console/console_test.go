package console

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
)

type staticGuard struct {
	state model.LoadState
	role  string
}

func (g staticGuard) State() model.LoadState { return g.state }

func (g staticGuard) CheckPermission(p rbac.Permission) bool {
	return g.state == model.SignedIn && rbac.Check(g.role, p)
}

func paths(routes []Route) []string {
	out := make([]string, 0, len(routes))
	for _, r := range routes {
		out = append(out, r.Path)
	}
	return out
}

func TestRoutesByState(t *testing.T) {
	assert.Equal(t, []string{SplashRoute}, paths(Routes(staticGuard{state: model.Loading})))
	assert.Equal(t, []string{LoginRoute}, paths(Routes(staticGuard{state: model.SignedOut})))

	user := paths(Routes(staticGuard{state: model.SignedIn, role: rbac.RoleUser}))
	assert.Contains(t, user, PatientsRoute)
	assert.NotContains(t, user, DoctorsRoute)

	root := paths(Routes(staticGuard{state: model.SignedIn, role: rbac.RoleRoot}))
	assert.Equal(t, []string{HomeRoute, DoctorsRoute, PatientsRoute, AppointmentsRoute, QuestionsRoute, ContentsRoute}, root)
}

func TestResolve(t *testing.T) {
	user := staticGuard{state: model.SignedIn, role: rbac.RoleUser}
	assert.Equal(t, PatientsRoute, Resolve(user, PatientsRoute))
	assert.Equal(t, HomeRoute, Resolve(user, DoctorsRoute))
	assert.Equal(t, LoginRoute, Resolve(staticGuard{state: model.SignedOut}, PatientsRoute))
}

func TestHistoryReplaceDropsEntry(t *testing.T) {
	h := NewHistory(LoginRoute)
	var moves []string
	h.OnNavigate(func(r string) { moves = append(moves, r) })

	h.Navigate(HomeRoute, true)
	assert.Equal(t, HomeRoute, h.Current())
	assert.Equal(t, 1, h.Len())

	_, ok := h.Back()
	assert.False(t, ok)
	assert.Equal(t, HomeRoute, h.Current())

	h.Navigate(PatientsRoute, false)
	cur, ok := h.Back()
	assert.True(t, ok)
	assert.Equal(t, HomeRoute, cur)
	assert.Equal(t, []string{HomeRoute, PatientsRoute, HomeRoute}, moves)
}
