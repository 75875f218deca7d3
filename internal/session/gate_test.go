package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// fakeAPI answers identity probes from a queue of results.
type fakeAPI struct {
	mu        sync.Mutex
	probes    []error
	identity  model.Identity
	probeHits int
	loginErr  error
	loginResp model.LoginResponse
	logins    int
	logouts   int
	token     string
	resets    int
}

func (f *fakeAPI) Identity(context.Context) (model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeHits++
	if len(f.probes) == 0 {
		return f.identity, nil
	}
	err := f.probes[0]
	f.probes = f.probes[1:]
	if err != nil {
		return model.Identity{}, err
	}
	return f.identity, nil
}

func (f *fakeAPI) Login(context.Context, model.Credentials) (model.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return errors.New("network down")
}

func (f *fakeAPI) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeAPI) ResetSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.resets++
}

func (f *fakeAPI) hits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeHits
}

type navigation struct {
	route   string
	replace bool
}

type recordingNav struct {
	mu   sync.Mutex
	navs []navigation
}

func (n *recordingNav) Navigate(route string, replace bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navs = append(n.navs, navigation{route: route, replace: replace})
}

func (n *recordingNav) last() navigation {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.navs) == 0 {
		return navigation{}
	}
	return n.navs[len(n.navs)-1]
}

var (
	unauthorized = apperrors.FromStatus(401, "")
	serverDown   = apperrors.FromStatus(503, "")
)

func newTestGate(api *fakeAPI) (*Gate, *recordingNav, *notify.Recorder, *MemoryStore) {
	nav := &recordingNav{}
	rec := &notify.Recorder{}
	store := NewMemoryStore()
	g := NewGate(api, nav, rec, store, nil, nil, Config{RetryDelay: 5 * time.Millisecond})
	return g, nav, rec, store
}

func TestProbeOutcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"ok", nil, OutcomeSignedIn},
		{"unauthorized", unauthorized, OutcomeSignedOut},
		{"server error", serverDown, OutcomeIndeterminate},
		{"network error", apperrors.Transport(errors.New("connection refused")), OutcomeIndeterminate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{probes: []error{tt.err}, identity: model.Identity{SubjectID: 1, Role: rbac.RoleAdmin}}
			g, _, _, _ := newTestGate(api)
			assert.Equal(t, tt.want, g.Probe(context.Background()).Outcome)
		})
	}
}

func TestRunUnauthorizedIsSignedOutWithoutNotice(t *testing.T) {
	api := &fakeAPI{probes: []error{unauthorized}}
	g, nav, rec, _ := newTestGate(api)

	state, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SignedOut, state)
	assert.Equal(t, model.SignedOut, g.State())
	assert.Empty(t, rec.All())
	assert.Equal(t, navigation{}, nav.last())
}

func TestRunRetriesIndeterminate(t *testing.T) {
	api := &fakeAPI{
		probes:   []error{serverDown, apperrors.Transport(errors.New("reset")), nil},
		identity: model.Identity{SubjectID: 7, Role: rbac.RoleUser},
	}
	g, _, _, _ := newTestGate(api)

	state, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SignedIn, state)
	assert.Equal(t, 3, api.hits())

	id, ok := g.Identity()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id.SubjectID)
}

func TestRunStopsOnCancel(t *testing.T) {
	errs := make([]error, 1000)
	for i := range errs {
		errs[i] = serverDown
	}
	api := &fakeAPI{probes: errs}
	g, _, _, _ := newTestGate(api)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	state, err := g.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, model.Loading, state)
	assert.Equal(t, model.Loading, g.State())
	assert.GreaterOrEqual(t, api.hits(), 1)
}

func TestBootRestoresStoredToken(t *testing.T) {
	api := &fakeAPI{identity: model.Identity{SubjectID: 1, Role: rbac.RoleRoot}}
	g, _, _, store := newTestGate(api)
	require.NoError(t, store.Save(context.Background(), "stored", time.Time{}))

	state, err := g.Boot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SignedIn, state)
	assert.Equal(t, "stored", api.token)
}

func TestLoginEmptyCredentials(t *testing.T) {
	api := &fakeAPI{}
	g, _, rec, _ := newTestGate(api)

	outcome, err := g.Login(context.Background(), model.Credentials{Email: "  ", Password: "x"})
	assert.Equal(t, LoginInvalidCredential, outcome)
	assert.Equal(t, apperrors.ClassPrecondition, apperrors.Classify(err))
	assert.Equal(t, 0, api.logins)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Level)
}

func TestLoginOutcomes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want LoginOutcome
	}{
		{"invalid", apperrors.FromStatus(401, "bad password"), LoginInvalidCredential},
		{"unknown email", apperrors.FromStatus(404, ""), LoginNotFound},
		{"server", serverDown, LoginFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{loginErr: tt.err}
			g, nav, rec, _ := newTestGate(api)

			outcome, err := g.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "secret"})
			assert.Error(t, err)
			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, model.SignedOut, g.State())
			assert.Len(t, rec.All(), 1)
			assert.Equal(t, navigation{}, nav.last())
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	api := &fakeAPI{
		loginResp: model.LoginResponse{Token: "tok"},
		identity:  model.Identity{SubjectID: 3, Role: rbac.RoleAdmin},
	}
	g, nav, _, store := newTestGate(api)

	outcome, err := g.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, LoginSuccess, outcome)
	assert.Equal(t, model.SignedIn, g.State())
	assert.Equal(t, navigation{route: HomeRoute, replace: true}, nav.last())
	assert.Equal(t, "tok", api.token)

	tok, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestLogoutIsBestEffort(t *testing.T) {
	api := &fakeAPI{identity: model.Identity{SubjectID: 1, Role: rbac.RoleUser}}
	g, nav, _, store := newTestGate(api)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "tok", time.Time{}))
	_, err := g.Run(ctx)
	require.NoError(t, err)

	g.Logout(ctx)
	assert.Equal(t, 1, api.logouts)
	assert.Equal(t, 1, api.resets)
	assert.Equal(t, model.SignedOut, g.State())
	assert.Equal(t, navigation{route: LoginRoute, replace: true}, nav.last())
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestHandleUnauthorizedWhileSignedIn(t *testing.T) {
	api := &fakeAPI{identity: model.Identity{SubjectID: 1, Role: rbac.RoleAdmin}}
	g, nav, rec, _ := newTestGate(api)
	_, err := g.Run(context.Background())
	require.NoError(t, err)

	g.HandleUnauthorized("/patients")
	assert.Equal(t, model.SignedOut, g.State())
	assert.Equal(t, navigation{route: LoginRoute, replace: true}, nav.last())
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Level)

	// A second 401 after sign-out is ignored.
	g.HandleUnauthorized("/patients")
	assert.Len(t, rec.All(), 1)
}

func TestConcurrentUnauthorizedEndsSessionOnce(t *testing.T) {
	api := &fakeAPI{identity: model.Identity{SubjectID: 1, Role: rbac.RoleAdmin}}
	g, nav, rec, _ := newTestGate(api)
	_, err := g.Run(context.Background())
	require.NoError(t, err)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			g.HandleUnauthorized("/appointments")
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, model.SignedOut, g.State())
	assert.Len(t, rec.All(), 1)

	nav.mu.Lock()
	logins := 0
	for _, n := range nav.navs {
		if n.route == LoginRoute {
			logins++
		}
	}
	nav.mu.Unlock()
	assert.Equal(t, 1, logins)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 1, api.resets)
}

func TestCheckPermission(t *testing.T) {
	api := &fakeAPI{identity: model.Identity{SubjectID: 1, Role: rbac.RoleAdmin}}
	g, _, _, _ := newTestGate(api)
	assert.False(t, g.CheckPermission(rbac.ReadPatient))

	_, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, g.CheckPermission(rbac.ReadPatient))
	assert.True(t, g.CheckPermission(rbac.ApproveAppointment))
	assert.False(t, g.CheckPermission(rbac.CreateDoctor))
}

func TestSubscribe(t *testing.T) {
	api := &fakeAPI{probes: []error{unauthorized}}
	g, _, _, _ := newTestGate(api)
	ch, cancel := g.Subscribe()
	defer cancel()

	_, err := g.Run(context.Background())
	require.NoError(t, err)
	select {
	case s := <-ch:
		assert.Equal(t, model.SignedOut, s)
	case <-time.After(time.Second):
		t.Fatal("no state change delivered")
	}
}
