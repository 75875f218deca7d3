// Package session resolves who is signed in and gates navigation on it.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

const (
	HomeRoute  = "/"
	LoginRoute = "/login"

	DefaultRetryDelay = 2000 * time.Millisecond
)

// Transport is the part of the API the gate talks to.
type Transport interface {
	Identity(ctx context.Context) (model.Identity, error)
	Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error)
	Logout(ctx context.Context) error
	SetToken(token string)
	// ResetSession forgets the bearer token and session cookies.
	ResetSession()
}

// Navigator moves between routes. replace drops the current history entry.
type Navigator interface {
	Navigate(route string, replace bool)
}

// Outcome of one identity probe.
type Outcome int

const (
	OutcomeSignedIn Outcome = iota
	OutcomeSignedOut
	OutcomeIndeterminate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSignedIn:
		return "signed_in"
	case OutcomeSignedOut:
		return "signed_out"
	default:
		return "indeterminate"
	}
}

type ProbeResult struct {
	Outcome  Outcome
	Identity model.Identity
	Err      error
}

// LoginOutcome of one login attempt.
type LoginOutcome int

const (
	LoginSuccess LoginOutcome = iota
	LoginInvalidCredential
	LoginNotFound
	LoginFatal
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "success"
	case LoginInvalidCredential:
		return "invalid_credential"
	case LoginNotFound:
		return "not_found"
	default:
		return "fatal"
	}
}

type Config struct {
	RetryDelay time.Duration
}

// Gate owns the session. Only its methods change the state.
type Gate struct {
	api        Transport
	nav        Navigator
	notifier   notify.Notifier
	tokens     TokenStore
	log        *logger.Logger
	metrics    *metrics.Metrics
	retryDelay time.Duration

	// runMu serializes probe loops so retries never overlap.
	runMu sync.Mutex

	mu       sync.RWMutex
	state    model.LoadState
	identity model.Identity
	subs     map[int]chan model.LoadState
	nextSub  int
}

func NewGate(api Transport, nav Navigator, notifier notify.Notifier, tokens TokenStore, log *logger.Logger, m *metrics.Metrics, cfg Config) *Gate {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if tokens == nil {
		tokens = NewMemoryStore()
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Gate{
		api:        api,
		nav:        nav,
		notifier:   notifier,
		tokens:     tokens,
		log:        log.With("component", "session"),
		metrics:    m,
		retryDelay: cfg.RetryDelay,
		state:      model.Loading,
		subs:       make(map[int]chan model.LoadState),
	}
}

func (g *Gate) State() model.LoadState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Identity returns the signed-in identity.
func (g *Gate) Identity() (model.Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.identity, g.state == model.SignedIn
}

// CheckPermission reports whether the signed-in role holds p. It never
// blocks on I/O and is false while not signed in.
func (g *Gate) CheckPermission(p rbac.Permission) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != model.SignedIn {
		return false
	}
	return rbac.Check(g.identity.Role, p)
}

// Subscribe returns a channel of state changes and a function that ends the
// subscription. Slow subscribers miss intermediate states.
func (g *Gate) Subscribe() (<-chan model.LoadState, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextSub
	g.nextSub++
	ch := make(chan model.LoadState, 8)
	g.subs[id] = ch
	return ch, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if c, ok := g.subs[id]; ok {
			delete(g.subs, id)
			close(c)
		}
	}
}

// transition must be called with mu held.
func (g *Gate) transition(to model.LoadState, id model.Identity) {
	from := g.state
	g.state = to
	g.identity = id
	if from == to {
		return
	}
	g.metrics.SessionEvents.WithLabelValues(to.String()).Inc()
	g.log.Debug("session transition", "from", from.String(), "to", to.String())
	for _, ch := range g.subs {
		select {
		case ch <- to:
		default:
		}
	}
}

func (g *Gate) setState(to model.LoadState, id model.Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transition(to, id)
}

// Probe asks the server who is signed in. A 401 is the normal signed-out
// answer; network failures and 5xx are indeterminate.
func (g *Gate) Probe(ctx context.Context) ProbeResult {
	g.metrics.ProbeAttempts.Inc()
	id, err := g.api.Identity(ctx)
	switch {
	case err == nil:
		return ProbeResult{Outcome: OutcomeSignedIn, Identity: id}
	case apperrors.Classify(err) == apperrors.ClassUnauthorized:
		return ProbeResult{Outcome: OutcomeSignedOut, Err: err}
	case apperrors.IsTransient(err):
		return ProbeResult{Outcome: OutcomeIndeterminate, Err: err}
	default:
		// 403/404 and friends: the server answered, but not with an identity.
		return ProbeResult{Outcome: OutcomeSignedOut, Err: err}
	}
}

// Boot restores a stored token and resolves the session.
func (g *Gate) Boot(ctx context.Context) (model.LoadState, error) {
	tok, err := g.tokens.Load(ctx)
	switch {
	case err == nil:
		g.api.SetToken(tok)
	case errors.Is(err, ErrNoToken):
	default:
		g.log.Error(err, "failed to load stored token")
	}
	return g.Run(ctx)
}

// Run probes until the session resolves, waiting RetryDelay after each
// indeterminate probe. It retries without bound; only ctx stops it.
func (g *Gate) Run(ctx context.Context) (model.LoadState, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	g.setState(model.Loading, model.Identity{})
	for attempt := 1; ; attempt++ {
		res := g.Probe(ctx)
		switch res.Outcome {
		case OutcomeSignedIn:
			g.setState(model.SignedIn, res.Identity)
			g.log.Info("signed in", "subject_id", res.Identity.SubjectID, "role", res.Identity.Role)
			return model.SignedIn, nil
		case OutcomeSignedOut:
			g.setState(model.SignedOut, model.Identity{})
			return model.SignedOut, nil
		}

		if ctx.Err() != nil {
			return model.Loading, ctx.Err()
		}
		g.metrics.ProbeRetries.Inc()
		g.log.Warn("identity probe failed, retrying", "attempt", attempt, "delay", g.retryDelay.String(), "error", res.Err.Error())

		timer := time.NewTimer(g.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.Loading, ctx.Err()
		case <-timer.C:
		}
	}
}

// Login signs in and, on success, resolves the identity and goes home with
// the login screen replaced in history.
func (g *Gate) Login(ctx context.Context, creds model.Credentials) (LoginOutcome, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || strings.TrimSpace(creds.Password) == "" {
		err := apperrors.Precondition("Email and password are required")
		g.notifier.Notify(notify.Warning, err.Message)
		return LoginInvalidCredential, err
	}

	g.setState(model.Loading, model.Identity{})
	resp, err := g.api.Login(ctx, creds)
	if err != nil {
		g.setState(model.SignedOut, model.Identity{})
		outcome := loginOutcome(err)
		switch outcome {
		case LoginInvalidCredential:
			g.notifier.Notify(notify.Error, "Invalid email or password")
		case LoginNotFound:
			g.notifier.Notify(notify.Error, "No account with this email")
		default:
			g.notifier.Notify(notify.Error, apperrors.UserMessage(err))
		}
		g.log.Info("login failed", "outcome", outcome.String())
		return outcome, err
	}

	if resp.Token != "" {
		g.api.SetToken(resp.Token)
		if err := g.tokens.Save(ctx, resp.Token, TokenExpiry(resp.Token)); err != nil {
			g.log.Error(err, "failed to persist token")
		}
	}

	state, err := g.Run(ctx)
	if err != nil {
		return LoginFatal, err
	}
	if state != model.SignedIn {
		err := apperrors.Internal(errors.New("session was not established after login"))
		g.notifier.Notify(notify.Error, apperrors.UserMessage(err))
		return LoginFatal, err
	}
	g.nav.Navigate(HomeRoute, true)
	return LoginSuccess, nil
}

func loginOutcome(err error) LoginOutcome {
	switch apperrors.StatusOf(err) {
	case 401:
		return LoginInvalidCredential
	case 404:
		return LoginNotFound
	default:
		return LoginFatal
	}
}

// Logout ends the session locally even when the server call fails.
func (g *Gate) Logout(ctx context.Context) {
	if err := g.api.Logout(ctx); err != nil {
		g.log.Error(err, "logout request failed")
	}
	g.endSession(ctx)
	g.log.Info("signed out")
}

// HandleUnauthorized reacts to a 401 from any endpoint other than the probe
// and login: a signed-in session has expired. Of several concurrent 401s only
// the first ends the session and notifies.
func (g *Gate) HandleUnauthorized(endpoint string) {
	g.mu.Lock()
	if g.state != model.SignedIn {
		g.mu.Unlock()
		return
	}
	g.transition(model.SignedOut, model.Identity{})
	g.mu.Unlock()

	g.log.Warn("session expired", "endpoint", endpoint)
	g.clearSession(context.Background())
	g.notifier.Notify(notify.Warning, "Your session has expired, please sign in again")
}

func (g *Gate) endSession(ctx context.Context) {
	g.setState(model.SignedOut, model.Identity{})
	g.clearSession(ctx)
}

// clearSession drops the credentials and shows the login route.
func (g *Gate) clearSession(ctx context.Context) {
	g.api.ResetSession()
	if err := g.tokens.Clear(ctx); err != nil {
		g.log.Error(err, "failed to clear stored token")
	}
	g.nav.Navigate(LoginRoute, true)
}
