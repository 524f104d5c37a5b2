package finserve

import (
	"context"
	"sync"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/internal/audit"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/onboarding"
	"github.com/MrEthical07/finserve/portfolio"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/session"
	"github.com/MrEthical07/finserve/storage"
	"github.com/MrEthical07/finserve/validation"
	"go.uber.org/zap"
)

// Client is one running FinServe client: a session, the dashboard cache and
// the wizards opened from it, all sharing one backend and one store.
type Client struct {
	config     Config
	store      storage.Local
	backend    *backend.Service
	session    *session.Manager
	portfolio  *portfolio.Tracker
	validator  *validation.Engine
	logger     *zap.Logger
	rootLogger *zap.Logger
	ownsLogger bool
	metrics    *metrics.Metrics
	audit      *audit.Dispatcher

	mu      sync.Mutex
	started bool
	closed  bool
	wizards []*onboarding.Wizard
}

// Start restores a persisted session. A broken or stale token never fails
// Start; it only leaves the session Anonymous. If ctx ends before the restore
// resolves, Start returns ctx.Err() and may be called again.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.session.Restore(ctx)
	if c.session.State() == session.Uninitialized {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrClientClosed
	}
	c.logger.Debug("client started", zap.String("session_state", c.session.State().String()))
	return nil
}

func (c *Client) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if !c.started {
		return ErrClientNotReady
	}
	return nil
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// Session exposes the underlying session manager.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Backend exposes the mock service the client talks to.
func (c *Client) Backend() *backend.Service {
	return c.backend
}

// Portfolio exposes the dashboard cache.
func (c *Client) Portfolio() *portfolio.Tracker {
	return c.portfolio
}

// Store exposes the local storage shared by session and backend.
func (c *Client) Store() storage.Local {
	return c.store
}

// User returns the signed-in user, if any.
func (c *Client) User() (profile.UserProfile, bool) {
	return c.session.User()
}

// IsAuthenticated reports whether a user is signed in.
func (c *Client) IsAuthenticated() bool {
	return c.session.IsAuthenticated()
}

// Login signs in. Backend errors such as ErrInvalidCredentials are returned
// unchanged for the caller to display.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.session.Login(ctx, email, password)
}

// Logout always ends the local session; the backend call is best-effort.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.session.Logout(ctx)
}

// UpdateProfile merges patch into the signed-in user and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, patch profile.Patch) (profile.UserProfile, error) {
	if err := c.ready(); err != nil {
		return profile.UserProfile{}, err
	}
	if err := c.session.UpdateProfile(ctx, patch); err != nil {
		return profile.UserProfile{}, err
	}
	user, _ := c.session.User()
	return user, nil
}

// Validate runs one onboarding step schema against rec.
func (c *Client) Validate(ctx context.Context, step validation.Step, rec validation.Record) (validation.Result, error) {
	return c.validator.Validate(ctx, step, rec)
}

// NewOnboarding opens a wizard whose successful submission signs the new
// account in on this client's session.
func (c *Client) NewOnboarding() (*onboarding.Wizard, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	w, err := onboarding.New(onboarding.Options{
		Registrar: c.session,
		Validator: c.validator,
		Logger:    c.rootLogger,
		Metrics:   c.metrics,
		Audit:     c.audit,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		w.Close()
		return nil, ErrClientClosed
	}
	c.wizards = append(c.wizards, w)
	return w, nil
}

// FinancialData returns the dashboard snapshot, served from cache while
// fresh. Failures wrap ErrDataFetch and are safe to retry.
func (c *Client) FinancialData(ctx context.Context) (backend.Snapshot, error) {
	if err := c.ready(); err != nil {
		return backend.Snapshot{}, err
	}
	return c.portfolio.Load(ctx)
}

// RefreshFinancialData replaces the cached snapshot with a recomputed one.
// On failure the last good snapshot stays cached.
func (c *Client) RefreshFinancialData(ctx context.Context) (backend.Snapshot, error) {
	if err := c.ready(); err != nil {
		return backend.Snapshot{}, err
	}
	return c.portfolio.Refresh(ctx)
}

// Close detaches the session, the dashboard cache and every open wizard so
// late results are discarded, then drains the audit dispatcher.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wizards := c.wizards
	c.wizards = nil
	c.mu.Unlock()

	for _, w := range wizards {
		w.Close()
	}
	c.session.Close()
	c.portfolio.Close()
	c.audit.Close()
	if c.ownsLogger {
		_ = c.rootLogger.Sync()
	}
}
