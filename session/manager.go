package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/internal/audit"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/storage"
	"go.uber.org/zap"
)

// Backend is the remote surface the manager drives.
type Backend interface {
	Authenticate(ctx context.Context, email, password string) (backend.AuthResult, error)
	Register(ctx context.Context, req backend.RegistrationRequest) (backend.AuthResult, error)
	GetCurrentUser(ctx context.Context) (profile.UserProfile, error)
	UpdateUser(ctx context.Context, patch profile.Patch) (profile.UserProfile, error)
	Logout(ctx context.Context) error
}

// State is the lifecycle position of a session.
type State uint8

const (
	Uninitialized State = iota
	Restoring
	Authenticated
	Anonymous
	Authenticating
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	default:
		return "unknown"
	}
}

// Options wires a Manager. Backend and Store are required.
type Options struct {
	Backend Backend
	Store   storage.Local
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Audit   audit.Emitter
}

// Manager is safe for concurrent use.
type Manager struct {
	backend Backend
	store   storage.Local
	logger  *zap.Logger
	metrics *metrics.Metrics
	audit   audit.Emitter

	mu         sync.Mutex
	state      State
	user       profile.UserProfile
	hasUser    bool
	token      string
	inflight   int
	busy       bool
	closed     bool
	epoch      uint64
	restoreErr error
}

// NewManager returns a Manager in the Uninitialized state. Call Restore
// before serving the user.
func NewManager(opts Options) (*Manager, error) {
	if opts.Backend == nil {
		return nil, errors.New("session backend required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Audit == nil {
		opts.Audit = audit.NoOpSink{}
	}
	return &Manager{
		backend: opts.Backend,
		store:   opts.Store,
		logger:  opts.Logger.Named("session"),
		metrics: opts.Metrics,
		audit:   opts.Audit,
		state:   Uninitialized,
	}, nil
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Loading reports whether any session call is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

// User returns a copy of the signed-in user.
func (m *Manager) User() (profile.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasUser {
		return profile.UserProfile{}, false
	}
	return m.user.Clone(), true
}

// IsAuthenticated reports whether a user is present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasUser
}

// Token returns the opaque token of the current session, or "".
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RestoreErr returns the cause of the last failed restore wrapped in
// ErrSessionRestore, or nil.
func (m *Manager) RestoreErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restoreErr
}

// Close detaches the manager. Calls still in flight complete against the
// backend but their results are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// begin reserves the auth slot. exclusive calls fail with ErrBusy when the
// slot is taken.
func (m *Manager) begin(exclusive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if exclusive {
		if m.busy {
			return ErrBusy
		}
		m.busy = true
	}
	m.inflight++
	return nil
}

// end must be called with m.mu held.
func (m *Manager) end(exclusive bool) {
	if exclusive {
		m.busy = false
	}
	m.inflight--
}

// setSession must be called with m.mu held.
func (m *Manager) setSession(user profile.UserProfile, token string) {
	m.user = user.Clone()
	m.hasUser = true
	m.token = token
	m.state = Authenticated
	m.epoch++
}

// clearSession must be called with m.mu held.
func (m *Manager) clearSession() {
	m.user = profile.UserProfile{}
	m.hasUser = false
	m.token = ""
	m.state = Anonymous
	m.epoch++
}

func (m *Manager) emit(ctx context.Context, event string, user profile.UserProfile, err error) {
	ev := audit.Event{
		EventType: event,
		UserID:    user.ID,
		Email:     user.Email,
		Success:   err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.audit.Emit(ctx, ev)
}

// Restore rebuilds the session from a persisted token. Once it settles on
// Authenticated or Anonymous later calls return immediately. Failures demote
// the session to Anonymous and are reported through RestoreErr, never
// returned. A restore abandoned because ctx ended leaves the manager
// Uninitialized so Restore can run again.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	if m.closed || m.state != Uninitialized {
		m.mu.Unlock()
		return
	}
	m.state = Restoring
	m.busy = true
	m.inflight++
	m.mu.Unlock()

	tok, ok, err := m.store.Get(ctx, storage.KeyToken)
	switch {
	case ctx.Err() != nil:
		m.abandonRestore(ctx.Err())
		return
	case err != nil:
		m.finishRestoreFailure(ctx, fmt.Errorf("read token: %w", err), false)
		return
	case !ok || tok == "":
		m.mu.Lock()
		m.end(true)
		if !m.closed {
			m.clearSession()
		}
		m.mu.Unlock()
		m.logger.Debug("no persisted token")
		return
	}

	user, err := m.backend.GetCurrentUser(ctx)
	if err == nil && user.IsZero() {
		err = errors.New("backend returned no user")
	}
	if err != nil {
		// A cancelled restore says nothing about the token itself.
		if ctx.Err() != nil {
			m.abandonRestore(ctx.Err())
			return
		}
		m.finishRestoreFailure(ctx, err, true)
		return
	}

	m.mu.Lock()
	m.end(true)
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.setSession(user, tok)
	m.restoreErr = nil
	m.mu.Unlock()

	m.metrics.Inc(metrics.SessionRestored)
	m.logger.Info("session restored", zap.String("user_id", user.ID))
	m.emit(ctx, audit.EventSessionRestored, user, nil)
}

func (m *Manager) abandonRestore(cause error) {
	m.mu.Lock()
	m.end(true)
	if !m.closed {
		m.state = Uninitialized
	}
	m.mu.Unlock()
	m.logger.Debug("session restore abandoned", zap.Error(cause))
}

func (m *Manager) finishRestoreFailure(ctx context.Context, cause error, discardToken bool) {
	if discardToken && !m.isClosed() {
		if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
			m.logger.Warn("discard persisted token failed", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.end(true)
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.clearSession()
	m.restoreErr = fmt.Errorf("%w: %v", ErrSessionRestore, cause)
	m.mu.Unlock()

	m.metrics.Inc(metrics.SessionRestoreFailure)
	m.logger.Warn("session restore failed", zap.Error(cause), zap.Bool("token_discarded", discardToken))
	m.emit(ctx, audit.EventSessionRestoreFailure, profile.UserProfile{}, cause)
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// persistToken writes tok unless the manager was closed while the backend
// call was outstanding.
func (m *Manager) persistToken(ctx context.Context, tok string) (bool, error) {
	if m.isClosed() {
		return false, nil
	}
	if err := m.store.Set(ctx, storage.KeyToken, tok); err != nil {
		return false, fmt.Errorf("persist token: %w", err)
	}
	return true, nil
}

// dropLateToken removes a token persisted by a call whose result was
// discarded by Close.
func (m *Manager) dropLateToken(ctx context.Context, persisted bool) {
	if !persisted {
		return
	}
	if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
		m.logger.Warn("clear late token failed", zap.Error(err))
	}
}

// Login authenticates and, on success, persists the token. A failed login
// changes nothing: a signed-in user stays signed in with the same token, an
// anonymous session stays anonymous. The backend error is returned unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	if err := m.begin(true); err != nil {
		if errors.Is(err, ErrBusy) {
			m.metrics.Inc(metrics.LoginBusy)
		}
		return err
	}
	m.mu.Lock()
	m.state = Authenticating
	m.mu.Unlock()

	res, err := m.backend.Authenticate(ctx, email, password)
	persisted := false
	if err == nil {
		persisted, err = m.persistToken(ctx, res.Token)
	}

	m.mu.Lock()
	m.end(true)
	if m.closed {
		m.mu.Unlock()
		m.dropLateToken(ctx, persisted)
		return ErrClosed
	}
	if err != nil {
		if m.hasUser {
			m.state = Authenticated
		} else {
			m.state = Anonymous
		}
		m.mu.Unlock()

		m.metrics.Inc(metrics.LoginFailure)
		m.logger.Info("login failed", zap.String("email", email), zap.Error(err))
		m.emit(ctx, audit.EventLoginFailure, profile.UserProfile{Email: email}, err)
		return err
	}
	m.setSession(res.User, res.Token)
	m.mu.Unlock()

	m.metrics.Inc(metrics.LoginSuccess)
	m.logger.Info("login succeeded", zap.String("user_id", res.User.ID))
	m.emit(ctx, audit.EventLoginSuccess, res.User, nil)
	return nil
}

// Logout ends the session. The backend call is best-effort: its failure is
// logged and the local session is cleared regardless. The manager reads
// Authenticating until the session is cleared.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.begin(true); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = Authenticating
	m.mu.Unlock()

	berr := m.backend.Logout(ctx)
	if berr != nil {
		m.metrics.Inc(metrics.LogoutBackendFailure)
		m.logger.Warn("backend logout failed", zap.Error(berr))
	}

	if m.isClosed() {
		m.mu.Lock()
		m.end(true)
		m.mu.Unlock()
		return ErrClosed
	}
	if err := m.store.Delete(ctx, storage.KeyToken); err != nil {
		m.logger.Warn("clear persisted token failed", zap.Error(err))
	}

	m.mu.Lock()
	m.end(true)
	user := m.user
	m.clearSession()
	m.mu.Unlock()

	m.metrics.Inc(metrics.Logout)
	m.logger.Info("logged out", zap.String("user_id", user.ID))
	m.emit(ctx, audit.EventLogout, user, nil)
	return nil
}

// Register creates an account and signs it in. A failed registration leaves
// the current session untouched.
func (m *Manager) Register(ctx context.Context, req backend.RegistrationRequest) (profile.UserProfile, error) {
	if err := m.begin(true); err != nil {
		return profile.UserProfile{}, err
	}

	res, err := m.backend.Register(ctx, req)
	persisted := false
	if err == nil {
		persisted, err = m.persistToken(ctx, res.Token)
	}

	m.mu.Lock()
	m.end(true)
	if m.closed {
		m.mu.Unlock()
		m.dropLateToken(ctx, persisted)
		return profile.UserProfile{}, ErrClosed
	}
	if err != nil {
		m.mu.Unlock()
		m.metrics.Inc(metrics.RegistrationFailure)
		m.logger.Info("registration failed", zap.String("email", req.Email), zap.Error(err))
		m.emit(ctx, audit.EventRegistrationFailure, profile.UserProfile{Email: req.Email}, err)
		return profile.UserProfile{}, err
	}
	m.setSession(res.User, res.Token)
	m.mu.Unlock()

	m.metrics.Inc(metrics.RegistrationSuccess)
	m.logger.Info("registration succeeded", zap.String("user_id", res.User.ID))
	m.emit(ctx, audit.EventRegistrationSuccess, res.User, nil)
	return res.User.Clone(), nil
}

// UpdateProfile merges patch through the backend and replaces the current
// user with the result.
func (m *Manager) UpdateProfile(ctx context.Context, patch profile.Patch) error {
	if err := m.begin(false); err != nil {
		return err
	}
	m.mu.Lock()
	if !m.hasUser {
		m.end(false)
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	epoch := m.epoch
	before := m.user
	m.mu.Unlock()

	updated, err := m.backend.UpdateUser(ctx, patch)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.end(false)
	if m.closed {
		return ErrClosed
	}
	if err != nil {
		m.metrics.Inc(metrics.ProfileUpdateFailure)
		m.logger.Warn("profile update failed", zap.String("user_id", before.ID), zap.Error(err))
		m.emit(ctx, audit.EventProfileUpdateFailure, before, err)
		return err
	}
	if m.epoch != epoch {
		return ErrSessionChanged
	}
	m.user = updated.Clone()
	m.metrics.Inc(metrics.ProfileUpdateSuccess)
	m.logger.Debug("profile updated", zap.String("user_id", updated.ID))
	m.emit(ctx, audit.EventProfileUpdated, updated, nil)
	return nil
}
