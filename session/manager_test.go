package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/internal/audit"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeBackend struct {
	authenticate func(ctx context.Context, email, password string) (backend.AuthResult, error)
	register     func(ctx context.Context, req backend.RegistrationRequest) (backend.AuthResult, error)
	currentUser  func(ctx context.Context) (profile.UserProfile, error)
	updateUser   func(ctx context.Context, patch profile.Patch) (profile.UserProfile, error)
	logout       func(ctx context.Context) error

	currentUserCalls atomic.Int32
}

func (f *fakeBackend) Authenticate(ctx context.Context, email, password string) (backend.AuthResult, error) {
	if f.authenticate == nil {
		if email == profile.DemoEmail && password == profile.DemoPassword {
			return backend.AuthResult{Token: "tok-demo", User: demoUser()}, nil
		}
		return backend.AuthResult{}, backend.ErrInvalidCredentials
	}
	return f.authenticate(ctx, email, password)
}

func (f *fakeBackend) Register(ctx context.Context, req backend.RegistrationRequest) (backend.AuthResult, error) {
	if f.register == nil {
		return backend.AuthResult{
			Token: "tok-" + req.Email,
			User:  profile.UserProfile{ID: "new", Email: req.Email, IsOnboarded: true},
		}, nil
	}
	return f.register(ctx, req)
}

func (f *fakeBackend) GetCurrentUser(ctx context.Context) (profile.UserProfile, error) {
	f.currentUserCalls.Add(1)
	if f.currentUser == nil {
		return demoUser(), nil
	}
	return f.currentUser(ctx)
}

func (f *fakeBackend) UpdateUser(ctx context.Context, patch profile.Patch) (profile.UserProfile, error) {
	if f.updateUser == nil {
		return demoUser().Apply(patch), nil
	}
	return f.updateUser(ctx, patch)
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx)
}

func demoUser() profile.UserProfile {
	return profile.DemoProfile(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

type harness struct {
	mgr     *Manager
	be      *fakeBackend
	store   *storage.Memory
	metrics *metrics.Metrics
	events  *audit.ChannelSink
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, be *fakeBackend) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		be:      be,
		store:   storage.NewMemory(),
		metrics: metrics.New(metrics.Config{Enabled: true}),
		events:  audit.NewChannelSink(32),
		logs:    logs,
	}
	mgr, err := NewManager(Options{
		Backend: be,
		Store:   h.store,
		Logger:  zap.New(core),
		Metrics: h.metrics,
		Audit:   h.events,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h.mgr = mgr
	return h
}

func (h *harness) nextEvent(t *testing.T) audit.Event {
	t.Helper()
	select {
	case ev := <-h.events.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("expected audit event")
		return audit.Event{}
	}
}

func TestRestoreWithoutTokenIsAnonymous(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	h.mgr.Restore(context.Background())

	if got := h.mgr.State(); got != Anonymous {
		t.Fatalf("expected anonymous, got %s", got)
	}
	if h.be.currentUserCalls.Load() != 0 {
		t.Fatal("backend must not be called without a token")
	}
	if h.mgr.Loading() {
		t.Fatal("loading must be cleared")
	}
}

func TestRestoreWithTokenAuthenticates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	_ = h.store.Set(ctx, storage.KeyToken, "persisted")

	h.mgr.Restore(ctx)

	if !h.mgr.IsAuthenticated() || h.mgr.State() != Authenticated {
		t.Fatalf("expected authenticated, got %s", h.mgr.State())
	}
	if h.mgr.Token() != "persisted" {
		t.Fatalf("unexpected token %q", h.mgr.Token())
	}
	if h.metrics.Value(metrics.SessionRestored) != 1 {
		t.Fatal("expected restore counter")
	}
	if ev := h.nextEvent(t); ev.EventType != audit.EventSessionRestored || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestRestoreFailureDiscardsToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{
		currentUser: func(context.Context) (profile.UserProfile, error) {
			return profile.UserProfile{}, errors.New("boom")
		},
	})
	_ = h.store.Set(ctx, storage.KeyToken, "stale")

	h.mgr.Restore(ctx)

	if h.mgr.State() != Anonymous || h.mgr.IsAuthenticated() {
		t.Fatalf("expected anonymous, got %s", h.mgr.State())
	}
	if _, ok, _ := h.store.Get(ctx, storage.KeyToken); ok {
		t.Fatal("stale token must be discarded")
	}
	if err := h.mgr.RestoreErr(); !errors.Is(err, ErrSessionRestore) {
		t.Fatalf("expected ErrSessionRestore, got %v", err)
	}
	if h.logs.FilterMessage("session restore failed").Len() != 1 {
		t.Fatal("expected restore failure to be logged")
	}
	if h.metrics.Value(metrics.SessionRestoreFailure) != 1 {
		t.Fatal("expected restore failure counter")
	}
}

func TestRestoreEmptyProfileIsFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{
		currentUser: func(context.Context) (profile.UserProfile, error) {
			return profile.UserProfile{}, nil
		},
	})
	_ = h.store.Set(ctx, storage.KeyToken, "stale")

	h.mgr.Restore(ctx)

	if h.mgr.State() != Anonymous {
		t.Fatalf("expected anonymous, got %s", h.mgr.State())
	}
	if _, ok, _ := h.store.Get(ctx, storage.KeyToken); ok {
		t.Fatal("token must be discarded")
	}
}

func TestRestoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	_ = h.store.Set(ctx, storage.KeyToken, "persisted")

	h.mgr.Restore(ctx)
	h.mgr.Restore(ctx)

	if n := h.be.currentUserCalls.Load(); n != 1 {
		t.Fatalf("expected one backend call, got %d", n)
	}
}

func TestLoginSuccessPersistsToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	h.mgr.Restore(ctx)

	if err := h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if h.mgr.State() != Authenticated {
		t.Fatalf("expected authenticated, got %s", h.mgr.State())
	}
	tok, ok, _ := h.store.Get(ctx, storage.KeyToken)
	if !ok || tok != "tok-demo" || h.mgr.Token() != tok {
		t.Fatalf("token not persisted: %q", tok)
	}
	user, ok := h.mgr.User()
	if !ok || user.ID != "1" {
		t.Fatalf("unexpected user %+v", user)
	}
	if ev := h.nextEvent(t); ev.EventType != audit.EventLoginSuccess || ev.UserID != "1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLoginFailureLeavesAnonymous(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	h.mgr.Restore(ctx)

	err := h.mgr.Login(ctx, profile.DemoEmail, "wrong")
	if !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if h.mgr.State() != Anonymous || h.mgr.IsAuthenticated() || h.mgr.Loading() {
		t.Fatalf("unexpected state %s loading=%v", h.mgr.State(), h.mgr.Loading())
	}
	if h.metrics.Value(metrics.LoginFailure) != 1 {
		t.Fatal("expected login failure counter")
	}
	ev := h.nextEvent(t)
	if ev.EventType != audit.EventLoginFailure || ev.Success || ev.Error != "invalid credentials" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestLoginFailureKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	h.mgr.Restore(ctx)
	if err := h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	err := h.mgr.Login(ctx, profile.DemoEmail, "typo")
	if !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if h.mgr.State() != Authenticated || !h.mgr.IsAuthenticated() {
		t.Fatalf("failed re-login must keep the session, got %s", h.mgr.State())
	}
	if h.mgr.Token() != "tok-demo" {
		t.Fatalf("unexpected token %q", h.mgr.Token())
	}
	tok, ok, _ := h.store.Get(ctx, storage.KeyToken)
	if !ok || tok != "tok-demo" {
		t.Fatalf("persisted token must survive, got %q ok=%v", tok, ok)
	}
}

func TestLogoutIsAuthenticatingWhileInFlight(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})
	h := newHarness(t, &fakeBackend{
		logout: func(context.Context) error {
			close(entered)
			<-release
			return nil
		},
	})
	h.mgr.Restore(ctx)
	if err := h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.mgr.Logout(ctx) }()
	<-entered

	if h.mgr.State() != Authenticating || !h.mgr.Loading() {
		t.Fatalf("expected authenticating+loading, got %s", h.mgr.State())
	}
	if err := h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy during logout, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.mgr.State() != Anonymous || h.mgr.IsAuthenticated() {
		t.Fatalf("expected anonymous, got %s", h.mgr.State())
	}
}

func TestConcurrentLoginIsBusy(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})
	h := newHarness(t, &fakeBackend{
		authenticate: func(ctx context.Context, email, password string) (backend.AuthResult, error) {
			close(entered)
			<-release
			return backend.AuthResult{Token: "t", User: demoUser()}, nil
		},
	})
	h.mgr.Restore(ctx)

	done := make(chan error, 1)
	go func() { done <- h.mgr.Login(ctx, "a", "b") }()
	<-entered

	if h.mgr.State() != Authenticating || !h.mgr.Loading() {
		t.Fatalf("expected authenticating+loading, got %s", h.mgr.State())
	}
	if err := h.mgr.Login(ctx, "a", "b"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := h.mgr.Logout(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for logout, got %v", err)
	}
	if _, err := h.mgr.Register(ctx, backend.RegistrationRequest{Email: "x@y.z"}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for register, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Login: %v", err)
	}
	if h.metrics.Value(metrics.LoginBusy) != 1 {
		t.Fatal("expected busy counter")
	}
}

func TestLogoutClearsDespiteBackendFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{
		logout: func(context.Context) error { return errors.New("network down") },
	})
	h.mgr.Restore(ctx)
	if err := h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := h.mgr.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.mgr.State() != Anonymous || h.mgr.IsAuthenticated() || h.mgr.Token() != "" {
		t.Fatal("session must be cleared")
	}
	if _, ok, _ := h.store.Get(ctx, storage.KeyToken); ok {
		t.Fatal("persisted token must be removed")
	}
	if h.logs.FilterMessage("backend logout failed").Len() != 1 {
		t.Fatal("expected backend failure to be logged")
	}
	if h.metrics.Value(metrics.LogoutBackendFailure) != 1 {
		t.Fatal("expected logout failure counter")
	}
}

func TestRegisterEstablishesSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	h.mgr.Restore(ctx)

	user, err := h.mgr.Register(ctx, backend.RegistrationRequest{Email: "john@x.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !user.IsOnboarded || user.Email != "john@x.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if h.mgr.State() != Authenticated || h.mgr.Token() != "tok-john@x.com" {
		t.Fatalf("expected session, got %s token=%q", h.mgr.State(), h.mgr.Token())
	}
}

func TestRegisterFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{
		register: func(context.Context, backend.RegistrationRequest) (backend.AuthResult, error) {
			return backend.AuthResult{}, backend.ErrDuplicateEmail
		},
	})
	h.mgr.Restore(ctx)

	if _, err := h.mgr.Register(ctx, backend.RegistrationRequest{Email: profile.DemoEmail}); !errors.Is(err, backend.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if h.mgr.State() != Anonymous || h.mgr.IsAuthenticated() {
		t.Fatalf("state changed to %s", h.mgr.State())
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{})
	h.mgr.Restore(ctx)

	name := "Ada"
	if err := h.mgr.UpdateProfile(ctx, profile.Patch{FirstName: &name}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err := h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := h.mgr.UpdateProfile(ctx, profile.Patch{FirstName: &name}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	user, _ := h.mgr.User()
	if user.FirstName != "Ada" {
		t.Fatalf("update not applied: %+v", user)
	}
}

func TestUpdateProfileFailureKeepsUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeBackend{
		updateUser: func(context.Context, profile.Patch) (profile.UserProfile, error) {
			return profile.UserProfile{}, errors.New("rejected")
		},
	})
	h.mgr.Restore(ctx)
	_ = h.mgr.Login(ctx, profile.DemoEmail, profile.DemoPassword)

	name := "Ada"
	if err := h.mgr.UpdateProfile(ctx, profile.Patch{FirstName: &name}); err == nil {
		t.Fatal("expected error")
	}
	user, _ := h.mgr.User()
	if user.FirstName != "Minfy" {
		t.Fatalf("user must be unchanged: %+v", user)
	}
}

func TestCloseDiscardsInFlightLogin(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	entered := make(chan struct{})
	h := newHarness(t, &fakeBackend{
		authenticate: func(context.Context, string, string) (backend.AuthResult, error) {
			close(entered)
			<-release
			return backend.AuthResult{Token: "late", User: demoUser()}, nil
		},
	})
	h.mgr.Restore(ctx)

	done := make(chan error, 1)
	go func() { done <- h.mgr.Login(ctx, "a", "b") }()
	<-entered
	h.mgr.Close()
	close(release)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, ok, _ := h.store.Get(ctx, storage.KeyToken); ok {
		t.Fatal("late result must not be persisted")
	}
	if h.mgr.IsAuthenticated() {
		t.Fatal("late result must not be applied")
	}
}

func TestCancelledRestoreCanBeRetried(t *testing.T) {
	h := newHarness(t, &fakeBackend{
		currentUser: func(ctx context.Context) (profile.UserProfile, error) {
			if err := ctx.Err(); err != nil {
				return profile.UserProfile{}, err
			}
			return demoUser(), nil
		},
	})
	_ = h.store.Set(context.Background(), storage.KeyToken, "persisted")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.mgr.Restore(ctx)

	if h.mgr.State() != Uninitialized || h.mgr.Loading() {
		t.Fatalf("expected uninitialized, got %s loading=%v", h.mgr.State(), h.mgr.Loading())
	}
	if _, ok, _ := h.store.Get(context.Background(), storage.KeyToken); !ok {
		t.Fatal("cancelled restore must keep the token")
	}
	if h.mgr.RestoreErr() != nil {
		t.Fatalf("cancelled restore is not a failure: %v", h.mgr.RestoreErr())
	}

	h.mgr.Restore(context.Background())
	if h.mgr.State() != Authenticated || h.mgr.Token() != "persisted" {
		t.Fatalf("expected retried restore to authenticate, got %s", h.mgr.State())
	}
}
