package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/storage"
	"github.com/MrEthical07/finserve/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func newTestIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	iss, err := token.NewIssuer(token.Config{
		TTL:           time.Hour,
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("backend-test-secret-0123456789ab"),
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func fixedRandom(v float64) func() float64 {
	return func() float64 { return v }
}

func newTestService(t *testing.T, store storage.Local, mutate func(*Options)) *Service {
	t.Helper()
	opts := Options{
		Store:  store,
		Tokens: newTestIssuer(t),
		Random: fixedRandom(0.5),
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func newRedisBackedStore(t *testing.T) storage.Local {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return storage.NewRedis(rdb, "backend-test")
}

func registration(email string) RegistrationRequest {
	return RegistrationRequest{
		FirstName:   "Jane",
		LastName:    "Roe",
		Email:       email,
		PhoneNumber: "5551234567",
		Password:    "P@ssw0rd1",
		Preferences: profile.Preferences{
			RiskTolerance:   profile.RiskMedium,
			InvestmentGoals: []string{"retirement"},
			NotificationPreferences: profile.NotificationPreferences{
				Email: true,
				Push:  true,
			},
			Theme: profile.ThemeLight,
		},
	}
}

func TestDemoLogin(t *testing.T) {
	svc := newTestService(t, storage.NewMemory(), nil)

	res, err := svc.Authenticate(context.Background(), profile.DemoEmail, profile.DemoPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if res.User.ID != "1" || res.User.Email != "minfy.tech@example.com" {
		t.Fatalf("unexpected demo user: %+v", res.User)
	}
	if res.Message != MessageLoginSuccess {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestWrongPasswordRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory(), nil)

	if _, err := svc.Authenticate(ctx, profile.DemoEmail, "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Register(ctx, registration("jane@x.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "jane@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for registered email, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@x.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterSeedEmailIsDuplicate(t *testing.T) {
	store := storage.NewMemory()
	svc := newTestService(t, store, nil)

	_, err := svc.Register(context.Background(), registration(profile.DemoEmail))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if err.Error() != "email already exists" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	list, _ := store.List(context.Background(), storage.KeyRegisteredUsers)
	if len(list) != 0 {
		t.Fatalf("duplicate must not be appended, got %d records", len(list))
	}
}

func TestRegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, newRedisBackedStore(t), func(o *Options) {
		o.Now = func() time.Time { return created }
		o.NewID = func() string { return "user-42" }
	})

	reg, err := svc.Register(ctx, registration("jane@x.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !reg.User.IsOnboarded {
		t.Fatal("registered user must be onboarded")
	}
	if reg.User.ID != "user-42" || !reg.User.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user identity: %+v", reg.User)
	}
	if reg.Token == "" || reg.Message != MessageRegistrationSuccess {
		t.Fatalf("unexpected result: %+v", reg)
	}

	login, err := svc.Authenticate(ctx, "jane@x.com", "P@ssw0rd1")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if login.User.ID != "user-42" || login.User.Preferences.RiskTolerance != profile.RiskMedium {
		t.Fatalf("unexpected login user: %+v", login.User)
	}
	if login.Token == reg.Token {
		t.Fatal("login must issue a fresh token")
	}
}

func TestSeedOnlyPolicyAllowsRepeatRegistration(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := newTestService(t, store, nil)

	for i := 0; i < 2; i++ {
		if _, err := svc.Register(ctx, registration("again@x.com")); err != nil {
			t.Fatalf("Register #%d: %v", i, err)
		}
	}
	records, err := svc.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestDuplicateAnyPolicy(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory(), func(o *Options) {
		o.Duplicates = DuplicateAny
	})

	if _, err := svc.Register(ctx, registration("once@x.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, registration("once@x.com")); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestConcurrentRegistrationsAllPersist(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newRedisBackedStore(t), nil)

	const n = 16
	var g errgroup.Group
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		g.Go(func() error {
			_, err := svc.Register(ctx, registration(email))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	records, err := svc.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d records, got %d", n, len(records))
	}
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		if _, err := svc.Authenticate(ctx, email, "P@ssw0rd1"); err != nil {
			t.Fatalf("Authenticate %s: %v", email, err)
		}
	}
}

func TestConcurrentDuplicateAnyAcceptsExactlyOne(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newRedisBackedStore(t), func(o *Options) {
		o.Duplicates = DuplicateAny
	})

	const n = 8
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, errs[i] = svc.Register(ctx, registration("race@x.com"))
			return nil
		})
	}
	_ = g.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrDuplicateEmail):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one accepted registration, got %d", ok)
	}
}

func TestCorruptRecordsSkipped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := newTestService(t, store, nil)

	if err := store.Append(ctx, storage.KeyRegisteredUsers, "{not json"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := svc.Register(ctx, registration("ok@x.com")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ok@x.com", "P@ssw0rd1"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestUpdateUserMergesOntoDemoProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, storage.NewMemory(), nil)

	name := "Ada"
	updated, err := svc.UpdateUser(ctx, profile.Patch{FirstName: &name})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.FirstName != "Ada" || updated.LastName != "Tech" {
		t.Fatalf("unexpected merge: %+v", updated)
	}
	current, err := svc.GetCurrentUser(ctx)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if current.FirstName != "Ada" {
		t.Fatalf("merge not kept: %+v", current)
	}
}

func TestGetFinancialDataFailureInjection(t *testing.T) {
	ctx := context.Background()

	failing := newTestService(t, storage.NewMemory(), func(o *Options) {
		o.FailureRate = 0.1
		o.Random = fixedRandom(0.05)
	})
	_, err := failing.GetFinancialData(ctx)
	if !errors.Is(err, ErrDataFetch) {
		t.Fatalf("expected ErrDataFetch, got %v", err)
	}

	healthy := newTestService(t, storage.NewMemory(), func(o *Options) {
		o.FailureRate = 0.1
		o.Random = fixedRandom(0.1)
	})
	snap, err := healthy.GetFinancialData(ctx)
	if err != nil {
		t.Fatalf("GetFinancialData: %v", err)
	}
	if !snap.TotalPortfolioValue.Equal(decimal.RequireFromString("125000")) {
		t.Fatalf("unexpected value %s", snap.TotalPortfolioValue)
	}
	if len(snap.Holdings) != 4 || len(snap.RecentTransactions) != 3 {
		t.Fatalf("unexpected dataset shape: %d holdings, %d transactions", len(snap.Holdings), len(snap.RecentTransactions))
	}
}

func TestRefreshStaysWithinBounds(t *testing.T) {
	ctx := context.Background()
	svc, err := New(Options{
		Store:       storage.NewMemory(),
		Tokens:      newTestIssuer(t),
		FailureRate: 1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := BaseSnapshot()
	valueBound := decimal.NewFromInt(500)
	gainBound := decimal.NewFromInt(250)
	for i := 0; i < 100; i++ {
		snap, err := svc.RefreshFinancialData(ctx)
		if err != nil {
			t.Fatalf("RefreshFinancialData: %v", err)
		}
		if d := snap.TotalPortfolioValue.Sub(base.TotalPortfolioValue).Abs(); d.GreaterThan(valueBound) {
			t.Fatalf("value drifted by %s", d)
		}
		if d := snap.TotalGainLoss.Sub(base.TotalGainLoss).Abs(); d.GreaterThan(gainBound) {
			t.Fatalf("gain/loss drifted by %s", d)
		}
		if !snap.CashBalance.Equal(base.CashBalance) {
			t.Fatalf("cash balance changed: %s", snap.CashBalance)
		}
	}
}

func TestCancelledContextAbortsCall(t *testing.T) {
	svc := newTestService(t, storage.NewMemory(), func(o *Options) {
		o.Latency = DefaultLatency()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Authenticate(ctx, profile.DemoEmail, profile.DemoPassword); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLatencyRecordedPerOperation(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true, EnableLatencyHistograms: true})
	svc := newTestService(t, storage.NewMemory(), func(o *Options) {
		o.Metrics = m
	})
	ctx := context.Background()

	if _, err := svc.Authenticate(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, profile.DemoEmail, "nope"); err == nil {
		t.Fatal("expected wrong password to fail")
	}
	if _, err := svc.GetFinancialData(ctx); err != nil {
		t.Fatalf("GetFinancialData: %v", err)
	}

	snap := m.Snapshot()
	sum := func(op metrics.Op) uint64 {
		var n uint64
		for _, b := range snap.BackendLatency[op] {
			n += b
		}
		return n
	}
	if got := sum(metrics.OpAuthenticate); got != 2 {
		t.Fatalf("expected 2 authenticate samples, got %d", got)
	}
	if got := sum(metrics.OpFinancialData); got != 1 {
		t.Fatalf("expected 1 financial_data sample, got %d", got)
	}
	if got := sum(metrics.OpRegister); got != 0 {
		t.Fatalf("expected no register samples, got %d", got)
	}
}

func TestLatencyValidation(t *testing.T) {
	if err := DefaultLatency().Validate(); err != nil {
		t.Fatalf("default latency invalid: %v", err)
	}
	if err := DefaultLatency().Scaled(0.01).Validate(); err != nil {
		t.Fatalf("scaled latency invalid: %v", err)
	}

	bad := DefaultLatency()
	bad.Register = bad.Login - time.Millisecond
	if err := bad.Validate(); err == nil {
		t.Fatal("expected register < login to be rejected")
	}
	bad = DefaultLatency()
	bad.RefreshData = bad.FinancialData / 2
	if err := bad.Validate(); err == nil {
		t.Fatal("expected refresh < fetch to be rejected")
	}
	bad = Latency{Logout: -1}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected negative latency to be rejected")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{Tokens: newTestIssuer(t)}); err == nil {
		t.Fatal("expected missing store error")
	}
	if _, err := New(Options{Store: storage.NewMemory()}); err == nil {
		t.Fatal("expected missing issuer error")
	}
	if _, err := New(Options{Store: storage.NewMemory(), Tokens: newTestIssuer(t), FailureRate: 1.5}); err == nil {
		t.Fatal("expected failure rate error")
	}
}
