package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/finserve/internal"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/profile"
	"github.com/MrEthical07/finserve/storage"
	"github.com/MrEthical07/finserve/token"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Latency is the artificial delay applied before each operation resolves.
type Latency struct {
	Login         time.Duration
	Logout        time.Duration
	Register      time.Duration
	CurrentUser   time.Duration
	UpdateUser    time.Duration
	FinancialData time.Duration
	RefreshData   time.Duration
}

// DefaultLatency returns the delays the client UX was designed around.
func DefaultLatency() Latency {
	return Latency{
		Login:         1000 * time.Millisecond,
		Logout:        500 * time.Millisecond,
		Register:      1500 * time.Millisecond,
		CurrentUser:   800 * time.Millisecond,
		UpdateUser:    1000 * time.Millisecond,
		FinancialData: 1200 * time.Millisecond,
		RefreshData:   2000 * time.Millisecond,
	}
}

// Scaled multiplies every delay by factor.
func (l Latency) Scaled(factor float64) Latency {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	return Latency{
		Login:         scale(l.Login),
		Logout:        scale(l.Logout),
		Register:      scale(l.Register),
		CurrentUser:   scale(l.CurrentUser),
		UpdateUser:    scale(l.UpdateUser),
		FinancialData: scale(l.FinancialData),
		RefreshData:   scale(l.RefreshData),
	}
}

// Validate checks that no delay is negative and that registration is not
// faster than login nor refresh faster than the initial fetch.
func (l Latency) Validate() error {
	for _, d := range []time.Duration{l.Login, l.Logout, l.Register, l.CurrentUser, l.UpdateUser, l.FinancialData, l.RefreshData} {
		if d < 0 {
			return errors.New("latency must be >= 0")
		}
	}
	if l.Register < l.Login {
		return errors.New("register latency must be >= login latency")
	}
	if l.RefreshData < l.FinancialData {
		return errors.New("refresh latency must be >= financial data latency")
	}
	return nil
}

// DuplicatePolicy selects which emails Register rejects.
type DuplicatePolicy uint8

const (
	// DuplicateSeedOnly rejects only the seed demo email.
	DuplicateSeedOnly DuplicatePolicy = iota
	// DuplicateAny also rejects emails already present in the registered-user list.
	DuplicateAny
)

// Options configures a Service. Store and Tokens are required.
type Options struct {
	Store       storage.Local
	Tokens      *token.Issuer
	Latency     Latency
	FailureRate float64
	Duplicates  DuplicatePolicy
	Random      func() float64
	Now         func() time.Time
	NewID       func() string
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Service is the mock backend. It is safe for concurrent use.
type Service struct {
	store       storage.Local
	tokens      *token.Issuer
	latency     Latency
	failureRate float64
	duplicates  DuplicatePolicy
	random      func() float64
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
	metrics     *metrics.Metrics

	demoMu sync.RWMutex
	demo   profile.UserProfile

	// regMu serialises the duplicate check with the append under DuplicateAny.
	regMu sync.Mutex
}

// New returns a Service seeded with the demo account. Store and Tokens are
// required.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("backend store required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("backend token issuer required")
	}
	if err := opts.Latency.Validate(); err != nil {
		return nil, err
	}
	if opts.FailureRate < 0 || opts.FailureRate > 1 {
		return nil, errors.New("failure rate must be within [0,1]")
	}
	if opts.Random == nil {
		src, err := internal.NewFloatSource()
		if err != nil {
			return nil, err
		}
		opts.Random = src
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		store:       opts.Store,
		tokens:      opts.Tokens,
		latency:     opts.Latency,
		failureRate: opts.FailureRate,
		duplicates:  opts.Duplicates,
		random:      opts.Random,
		now:         opts.Now,
		newID:       opts.NewID,
		logger:      opts.Logger.Named("backend"),
		metrics:     opts.Metrics,
		demo:        profile.DemoProfile(opts.Now()),
	}, nil
}

// wait blocks for the simulated latency of one call.
// wait sleeps for the simulated latency of op and records it in op's
// histogram, abandoned calls included.
func (s *Service) wait(ctx context.Context, op metrics.Op, d time.Duration) error {
	start := time.Now()
	defer func() {
		s.metrics.Observe(op, time.Since(start))
	}()

	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.logger.Debug("call abandoned", zap.Stringer("op", op), zap.Error(ctx.Err()))
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) demoProfile() profile.UserProfile {
	s.demoMu.RLock()
	defer s.demoMu.RUnlock()
	return s.demo.Clone()
}

func (s *Service) issue(user profile.UserProfile) (string, error) {
	tok, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}
