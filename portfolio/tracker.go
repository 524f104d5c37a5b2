package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrClosed is returned by calls that complete after Close.
var ErrClosed = errors.New("portfolio tracker closed")

// Source is the backend surface the tracker reads from.
type Source interface {
	GetFinancialData(ctx context.Context) (backend.Snapshot, error)
	RefreshFinancialData(ctx context.Context) (backend.Snapshot, error)
}

// Config controls caching and retry.
type Config struct {
	// StaleTime is how long a fetched snapshot is served without refetching.
	StaleTime time.Duration
	// Retries is the number of extra attempts after a failed fetch.
	Retries int
	// RetryInterval and RetryMaxInterval bound the exponential backoff
	// between attempts.
	RetryInterval    time.Duration
	RetryMaxInterval time.Duration
}

// DefaultConfig serves a snapshot for five minutes and retries a failed
// fetch three times.
func DefaultConfig() Config {
	return Config{
		StaleTime:        5 * time.Minute,
		Retries:          3,
		RetryInterval:    time.Second,
		RetryMaxInterval: 30 * time.Second,
	}
}

// Validate returns the first invalid field.
func (c Config) Validate() error {
	if c.StaleTime < 0 {
		return errors.New("portfolio stale time must be >= 0")
	}
	if c.Retries < 0 {
		return errors.New("portfolio retries must be >= 0")
	}
	if c.RetryInterval <= 0 {
		return errors.New("portfolio retry interval must be > 0")
	}
	if c.RetryMaxInterval < c.RetryInterval {
		return errors.New("portfolio retry max interval must be >= retry interval")
	}
	return nil
}

// Options wires a Tracker. Source is required.
type Options struct {
	Source  Source
	Config  Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Tracker is safe for concurrent use.
type Tracker struct {
	source  Source
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.Mutex
	snap       backend.Snapshot
	has        bool
	fetchedAt  time.Time
	loading    int
	refreshing int
	lastErr    error
	closed     bool
}

// New returns an empty Tracker. The first Load fetches from Source.
func New(opts Options) (*Tracker, error) {
	if opts.Source == nil {
		return nil, errors.New("portfolio source required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		source:  opts.Source,
		cfg:     opts.Config,
		logger:  opts.Logger.Named("portfolio"),
		metrics: opts.Metrics,
		now:     opts.Now,
	}, nil
}

// Snapshot returns the cached snapshot, fresh or not.
func (t *Tracker) Snapshot() (backend.Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.has {
		return backend.Snapshot{}, false
	}
	return t.snap.Clone(), true
}

// FetchedAt is when the cached snapshot was fetched; zero before the first
// success.
func (t *Tracker) FetchedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fetchedAt
}

// Loading reports an in-flight Load.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading > 0
}

func (t *Tracker) Refreshing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refreshing > 0
}

// Err returns the error of the last failed load, cleared by the next
// successful one.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Close detaches the tracker. Fetches still in flight do not update the
// cache.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// Load returns the cached snapshot while it is younger than StaleTime and
// fetches otherwise. A failed fetch leaves the cache as it was.
func (t *Tracker) Load(ctx context.Context) (backend.Snapshot, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return backend.Snapshot{}, ErrClosed
	}
	if t.has && t.now().Sub(t.fetchedAt) < t.cfg.StaleTime {
		snap := t.snap.Clone()
		t.mu.Unlock()
		t.metrics.Inc(metrics.FinancialCacheHit)
		return snap, nil
	}
	t.mu.Unlock()
	return t.fetch(ctx)
}

// Refetch fetches regardless of cache age.
func (t *Tracker) Refetch(ctx context.Context) (backend.Snapshot, error) {
	return t.fetch(ctx)
}

func (t *Tracker) fetch(ctx context.Context) (backend.Snapshot, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return backend.Snapshot{}, ErrClosed
	}
	t.loading++
	t.mu.Unlock()

	snap, err := t.retry(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loading--
	if t.closed {
		return backend.Snapshot{}, ErrClosed
	}
	if err != nil {
		t.lastErr = fmt.Errorf("load financial data: %w", err)
		t.metrics.Inc(metrics.FinancialFetchFailure)
		t.logger.Warn("financial data fetch failed", zap.Error(err))
		return backend.Snapshot{}, t.lastErr
	}
	t.store(snap)
	t.lastErr = nil
	t.metrics.Inc(metrics.FinancialFetchSuccess)
	return snap.Clone(), nil
}

func (t *Tracker) retry(ctx context.Context) (backend.Snapshot, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.cfg.RetryInterval
	b.MaxInterval = t.cfg.RetryMaxInterval

	op := func() (backend.Snapshot, error) {
		snap, err := t.source.GetFinancialData(ctx)
		if err != nil && !errors.Is(err, backend.ErrDataFetch) {
			return backend.Snapshot{}, backoff.Permanent(err)
		}
		return snap, err
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(t.cfg.Retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.logger.Debug("retrying financial data fetch", zap.Error(err), zap.Duration("next", next))
		}),
	)
}

// Refresh asks the backend for a recomputed snapshot. On failure the last
// good snapshot stays cached and the error is returned.
func (t *Tracker) Refresh(ctx context.Context) (backend.Snapshot, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return backend.Snapshot{}, ErrClosed
	}
	t.refreshing++
	t.mu.Unlock()

	snap, err := t.source.RefreshFinancialData(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshing--
	if t.closed {
		return backend.Snapshot{}, ErrClosed
	}
	if err != nil {
		t.metrics.Inc(metrics.FinancialRefreshFailure)
		t.logger.Warn("failed to refresh financial data", zap.Error(err))
		return backend.Snapshot{}, fmt.Errorf("refresh financial data: %w", err)
	}
	t.store(snap)
	t.metrics.Inc(metrics.FinancialRefreshSuccess)
	t.logger.Debug("financial data refreshed", zap.String("total_value", snap.TotalPortfolioValue.StringFixed(2)))
	return snap.Clone(), nil
}

// store must be called with t.mu held.
func (t *Tracker) store(snap backend.Snapshot) {
	t.snap = snap.Clone()
	t.has = true
	t.fetchedAt = t.now()
}
