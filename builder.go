package finserve

import (
	"errors"
	"time"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/internal"
	"github.com/MrEthical07/finserve/internal/audit"
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/portfolio"
	"github.com/MrEthical07/finserve/session"
	"github.com/MrEthical07/finserve/storage"
	"github.com/MrEthical07/finserve/token"
	"github.com/MrEthical07/finserve/validation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles a Client. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  storage.Local

	logger    *zap.Logger
	auditSink AuditSink
	random    func() float64
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used when Storage.Backend is "redis".
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore overrides the configured storage backend entirely.
func (b *Builder) WithStore(store storage.Local) *Builder {
	b.store = store
	return b
}

// WithLogger injects a logger. Without one, Build constructs a logger from
// Config.Log and Close flushes it.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events go when Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRandom replaces the uniform [0,1) source behind failure injection and
// snapshot perturbation.
func (b *Builder) WithRandom(random func() float64) *Builder {
	b.random = random
	return b
}

// WithClock replaces time.Now for token issuance and cache staleness.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the per-operation backend latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. No backend
// call is made until Start.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- STORAGE --------
	store := b.store
	if store == nil {
		switch cfg.Storage.Backend {
		case StorageRedis:
			if b.redis == nil {
				return nil, errors.New("Storage backend redis requires redis client")
			}
			store = storage.NewRedis(b.redis, cfg.Storage.RedisPrefix)
		default:
			store = storage.NewMemory()
		}
	}

	// -------- LOGGING / METRICS / AUDIT --------
	logger := b.logger
	ownsLogger := false
	if logger == nil {
		l, err := buildLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		logger = l
		ownsLogger = true
	}
	// Every failure past this point must flush a logger Build created.
	fail := func(err error) (*Client, error) {
		if ownsLogger {
			_ = logger.Sync()
		}
		return nil, err
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	m := metrics.New(metrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	// -------- TOKENS --------
	privateKey := cloneBytes(cfg.Token.PrivateKey)
	if cfg.Token.SigningMethod == "hs256" && len(privateKey) == 0 {
		secret, err := internal.NewSigningSecret()
		if err != nil {
			return fail(err)
		}
		privateKey = secret
	}
	issuer, err := token.NewIssuer(token.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    privateKey,
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return fail(err)
	}

	// -------- BACKEND --------
	svc, err := backend.New(backend.Options{
		Store:       store,
		Tokens:      issuer,
		Latency:     cfg.Backend.Latency.Scaled(cfg.Backend.Scale),
		FailureRate: cfg.Backend.FailureRate,
		Duplicates:  cfg.Backend.DuplicatePolicy.backend(),
		Random:      b.random,
		Now:         now,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		return fail(err)
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	// -------- SESSION / PORTFOLIO --------
	sess, err := session.NewManager(session.Options{
		Backend: svc,
		Store:   store,
		Logger:  logger,
		Metrics: m,
		Audit:   dispatcher,
	})
	if err != nil {
		dispatcher.Close()
		return fail(err)
	}

	tracker, err := portfolio.New(portfolio.Options{
		Source:  svc,
		Config:  cfg.Portfolio.tracker(),
		Logger:  logger,
		Metrics: m,
		Now:     now,
	})
	if err != nil {
		dispatcher.Close()
		return fail(err)
	}

	b.built = true

	return &Client{
		config:     cfg,
		store:      store,
		backend:    svc,
		session:    sess,
		portfolio:  tracker,
		validator:  validation.Default(),
		logger:     logger.Named("client"),
		rootLogger: logger,
		ownsLogger: ownsLogger,
		metrics:    m,
		audit:      dispatcher,
	}, nil
}
