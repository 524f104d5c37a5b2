package finserve

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/portfolio"
	"go.uber.org/zap/zapcore"
)

// Config is the full client configuration. Start from DefaultConfig and
// override what differs.
type Config struct {
	Storage   StorageConfig
	Backend   BackendConfig
	Token     TokenConfig
	Portfolio PortfolioConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where the session token and the registered-user
// list are kept.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageRedis  StorageBackend = "redis"
)

// StorageConfig controls the local-storage stand-in.
type StorageConfig struct {
	Backend     StorageBackend
	RedisPrefix string
}

/*
====================================
BACKEND CONFIG
====================================
*/

// DuplicatePolicy names which emails registration rejects.
type DuplicatePolicy string

const (
	// DuplicateSeedOnly rejects only the seed demo email.
	DuplicateSeedOnly DuplicatePolicy = "seed-only"
	// DuplicateAny also rejects emails registered earlier in the same store.
	DuplicateAny DuplicatePolicy = "any"
)

// BackendConfig controls the simulated backend.
type BackendConfig struct {
	Latency backend.Latency
	// Scale multiplies every latency. 0 disables the artificial delay.
	Scale float64
	// FailureRate is the probability that a financial data fetch fails.
	FailureRate     float64
	DuplicatePolicy DuplicatePolicy
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls session token issuance. An empty PrivateKey with
// hs256 makes Build generate a per-process key.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	TTL           time.Duration
}

/*
====================================
PORTFOLIO CONFIG
====================================
*/

// PortfolioConfig controls the dashboard data cache.
type PortfolioConfig struct {
	StaleTime        time.Duration
	Retries          int
	RetryInterval    time.Duration
	RetryMaxInterval time.Duration
}

/*
====================================
AUDIT / METRICS / LOG CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LogConfig is used only when no logger is injected through the Builder.
type LogConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// DefaultConfig returns the configuration the demo client ships with.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	pcfg := portfolio.DefaultConfig()
	return Config{
		Storage: StorageConfig{
			Backend:     StorageMemory,
			RedisPrefix: "finserve",
		},
		Backend: BackendConfig{
			Latency:         backend.DefaultLatency(),
			Scale:           1,
			FailureRate:     0.1,
			DuplicatePolicy: DuplicateSeedOnly,
		},
		Token: TokenConfig{
			SigningMethod: "hs256",
			Issuer:        "finserve",
			TTL:           24 * time.Hour,
		},
		Portfolio: PortfolioConfig{
			StaleTime:        pcfg.StaleTime,
			Retries:          pcfg.Retries,
			RetryInterval:    pcfg.RetryInterval,
			RetryMaxInterval: pcfg.RetryMaxInterval,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// TestConfig is DefaultConfig without artificial latency, failure injection
// or retry waits.
func TestConfig() Config {
	cfg := defaultConfig()
	cfg.Backend.Scale = 0
	cfg.Backend.FailureRate = 0
	cfg.Portfolio.RetryInterval = time.Millisecond
	cfg.Portfolio.RetryMaxInterval = time.Millisecond
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c PortfolioConfig) tracker() portfolio.Config {
	return portfolio.Config{
		StaleTime:        c.StaleTime,
		Retries:          c.Retries,
		RetryInterval:    c.RetryInterval,
		RetryMaxInterval: c.RetryMaxInterval,
	}
}

func (p DuplicatePolicy) backend() backend.DuplicatePolicy {
	if p == DuplicateAny {
		return backend.DuplicateAny
	}
	return backend.DuplicateSeedOnly
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisPrefix) == "" {
			return errors.New("Storage RedisPrefix must not be empty")
		}
	default:
		return errors.New("Storage Backend must be 'memory' or 'redis'")
	}

	// Backend
	if c.Backend.Scale < 0 {
		return errors.New("Backend Scale must be >= 0")
	}
	if err := c.Backend.Latency.Validate(); err != nil {
		return errors.New("Backend Latency: " + err.Error())
	}
	if c.Backend.FailureRate < 0 || c.Backend.FailureRate > 1 {
		return errors.New("Backend FailureRate must be within [0,1]")
	}
	if c.Backend.DuplicatePolicy != DuplicateSeedOnly && c.Backend.DuplicatePolicy != DuplicateAny {
		return errors.New("Backend DuplicatePolicy must be 'seed-only' or 'any'")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	switch c.Token.SigningMethod {
	case "hs256":
	case "ed25519":
		if len(c.Token.PrivateKey) == 0 || len(c.Token.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported Token signing method")
	}

	// Portfolio
	if err := c.Portfolio.tracker().Validate(); err != nil {
		return err
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Log
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.New("Log Level must be one of debug, info, warn, error")
	}

	return nil
}
