package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrEthical07/finserve"
	"github.com/MrEthical07/finserve/metrics/export/prometheus"
	"github.com/MrEthical07/finserve/onboarding"
	"github.com/MrEthical07/finserve/profile"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type envConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPrefix   string        `env:"FINSERVE_REDIS_PREFIX"    envDefault:"finserve"`
	LatencyScale  float64       `env:"FINSERVE_LATENCY_SCALE"   envDefault:"1"`
	FailureRate   float64       `env:"FINSERVE_FAILURE_RATE"    envDefault:"0.1"`
	Duplicates    string        `env:"FINSERVE_DUPLICATE_POLICY" envDefault:"seed-only"`
	TokenTTL      time.Duration `env:"FINSERVE_TOKEN_TTL"       envDefault:"24h"`
	LogLevel      string        `env:"FINSERVE_LOG_LEVEL"       envDefault:"info"`
	LogDev        bool          `env:"FINSERVE_LOG_DEVELOPMENT" envDefault:"true"`
	PrintMetrics  bool          `env:"FINSERVE_PRINT_METRICS"   envDefault:"false"`
	AuditToStdout bool          `env:"FINSERVE_AUDIT_STDOUT"    envDefault:"false"`
}

func main() {
	var (
		email    = flag.String("email", "jane.doe@example.com", "email of the account created by the onboarding run")
		password = flag.String("password", "Str0ng!Pass", "password of the account created by the onboarding run")
		timeout  = flag.Duration("timeout", time.Minute, "overall run timeout")
	)
	flag.Parse()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(2)
	}

	cfg := finserve.DefaultConfig()
	cfg.Storage.Backend = finserve.StorageRedis
	cfg.Storage.RedisPrefix = ec.RedisPrefix
	cfg.Backend.Scale = ec.LatencyScale
	cfg.Backend.FailureRate = ec.FailureRate
	cfg.Backend.DuplicatePolicy = finserve.DuplicatePolicy(ec.Duplicates)
	cfg.Token.TTL = ec.TokenTTL
	cfg.Log.Level = ec.LogLevel
	cfg.Log.Development = ec.LogDev
	cfg.Audit.Enabled = ec.AuditToStdout
	cfg.Metrics.EnableLatencyHistograms = true

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if ec.RedisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{ec.RedisAddr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", ec.RedisAddr)
	}
	defer cleanup()

	builder := finserve.New().WithConfig(cfg).WithRedis(client)
	if ec.AuditToStdout {
		builder = builder.WithAuditSink(finserve.NewJSONWriterSink(os.Stdout))
	}
	app, err := builder.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, app, *email, *password); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}

	if ec.PrintMetrics {
		fmt.Print(prometheus.NewPrometheusExporter(app).Render())
	}
}

func run(ctx context.Context, app *finserve.Client, email, password string) error {
	if err := app.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("session after restore: %s\n", app.Session().State())

	if err := app.Login(ctx, profile.DemoEmail, profile.DemoPassword); err != nil {
		return fmt.Errorf("demo login: %w", err)
	}
	user, _ := app.User()
	fmt.Printf("signed in as %s %s <%s>\n", user.FirstName, user.LastName, user.Email)

	if err := dashboard(ctx, app); err != nil {
		return err
	}

	if err := app.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Println("logged out")

	if err := enroll(ctx, app, email, password); err != nil {
		return err
	}

	if err := app.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := app.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login with new account: %w", err)
	}
	user, _ = app.User()
	fmt.Printf("signed back in as %s (onboarded=%t)\n", user.Email, user.IsOnboarded)
	return nil
}

// dashboard loads and refreshes the snapshot concurrently; whichever call
// finishes last owns the cache.
func dashboard(ctx context.Context, app *finserve.Client) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := app.FinancialData(gctx)
		if errors.Is(err, finserve.ErrDataFetch) {
			fmt.Printf("financial data unavailable (%v), showing refresh result only\n", err)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("portfolio value %s (gain/loss %s)\n", snap.TotalPortfolioValue.StringFixed(2), snap.TotalGainLoss.StringFixed(2))
		return nil
	})
	g.Go(func() error {
		snap, err := app.RefreshFinancialData(gctx)
		if err != nil {
			return err
		}
		fmt.Printf("refreshed value %s (gain/loss %s)\n", snap.TotalPortfolioValue.StringFixed(2), snap.TotalGainLoss.StringFixed(2))
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	if snap, ok := app.Portfolio().Snapshot(); ok {
		fmt.Printf("cached value %s, %d holdings\n", snap.TotalPortfolioValue.StringFixed(2), len(snap.Holdings))
	}
	return nil
}

func enroll(ctx context.Context, app *finserve.Client, email, password string) error {
	w, err := app.NewOnboarding()
	if err != nil {
		return err
	}

	steps := []func() error{
		func() error {
			return w.SetPersonalInfo(onboarding.PersonalInfo{
				FirstName:       "Jane",
				LastName:        "Doe",
				Email:           email,
				PhoneNumber:     "5559876543",
				Password:        password,
				ConfirmPassword: password,
			})
		},
		func() error {
			return w.SetRiskProfile(onboarding.RiskProfile{
				RiskTolerance:   string(profile.RiskHigh),
				InvestmentGoals: []string{"wealth-building", "tax-optimization"},
			})
		},
	}
	for i, set := range steps {
		if err := set(); err != nil {
			return err
		}
		if err := w.Next(ctx); err != nil {
			return fmt.Errorf("onboarding step %d: %w", i+1, err)
		}
	}

	if err := w.Submit(ctx); err != nil {
		return fmt.Errorf("onboarding submit: %w", err)
	}
	if notice, ok := w.TakeNotice(); ok {
		fmt.Println(notice)
	}
	return nil
}
