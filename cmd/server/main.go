package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sparkmeet/trialkit/modules/billing"
	"github.com/sparkmeet/trialkit/pkg/broadcast"
	"github.com/sparkmeet/trialkit/pkg/config"
	"github.com/sparkmeet/trialkit/pkg/httpserver"
	"github.com/sparkmeet/trialkit/pkg/logger"
	"github.com/sparkmeet/trialkit/pkg/paypal"
	"github.com/sparkmeet/trialkit/pkg/pg"
	"github.com/sparkmeet/trialkit/pkg/redis"
	"github.com/sparkmeet/trialkit/pkg/trial"
)

type appConfig struct {
	StoreBackend string        `env:"TRIAL_STORE" envDefault:"postgres"` // StoreBackend selects the attempt store: postgres, redis or memory.
	PlansPath    string        `env:"TRIAL_PLANS_PATH" envDefault:"configs/plans.yaml"`
	PollDelay    time.Duration `env:"TRIAL_POLL_DELAY" envDefault:"120s"`
	StreamBuffer int           `env:"TRIAL_STREAM_BUFFER" envDefault:"8"`
}

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg)
	slog.SetDefault(log)

	if err := run(ctx, log); err != nil {
		log.ErrorContext(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var cfg appConfig
	config.MustLoad(&cfg)

	var processorCfg paypal.Config
	config.MustLoad(&processorCfg)

	client, err := paypal.NewClient(processorCfg, paypal.WithLogger(log))
	if err != nil {
		return fmt.Errorf("processor client: %w", err)
	}
	verifier, err := paypal.NewVerifier(processorCfg, paypal.WithVerifierLogger(log))
	if err != nil {
		return fmt.Errorf("webhook verifier: %w", err)
	}

	store, healthchecks, cleanup, err := buildStore(ctx, cfg.StoreBackend, log)
	if err != nil {
		return fmt.Errorf("attempt store: %w", err)
	}
	defer cleanup()

	hub := broadcast.NewMemoryHub[trial.Transition](cfg.StreamBuffer)
	defer func() { _ = hub.Close() }()

	svc, err := trial.NewService(ctx,
		trial.YAMLPlans{Path: cfg.PlansPath},
		client, store, hub,
		trial.WithPollDelay(cfg.PollDelay),
		trial.WithServiceLogger(log),
	)
	if err != nil {
		return fmt.Errorf("trial service: %w", err)
	}
	defer svc.Close()

	var billingCfg billing.Config
	config.MustLoad(&billingCfg)
	handler := billing.NewHandler(billingCfg, svc, hub, verifier, billing.WithLogger(log))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, healthchecks...))
	r.Mount("/", handler.Router())

	var serverCfg httpserver.Config
	config.MustLoad(&serverCfg)
	srv := httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log))

	log.InfoContext(ctx, "starting server",
		"store", cfg.StoreBackend, "poll_delay", cfg.PollDelay)
	return srv.Run(ctx, r)
}

// buildStore wires the attempt store named by TRIAL_STORE. Postgres is
// the default: it is the only backend that survives restarts and keeps
// superseded attempts for audit. Also returns the health checks for the
// chosen backend so /health reflects its availability.
func buildStore(ctx context.Context, backend string, log *slog.Logger) (trial.AttemptStore, []func(context.Context) error, func(), error) {
	switch backend {
	case "memory":
		return trial.NewMemoryStore(), nil, func() {}, nil

	case "redis":
		var cfg redis.Config
		config.MustLoad(&cfg)
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		checks := []func(context.Context) error{redis.Healthcheck(client)}
		return trial.NewRedisStore(client), checks, func() { _ = client.Close() }, nil

	case "postgres":
		var cfg pg.Config
		config.MustLoad(&cfg)
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		checks := []func(context.Context) error{pg.Healthcheck(pool)}
		return trial.NewPGStore(pool), checks, pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
