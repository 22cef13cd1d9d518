// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver. It wraps connection pooling, schema migrations and health
// checks so that services can bootstrap a durable storage layer with a few
// lines of code.
//
// The package exposes three cooperating building blocks:
//
//   - Config, a declarative struct whose fields are populated from
//     environment variables via github.com/caarlos0/env. It controls
//     connection pool limits, health-check cadence and migration paths.
//
//   - Connect, which opens a *pgxpool.Pool based on Config, retrying with
//     increasing back-off until the database becomes available.
//
//   - Migrate, which runs goose migrations against the same connection
//     pool, guaranteeing the schema is up to date before the service
//     starts serving traffic.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// [pg.IsNotFoundError] unwraps errors returned by pgx so that callers can
// classify missing rows without importing the driver directly.
package pg
