// Package redis provides helpers for connecting to a Redis server.
//
// It wraps the go-redis client with:
//
//   - A robust Connect that retries the connection using the supplied
//     configuration before giving up.
//   - A health-check helper to integrate Redis into HTTP liveness and
//     readiness probes.
//
// Configuration is described by the Config struct whose fields are
// populated from environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Register a health check in the observability stack:
//
//	checker := redis.Healthcheck(client)
//	if err := checker(ctx); err != nil {
//	    // redis is not healthy
//	}
//
// # Errors
//
// The package defines sentinel errors (e.g. ErrRedisNotReady) that wrap
// the underlying go-redis errors using errors.Join, so callers can
// compare and unwrap them.
package redis
