// Package httpserver is a lightweight wrapper around net/http adding graceful
// shutdown on context cancellation or interrupt/TERM signals, configurable
// timeouts via functional options or env-loaded Config, health-check
// handlers, and structured logging through slog.
package httpserver
