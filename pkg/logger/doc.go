// Package logger builds configured log/slog loggers with functional options
// and an env-driven Config for level, format, and service attribution.
package logger
