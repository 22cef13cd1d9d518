// Package config loads typed configuration structs from environment
// variables using caarlos0/env struct tags, with optional .env bootstrap via
// godotenv. Loaded configurations are cached per type so all components share
// one immutable snapshot for the process lifetime.
package config
