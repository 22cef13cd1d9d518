package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	dotenvOnce sync.Once
)

// Load parses environment variables into the provided configuration struct.
// Each distinct struct type is parsed once per process; later calls for the
// same type return the cached value so every component sees identical
// configuration regardless of load order.
//
// A .env file in the working directory is loaded before the first parse. A
// missing file is not an error.
//
// Example:
//
//	type ProcessorConfig struct {
//		BaseURL  string `env:"PAYPAL_BASE_URL,required"`
//		ClientID string `env:"PAYPAL_CLIENT_ID,required"`
//	}
//
//	var cfg ProcessorConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// The .env file is a development convenience; its absence is fine.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := typeKey[T]()

	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	// Another goroutine may have parsed the same type concurrently; the
	// first stored value wins so all callers observe the same snapshot.
	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}
	cache[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Use for configuration the
// process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

func typeKey[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
