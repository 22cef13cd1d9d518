package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeet/trialkit/pkg/config"
)

type serverTestConfig struct {
	Addr    string `env:"TEST_SERVER_ADDR" envDefault:":8080"`
	Debug   bool   `env:"TEST_SERVER_DEBUG" envDefault:"false"`
	Retries int    `env:"TEST_SERVER_RETRIES" envDefault:"3"`
}

type requiredTestConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET_THAT_IS_NEVER_SET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied when env not set", func(t *testing.T) {
		var cfg serverTestConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.False(t, cfg.Debug)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("values from environment", func(t *testing.T) {
		t.Setenv("TEST_OVERRIDE_ADDR", ":9090")

		type overrideConfig struct {
			Addr string `env:"TEST_OVERRIDE_ADDR" envDefault:":8080"`
		}

		var cfg overrideConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
	})

	t.Run("cached per type", func(t *testing.T) {
		var first serverTestConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load has no effect:
		// the cached snapshot wins.
		t.Setenv("TEST_SERVER_ADDR", ":7070")

		var second serverTestConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("missing required variable", func(t *testing.T) {
		var cfg requiredTestConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[serverTestConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on missing required variable", func(t *testing.T) {
		assert.Panics(t, func() {
			var cfg requiredTestConfig
			config.MustLoad(&cfg)
		})
	})
}
