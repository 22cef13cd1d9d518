package pg_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeet/trialkit/pkg/pg"
)

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("malformed connection string", func(t *testing.T) {
		t.Parallel()

		cfg := pg.Config{
			ConnectionString: "postgres://127.0.0.1:not-a-port/app",
			RetryAttempts:    1,
			RetryInterval:    time.Millisecond,
		}
		pool, err := pg.Connect(context.Background(), cfg)
		require.Nil(t, pool)
		assert.ErrorIs(t, err, pg.ErrFailedToParseDBConfig)
	})
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	// The path checks run before the pool is touched, so a nil pool is
	// fine for the failure cases.
	t.Run("empty migrations path", func(t *testing.T) {
		t.Parallel()

		err := pg.Migrate(context.Background(), nil, pg.Config{}, noopLog{})
		assert.ErrorIs(t, err, pg.ErrMigrationPathNotProvided)
		assert.ErrorIs(t, err, pg.ErrFailedToApplyMigrations)
	})

	t.Run("missing migrations directory", func(t *testing.T) {
		t.Parallel()

		cfg := pg.Config{MigrationsPath: t.TempDir() + "/does-not-exist"}
		err := pg.Migrate(context.Background(), nil, cfg, noopLog{})
		assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
	})
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	assert.False(t, pg.IsNotFoundError(nil))
	assert.False(t, pg.IsNotFoundError(errors.New("boom")))
	assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("load row: %w", pgx.ErrNoRows)))
}

type noopLog struct{}

func (noopLog) InfoContext(context.Context, string, ...any)  {}
func (noopLog) ErrorContext(context.Context, string, ...any) {}
