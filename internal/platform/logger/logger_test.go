package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
			logger, err := Setup(LoggerConfig{Level: level})
			require.NoError(t, err)
			assert.NotNil(t, logger)
		}
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger, err := Setup(LoggerConfig{Level: "verbose"})
		require.NoError(t, err)
		require.NotNil(t, logger)

		assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
		assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	})
}

func TestFromContext(t *testing.T) {
	t.Run("returns stored logger", func(t *testing.T) {
		stored := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := WithLogger(context.Background(), stored)

		assert.Same(t, stored, FromContext(ctx))
	})

	t.Run("falls back to default when absent", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})
}

func TestFromContextOrDefault(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("prefers context logger", func(t *testing.T) {
		stored := slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx := WithLogger(context.Background(), stored)

		assert.Same(t, stored, FromContextOrDefault(ctx, fallback))
	})

	t.Run("uses fallback when context empty", func(t *testing.T) {
		assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("uses default when fallback nil", func(t *testing.T) {
		assert.Same(t, slog.Default(), FromContextOrDefault(context.Background(), nil))
	})
}
