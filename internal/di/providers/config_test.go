package providers

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/keventdir/keventdir/internal/config"
)

func TestLoggerConfig(t *testing.T) {
	cfg := &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Format: "pretty", NoColor: true},
	}

	lc := loggerConfig(cfg, slog.LevelDebug)
	assert.Equal(t, "pretty", lc.Format)
	assert.Equal(t, "development", lc.Environment)
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.True(t, lc.AddSource)
	assert.True(t, lc.NoColor)

	cfg.Logger.NoColor = false
	cfg.App.Environment = "production"
	lc = loggerConfig(cfg, slog.LevelDebug)
	assert.False(t, lc.AddSource)
	assert.False(t, lc.NoColor)
}
