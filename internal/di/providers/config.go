// Package providers contains dependency injection providers for the keventdir command.
package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/keventdir/keventdir/internal/config"
	"github.com/keventdir/keventdir/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*slog.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	level, err := logger.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return nil, err
	}

	log := logger.New(loggerConfig(cfg, level))

	log.Info("starting keventdir",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"roots", cfg.Roots,
	)

	return log, nil
}

func loggerConfig(cfg *config.Config, level slog.Level) logger.Config {
	return logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       level,
		AddSource:   cfg.App.Environment == "development" && level == slog.LevelDebug,
		NoColor:     cfg.Logger.NoColor,
	}
}
