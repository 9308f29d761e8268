// Package di provides dependency injection configuration for the keventdir command.
package di

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/keventdir/keventdir/internal/config"
	"github.com/keventdir/keventdir/internal/di/providers"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetricsRegistry)

	// Watcher
	do.Provide(injector, providers.ProvideWatcher)

	// Server
	do.Provide(injector, providers.ProvideMetricsServer)

	return injector
}

// Bootstrap initializes all services so configuration and platform errors
// surface before the event loop starts.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*slog.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*prometheus.Registry](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.WatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.MetricsServerHandle](injector); err != nil {
		return err
	}
	return nil
}
