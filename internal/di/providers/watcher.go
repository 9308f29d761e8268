package providers

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/keventdir/keventdir/internal/config"
	"github.com/keventdir/keventdir/pkg/keventdir"
)

// WatcherHandle wraps the watcher with shutdown capability.
type WatcherHandle struct {
	*keventdir.Watcher
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	return h.Watcher.Close()
}

// ProvideWatcher provides the kqueue directory watcher with every configured
// root recorded for rescans. Nothing is registered until the first Rescan.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	reg := do.MustInvoke[*prometheus.Registry](i)

	w, err := keventdir.New(log, keventdir.Options{
		IgnorePatterns: cfg.Watch.Ignore,
		IgnoreHidden:   cfg.Watch.IgnoreHidden,
		ChunkSize:      cfg.Watch.ChunkSize,
		Registerer:     reg,
	})
	if err != nil {
		return nil, err
	}

	for _, root := range cfg.Roots {
		if !w.AddRecursiveRescan(root) {
			log.Warn("duplicate root ignored", "root", root)
		}
	}

	return &WatcherHandle{Watcher: w}, nil
}
