package providers

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/keventdir/keventdir/internal/api"
	"github.com/keventdir/keventdir/internal/config"
)

// MetricsServerHandle wraps the metrics HTTP server with Shutdownable.
// Server is nil when no listen address is configured.
type MetricsServerHandle struct {
	*http.Server
	log *slog.Logger

	shutdownOnce sync.Once
	shutdownErr  error
}

// Serve listens on the configured address until the context is cancelled or
// the server is shut down. It returns immediately when the endpoint is disabled.
func (h *MetricsServerHandle) Serve(ctx context.Context) error {
	if h.Server == nil {
		return nil
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", h.Addr)
	if err != nil {
		return err
	}

	h.log.Info("metrics server starting", "addr", ln.Addr().String())
	if err := h.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown implements do.Shutdownable. Only the first call stops the server.
func (h *MetricsServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	h.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.shutdownErr = h.Server.Shutdown(ctx)
	})
	return h.shutdownErr
}

// ProvideMetricsServer provides the /metrics and /healthz HTTP server.
func ProvideMetricsServer(i do.Injector) (*MetricsServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)
	reg := do.MustInvoke[*prometheus.Registry](i)

	if cfg.Metrics.Listen == "" {
		log.Debug("metrics endpoint disabled")
		return &MetricsServerHandle{log: log}, nil
	}

	srv := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           api.NewServer(reg, log),
		ReadHeaderTimeout: cfg.Metrics.ReadTimeout,
		ReadTimeout:       cfg.Metrics.ReadTimeout,
		WriteTimeout:      cfg.Metrics.WriteTimeout,
	}

	return &MetricsServerHandle{Server: srv, log: log}, nil
}
