// Package main provides the keventdir command: it watches directory trees
// with kqueue and prints every reconciled change as "path: Kind".
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"

	"github.com/keventdir/keventdir/internal/config"
	"github.com/keventdir/keventdir/internal/di"
	"github.com/keventdir/keventdir/internal/di/providers"
	"github.com/keventdir/keventdir/pkg/keventdir"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "keventdir: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	injector := di.NewContainer(cfg)
	if err := di.Bootstrap(injector); err != nil {
		return fmt.Errorf("failed to bootstrap: %w", err)
	}

	log := do.MustInvoke[*slog.Logger](injector)
	watcher := do.MustInvoke[*providers.WatcherHandle](injector)
	server := do.MustInvoke[*providers.MetricsServerHandle](injector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	added, err := watcher.Rescan()
	if err != nil {
		log.Warn("initial scan incomplete", "error", err)
	}
	log.Info("monitoring descriptors", "count", watcher.Len(), "added", added)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx)
	})
	g.Go(func() error {
		defer func() {
			if err := server.Shutdown(); err != nil {
				log.Warn("metrics server shutdown failed", "error", err)
			}
		}()
		return watchLoop(gctx, watcher.Watcher, cfg.Watch, out, log)
	})
	loopErr := g.Wait()

	for _, root := range watcher.Roots() {
		dropped := watcher.RemoveRecursive(root)
		log.Info("dropped descriptors", "root", root, "count", dropped)
	}

	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}

	return loopErr
}

// poller is the part of the watcher the event loop drives.
type poller interface {
	Poll(timeout time.Duration) (keventdir.Event, bool, error)
}

// watchLoop prints events until MaxEvents have been seen, ctx is done, or
// polling fails. Polling in PollTimeout slices keeps it responsive to ctx.
func watchLoop(ctx context.Context, w poller, cfg config.WatchConfig, out io.Writer, log *slog.Logger) error {
	seen := 0
	for cfg.MaxEvents == 0 || seen < cfg.MaxEvents {
		if ctx.Err() != nil {
			log.Info("interrupted", "events", seen)
			return nil
		}

		ev, ok, err := w.Poll(cfg.PollTimeout)
		switch {
		case err == nil, ok:
			// A failed registry update still carries its event; the
			// watcher has already logged it.
		case errors.Is(err, keventdir.ErrRecord):
			log.Warn("kernel flagged event record", "error", err)
			continue
		default:
			return fmt.Errorf("event loop stopped: %w", err)
		}
		if !ok {
			continue
		}

		if _, err := fmt.Fprintln(out, ev); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		seen++
	}

	log.Info("event limit reached", "events", seen)
	return nil
}
