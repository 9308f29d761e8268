package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keventdir/keventdir/internal/api"
)

func TestMetricsServerHandle_Disabled(t *testing.T) {
	h := &MetricsServerHandle{log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	assert.NoError(t, h.Serve(context.Background()))
	assert.NoError(t, h.Shutdown())
}

func TestMetricsServerHandle_ServeAndShutdown(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &MetricsServerHandle{
		Server: &http.Server{
			Addr:              "127.0.0.1:0",
			Handler:           api.NewServer(prometheus.NewRegistry(), log),
			ReadHeaderTimeout: time.Second,
		},
		log: log,
	}

	done := make(chan error, 1)
	go func() { done <- h.Serve(context.Background()) }()

	require.Eventually(t, func() bool {
		return h.Shutdown() == nil
	}, 5*time.Second, 10*time.Millisecond)
	assert.NoError(t, h.Shutdown(), "second shutdown is a no-op")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
