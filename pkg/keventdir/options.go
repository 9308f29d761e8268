package keventdir

import (
	"slices"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keventdir/keventdir/internal/registry"
)

const hiddenPattern = ".*"

// Options configures a Watcher.
type Options struct {
	// IgnorePatterns are glob patterns matched against base names during
	// scans. Matching directories are not descended. Empty means watch
	// everything.
	IgnorePatterns []string

	// IgnoreHidden skips dot-files and dot-directories below each root.
	IgnoreHidden bool

	// ChunkSize caps the number of interest records per kevent call.
	ChunkSize int

	// Registerer receives the watcher's Prometheus collectors. Nil leaves
	// them unregistered.
	Registerer prometheus.Registerer

	queue   queue
	handles registry.Handles
	scanner pathScanner
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = registry.DefaultChunkSize
	}
	if o.IgnoreHidden && !slices.Contains(o.IgnorePatterns, hiddenPattern) {
		o.IgnorePatterns = append(slices.Clone(o.IgnorePatterns), hiddenPattern)
	}
	if o.handles == nil {
		o.handles = registry.SystemHandles{}
	}
}
