// Package keventdir watches directory trees with the BSD kqueue facility.
//
// kqueue reports changes per open descriptor, not per directory tree: it says
// "this vnode was written" but never "a file named x appeared" or "this file
// is now called y". A Watcher bridges the gap. It keeps one descriptor per
// watched path and turns every kernel record into an Event, then updates its
// registry:
//
//	Delete  drop the entry
//	Revoke  drop the entry and everything below it
//	Rename  drop the subtree, then rescan every scan root
//	Link    walk the path and register anything new
//	Write   walk the path and register anything new
//	Extend  nothing
//	Other   nothing
//
// Rename destinations are unknown to the kernel, so they are rediscovered by
// the rescan. This costs one descriptor per file and directory; use it on
// trees of moderate size with infrequent renames.
//
// Basic use:
//
//	w, err := keventdir.New(logger, keventdir.Options{})
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	w.AddRecursiveRescan("/srv/data")
//	if _, err := w.Rescan(); err != nil {
//	    return err
//	}
//	for ev, err := range w.Events() {
//	    if err != nil {
//	        log.Println(err)
//	        continue
//	    }
//	    fmt.Println(ev)
//	}
//
// A Watcher is not safe for concurrent use. Callers that need to add or
// remove paths from another goroutine must serialize access themselves.
package keventdir
