package keventdir

import "github.com/keventdir/keventdir/internal/kqueue"

// EventKind is the single category a kernel record is reduced to.
type EventKind int

const (
	// EventDelete is emitted when the watched vnode was unlinked.
	EventDelete EventKind = iota
	// EventExtend is emitted when a file grew without any higher-priority change.
	EventExtend
	// EventLink is emitted when the link count changed, e.g. a subdirectory
	// was created or removed.
	EventLink
	// EventOther is emitted for records without a recognized category.
	EventOther
	// EventRename is emitted when the watched vnode was renamed.
	EventRename
	// EventRevoke is emitted when access was revoked, e.g. on unmount.
	EventRevoke
	// EventWrite is emitted when a file was written or a directory's entries changed.
	EventWrite
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventDelete:
		return "Delete"
	case EventExtend:
		return "Extend"
	case EventLink:
		return "Link"
	case EventOther:
		return "Other"
	case EventRename:
		return "Rename"
	case EventRevoke:
		return "Revoke"
	case EventWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// Event is one reconciled change.
type Event struct {
	// Path is the registered path of the descriptor the kernel reported.
	Path string

	// Kind is the highest-priority category in the record.
	Kind EventKind
}

// String formats the event as "path: Kind".
func (e Event) String() string {
	return e.Path + ": " + e.Kind.String()
}

// precedence is evaluated top to bottom; the first matching bit wins.
var precedence = []struct {
	note kqueue.Note
	kind EventKind
}{
	{kqueue.NoteDelete, EventDelete},
	{kqueue.NoteRevoke, EventRevoke},
	{kqueue.NoteRename, EventRename},
	{kqueue.NoteLink, EventLink},
	{kqueue.NoteWrite, EventWrite},
	{kqueue.NoteExtend, EventExtend},
}

func classify(notes kqueue.Note) EventKind {
	for _, p := range precedence {
		if notes.Has(p.note) {
			return p.kind
		}
	}
	return EventOther
}
