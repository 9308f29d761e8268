// Package kqueue wraps the BSD kernel event queue for EVFILT_VNODE interest.
//
// The queue reports changes against open file descriptors, never against
// paths. Category bits are translated into the portable Note set so callers
// can classify records without importing platform constants.
package kqueue

import "strings"

// Note is a set of vnode change categories carried by a single record.
type Note uint32

// Vnode change categories.
const (
	NoteDelete Note = 1 << iota
	NoteWrite
	NoteExtend
	NoteLink
	NoteRename
	NoteRevoke
)

// Interest is the category set requested for every registered handle.
const Interest = NoteDelete | NoteWrite | NoteExtend | NoteLink | NoteRename | NoteRevoke

var noteNames = []struct {
	note Note
	name string
}{
	{NoteDelete, "DELETE"},
	{NoteWrite, "WRITE"},
	{NoteExtend, "EXTEND"},
	{NoteLink, "LINK"},
	{NoteRename, "RENAME"},
	{NoteRevoke, "REVOKE"},
}

// Has reports whether every bit of other is set in n.
func (n Note) Has(other Note) bool {
	return other != 0 && n&other == other
}

// String returns the set bits joined by "|".
func (n Note) String() string {
	if n == 0 {
		return "NONE"
	}
	parts := make([]string, 0, len(noteNames))
	for _, nn := range noteNames {
		if n&nn.note != 0 {
			parts = append(parts, nn.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Record is one raw notification returned by Poll.
type Record struct {
	// Ident is the descriptor the interest was registered on.
	Ident uint64

	// Notes holds the change categories reported for Ident.
	Notes Note

	// Err is set when the kernel flagged this record with EV_ERROR.
	// It is the errno from the record's data field.
	Err error
}
