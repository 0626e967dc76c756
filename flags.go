package regionfs

import "strings"

// DebugFlags enables optional, opt-in diagnostics on an *FS. None of these
// change on-region layout or semantics; they only add extra validation
// work on the hot path, so production mounts leave them off.
type DebugFlags uint16

const (
	// CheckInvariants re-walks the free list after every allocator call
	// (allocate/free/insertFree) and the touched directory's children
	// table after every mknod/mkdir/unlink/rmdir/rename, failing fast
	// with EFAULT if §8's invariants don't hold. Useful in tests,
	// expensive in production.
	CheckInvariants DebugFlags = 1 << iota
	// LogOperations logs one line per entry-point call via the standard
	// log package, mirroring the teacher's log.Printf diagnostics.
	LogOperations
)

func (f DebugFlags) String() string {
	var opt []string

	if f&CheckInvariants != 0 {
		opt = append(opt, "CheckInvariants")
	}
	if f&LogOperations != 0 {
		opt = append(opt, "LogOperations")
	}

	return strings.Join(opt, "|")
}

func (f DebugFlags) Has(what DebugFlags) bool {
	return f&what == what
}
