package regionfs

import "time"

// MountOption configures an *FS at Mount time.
type MountOption func(f *FS)

// WithDebugFlags turns on one or more opt-in diagnostics (see flags.go).
func WithDebugFlags(flags DebugFlags) MountOption {
	return func(f *FS) {
		f.debug = flags
	}
}

// WithClock overrides the time source used to stamp atime/mtime. Tests use
// this to get deterministic, advanceable timestamps instead of time.Now.
func WithClock(now func() time.Time) MountOption {
	return func(f *FS) {
		f.now = now
	}
}
