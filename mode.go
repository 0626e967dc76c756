package regionfs

import "io/fs"

// regionfs publishes a fixed mode for every inode: S_IFDIR|0755 for
// directories, S_IFREG|0755 for files (spec.md §1 Non-goals: no access
// control beyond a fixed published mode). These helpers translate that
// fixed mode between Go's fs.FileMode and the raw unix mode bits a FUSE
// harness or stat(2) caller expects.
// based on: https://golang.org/src/os/stat_linux.go

const (
	S_IFMT  = 0xf000
	S_IFREG = 0x8000
	S_IFDIR = 0x4000

	publishedPerm = 0755
)

// UnixToMode converts a raw unix mode word into a Go fs.FileMode.
func UnixToMode(mode uint32) fs.FileMode {
	res := fs.FileMode(mode & 0777)

	switch {
	case mode&S_IFDIR == S_IFDIR:
		res |= fs.ModeDir
	}

	return res
}

// ModeToUnix converts a Go fs.FileMode into the raw unix mode word
// regionfs publishes for getattr/FUSE attribute fills.
func ModeToUnix(mode fs.FileMode) uint32 {
	res := uint32(mode.Perm())

	if mode&fs.ModeDir == fs.ModeDir {
		res |= S_IFDIR
	} else {
		res |= S_IFREG
	}

	return res
}
