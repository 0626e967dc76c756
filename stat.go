package regionfs

import "time"

// Attr is the result of Getattr (spec.md §4.7 "getattr").
type Attr struct {
	Mode  uint32
	Nlink uint32
	Size  uint64
	Atime time.Time
	Mtime time.Time
}

// StatFS is the result of Statfs (spec.md §4.7 "statfs").
type StatFS struct {
	BlockSize  uint32
	Blocks     uint64
	BlocksFree uint64
	NameMax    uint32
}
