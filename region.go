package regionfs

// Region is the Go rendition of spec.md §4.1's offset/pointer
// translation. The backing bytes may be remapped at an arbitrary address
// between mounts (a fresh mmap, a different host allocation after a
// remount), so nothing above this file ever stores a Go pointer into the
// region — only uint64 byte offsets from the region's base. Region is
// the one place an offset is turned into addressable bytes, and the one
// place an offset is bounds-checked.
type Region struct {
	buf []byte
}

// NewRegion wraps a caller-owned byte slice. The caller guarantees
// len(buf) is the true region length; regionfs never resizes it.
func NewRegion(buf []byte) *Region {
	return &Region{buf: buf}
}

// Len returns the region's total byte length.
func (r *Region) Len() uint64 {
	return uint64(len(r.buf))
}

// Bytes exposes the raw backing slice, e.g. for Snapshot/Restore.
func (r *Region) Bytes() []byte {
	return r.buf
}

// valid reports whether the half-open byte range [off, off+n) lies
// entirely inside the region, rejecting the integer overflow a corrupt
// on-region offset could otherwise trigger.
func (r *Region) valid(off, n uint64) bool {
	if off > r.Len() {
		return false
	}
	end := off + n
	if end < off {
		return false
	}
	return end <= r.Len()
}

// slice returns the n bytes at off, or EFAULT if they fall outside the
// region — the only error an on-region read can produce once the region
// itself has been validated at Mount time.
func (r *Region) slice(off, n uint64) ([]byte, error) {
	if !r.valid(off, n) {
		return nil, EFAULT
	}
	return r.buf[off : off+n], nil
}
