package regionfs

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression selects the codec used by Snapshot/Restore. The region
// itself is never compressed in place — bit-exact remount depends on
// every byte staying where the superblock's offsets say it is — so
// compression only ever applies to an exported copy (spec.md §4.3
// "Mount is bit-exact": this is the escape hatch for moving a region
// over the wire or onto cold storage without paying that cost live).
type Compression int

const (
	CompNone Compression = iota
	CompZstd
	CompXZ
)

// snapshotMagic marks the start of a Snapshot-produced stream so Restore
// can reject arbitrary input before it ever tries to decompress it.
const snapshotMagic uint32 = 0x52465348 // "RFSH"

// snapshotHeaderSize is magic(4) + compressor id(1) + reserved(3) +
// uncompressed size(8), always written in plain bytes ahead of the
// (possibly compressed) region payload, mirroring the teacher's
// per-block compression framing in tablereader.go's readBlock.
const snapshotHeaderSize = 16

// Snapshot writes a small plaintext header (magic, compressor id,
// uncompressed size) followed by a copy of the live region, optionally
// compressed, to w. The region is read as-is; callers that need a
// consistent point in time must serialize writers themselves (spec.md
// §5: serialization is the harness's job, not the core's).
func (f *FS) Snapshot(w io.Writer, c Compression) error {
	if c != CompNone && c != CompZstd && c != CompXZ {
		return EINVAL
	}

	hdr := make([]byte, snapshotHeaderSize)
	byteOrder.PutUint32(hdr[0:4], snapshotMagic)
	hdr[4] = byte(c)
	byteOrder.PutUint64(hdr[8:16], f.region.Len())
	if _, err := w.Write(hdr); err != nil {
		return err
	}

	switch c {
	case CompNone:
		_, err := w.Write(f.region.Bytes())
		return err
	case CompZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(f.region.Bytes()); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case CompXZ:
		xw, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := xw.Write(f.region.Bytes()); err != nil {
			xw.Close()
			return err
		}
		return xw.Close()
	}
	return nil
}

// Restore reads a header written by Snapshot, validates its magic,
// decompresses the payload with whichever codec the header names, and
// mounts the result — an *FS identical (byte for byte, once
// decompressed) to the one Snapshot was called on. Unlike Snapshot, the
// caller does not supply the compression mode: the header is the single
// source of truth for it, so a snapshot can be restored without the
// caller remembering how it was written.
func Restore(r io.Reader, opts ...MountOption) (*FS, error) {
	hdr := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	if byteOrder.Uint32(hdr[0:4]) != snapshotMagic {
		return nil, EFAULT
	}
	c := Compression(hdr[4])
	size := byteOrder.Uint64(hdr[8:16])

	var plain io.Reader
	switch c {
	case CompNone:
		plain = r
	case CompZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		plain = zr
	case CompXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		plain = xr
	default:
		return nil, EFAULT
	}

	var buf bytes.Buffer
	buf.Grow(int(size))
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, err
	}
	if uint64(buf.Len()) != size {
		return nil, EFAULT
	}
	return Mount(buf.Bytes(), opts...)
}
