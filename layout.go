package regionfs

import (
	"encoding/binary"
	"time"
)

var byteOrder = binary.LittleEndian

// Fixed constants of the on-region layout (spec.md §3, §6). Unlike the
// teacher's squashfs tables, every one of these records is read AND
// written in place by this package, so the layout is hand-rolled with
// encoding/binary rather than decoded through reflection once at load
// time.
const (
	// Magic marks a region that has already been formatted.
	Magic uint32 = 0xADDBEEF

	// NameMaxLen bounds an inode's basename, not counting the NUL
	// terminator.
	NameMaxLen = 255

	// BlockSize is the ceiling on a single file-block's payload.
	BlockSize uint32 = 1024

	// minRegionSize is the smallest buffer Mount accepts: enough room
	// for the superblock, the root inode, its initial children table
	// and at least one free block.
	minRegionSize = 2048

	initialChildrenSlots = 4

	kindFile = 0
	kindDir  = 1
)

// Record sizes, little-endian, fixed width.
const (
	superblockSize = 4 + 8 + 8 + 8 // Magic, TotalSize, RootOffset, FreeListHead

	allocHeaderSize = 8 + 8 // Size, Next

	nameFieldSize = NameMaxLen + 1 // NUL-terminated
	inodeSize     = nameFieldSize + 8 + 8 + 1 + 7 + 8 + 8

	fileBlockHeaderSize = 4 + 4 + 8 + 8 // Capacity, Used, Next, Data

	rootInodeOffset = superblockSize
)

const (
	sbOffMagic    = 0
	sbOffTotal    = 4
	sbOffRoot     = 12
	sbOffFreeHead = 20
)

// superblockView reads/writes the fixed-layout superblock at offset 0.
type superblockView struct{ b []byte }

func newSuperblockView(r *Region) (superblockView, error) {
	b, err := r.slice(0, superblockSize)
	if err != nil {
		return superblockView{}, err
	}
	return superblockView{b: b}, nil
}

func (v superblockView) magic() uint32         { return byteOrder.Uint32(v.b[sbOffMagic : sbOffMagic+4]) }
func (v superblockView) setMagic(m uint32)     { byteOrder.PutUint32(v.b[sbOffMagic:sbOffMagic+4], m) }
func (v superblockView) totalSize() uint64     { return byteOrder.Uint64(v.b[sbOffTotal : sbOffTotal+8]) }
func (v superblockView) setTotalSize(n uint64) { byteOrder.PutUint64(v.b[sbOffTotal:sbOffTotal+8], n) }
func (v superblockView) rootOffset() uint64    { return byteOrder.Uint64(v.b[sbOffRoot : sbOffRoot+8]) }
func (v superblockView) setRootOffset(o uint64) {
	byteOrder.PutUint64(v.b[sbOffRoot:sbOffRoot+8], o)
}
func (v superblockView) freeListHead() uint64 {
	return byteOrder.Uint64(v.b[sbOffFreeHead : sbOffFreeHead+8])
}
func (v superblockView) setFreeListHead(o uint64) {
	byteOrder.PutUint64(v.b[sbOffFreeHead:sbOffFreeHead+8], o)
}

// freeHeaderView reads/writes the 16-byte header that precedes every
// allocation, free or live: Size is the payload byte count that follows
// the header, Next is the free-list successor offset (meaningless while
// the block is allocated).
type freeHeaderView struct{ b []byte }

func newFreeHeaderView(r *Region, off uint64) (freeHeaderView, error) {
	b, err := r.slice(off, allocHeaderSize)
	if err != nil {
		return freeHeaderView{}, err
	}
	return freeHeaderView{b: b}, nil
}

func (v freeHeaderView) size() uint64     { return byteOrder.Uint64(v.b[0:8]) }
func (v freeHeaderView) setSize(n uint64) { byteOrder.PutUint64(v.b[0:8], n) }
func (v freeHeaderView) next() uint64     { return byteOrder.Uint64(v.b[8:16]) }
func (v freeHeaderView) setNext(n uint64) { byteOrder.PutUint64(v.b[8:16], n) }

const (
	inoOffName  = 0
	inoOffAtime = nameFieldSize
	inoOffMtime = inoOffAtime + 8
	inoOffKind  = inoOffMtime + 8
	// 7 reserved bytes follow the kind tag, keeping the two 8-byte
	// payload fields aligned.
	inoOffPayloadA = inoOffKind + 1 + 7
	inoOffPayloadB = inoOffPayloadA + 8
)

// inodeView reads/writes a fixed-layout inode record: name, atime,
// mtime, a file-vs-directory kind tag, and two discriminated payload
// words (file size + first block for a file; child count + children
// table offset for a directory).
type inodeView struct{ b []byte }

func newInodeView(r *Region, off uint64) (inodeView, error) {
	b, err := r.slice(off, inodeSize)
	if err != nil {
		return inodeView{}, err
	}
	return inodeView{b: b}, nil
}

func (v inodeView) name() string {
	n := v.b[inoOffName : inoOffName+nameFieldSize]
	i := 0
	for i < len(n) && n[i] != 0 {
		i++
	}
	return string(n[:i])
}

func (v inodeView) setName(name string) error {
	if len(name) > NameMaxLen {
		return ENAMETOOLONG
	}
	n := v.b[inoOffName : inoOffName+nameFieldSize]
	for i := range n {
		n[i] = 0
	}
	copy(n, name)
	return nil
}

func (v inodeView) atime() time.Time {
	return time.Unix(int64(byteOrder.Uint64(v.b[inoOffAtime:inoOffAtime+8])), 0).UTC()
}
func (v inodeView) setAtime(t time.Time) {
	byteOrder.PutUint64(v.b[inoOffAtime:inoOffAtime+8], uint64(t.Unix()))
}
func (v inodeView) mtime() time.Time {
	return time.Unix(int64(byteOrder.Uint64(v.b[inoOffMtime:inoOffMtime+8])), 0).UTC()
}
func (v inodeView) setMtime(t time.Time) {
	byteOrder.PutUint64(v.b[inoOffMtime:inoOffMtime+8], uint64(t.Unix()))
}

func (v inodeView) kind() uint8     { return v.b[inoOffKind] }
func (v inodeView) setKind(k uint8) { v.b[inoOffKind] = k }
func (v inodeView) isDir() bool     { return v.kind() == kindDir }

func (v inodeView) payloadA() uint64 {
	return byteOrder.Uint64(v.b[inoOffPayloadA : inoOffPayloadA+8])
}
func (v inodeView) setPayloadA(x uint64) {
	byteOrder.PutUint64(v.b[inoOffPayloadA:inoOffPayloadA+8], x)
}
func (v inodeView) payloadB() uint64 {
	return byteOrder.Uint64(v.b[inoOffPayloadB : inoOffPayloadB+8])
}
func (v inodeView) setPayloadB(x uint64) {
	byteOrder.PutUint64(v.b[inoOffPayloadB:inoOffPayloadB+8], x)
}

// File payload: size in PayloadA, offset of the first file-block in
// PayloadB (0 for an empty file).
func (v inodeView) fileSize() uint64       { return v.payloadA() }
func (v inodeView) setFileSize(n uint64)   { v.setPayloadA(n) }
func (v inodeView) firstBlock() uint64     { return v.payloadB() }
func (v inodeView) setFirstBlock(o uint64) { v.setPayloadB(o) }

// Directory payload: child count (slot 0 is the parent back-reference,
// so an empty directory has numChildren()==1) in PayloadA, the children
// table's offset in PayloadB.
func (v inodeView) numChildren() uint64       { return v.payloadA() }
func (v inodeView) setNumChildren(n uint64)   { v.setPayloadA(n) }
func (v inodeView) childrenTable() uint64     { return v.payloadB() }
func (v inodeView) setChildrenTable(o uint64) { v.setPayloadB(o) }

const (
	fbOffCapacity = 0
	fbOffUsed     = 4
	fbOffNext     = 8
	fbOffData     = 16
)

// fileBlockView reads/writes one link of a file's content chain:
// Capacity and Used bound the payload at Data, Next chains to the
// following block (0 terminates).
type fileBlockView struct{ b []byte }

func newFileBlockView(r *Region, off uint64) (fileBlockView, error) {
	b, err := r.slice(off, fileBlockHeaderSize)
	if err != nil {
		return fileBlockView{}, err
	}
	return fileBlockView{b: b}, nil
}

func (v fileBlockView) capacity() uint32 {
	return byteOrder.Uint32(v.b[fbOffCapacity : fbOffCapacity+4])
}
func (v fileBlockView) setCapacity(c uint32) {
	byteOrder.PutUint32(v.b[fbOffCapacity:fbOffCapacity+4], c)
}
func (v fileBlockView) used() uint32 { return byteOrder.Uint32(v.b[fbOffUsed : fbOffUsed+4]) }
func (v fileBlockView) setUsed(u uint32) {
	byteOrder.PutUint32(v.b[fbOffUsed:fbOffUsed+4], u)
}
func (v fileBlockView) next() uint64     { return byteOrder.Uint64(v.b[fbOffNext : fbOffNext+8]) }
func (v fileBlockView) setNext(n uint64) { byteOrder.PutUint64(v.b[fbOffNext:fbOffNext+8], n) }
func (v fileBlockView) data() uint64     { return byteOrder.Uint64(v.b[fbOffData : fbOffData+8]) }
func (v fileBlockView) setData(d uint64) { byteOrder.PutUint64(v.b[fbOffData:fbOffData+8], d) }
