package regionfs

import "time"

// FS is a mounted region: the single entry point for all thirteen
// operations. It carries no open-file state — every entry point
// resolves its path fresh against the region (spec.md §5).
type FS struct {
	region *Region
	debug  DebugFlags
	now    func() time.Time
}

// Mount formats buf on first use and opens it on every subsequent call
// (spec.md §4.3). A second Mount of an already-formatted region is a
// pure read of the existing superblock: no byte in the region changes,
// satisfying the idempotent-mount law (spec.md §8).
func Mount(buf []byte, opts ...MountOption) (*FS, error) {
	if uint64(len(buf)) < minRegionSize {
		return nil, EINVAL
	}

	f := &FS{region: NewRegion(buf), now: time.Now}
	for _, o := range opts {
		o(f)
	}

	sb, err := newSuperblockView(f.region)
	if err != nil {
		return nil, err
	}

	switch sb.magic() {
	case Magic:
		if sb.totalSize() != f.region.Len() {
			return nil, EFAULT
		}
		return f, nil
	case 0:
		if err := f.formatFresh(sb); err != nil {
			return nil, err
		}
		return f, nil
	default:
		// Neither an empty buffer nor a previously formatted one: the
		// caller handed us bytes that were never ours.
		return nil, EFAULT
	}
}

// formatFresh lays down the superblock, the root inode at its fixed
// offset, the root's initial 4-slot children table, and a single free
// block covering the remainder of the region (spec.md §4.3).
func (f *FS) formatFresh(sb superblockView) error {
	total := f.region.Len()

	root, err := newInodeView(f.region, rootInodeOffset)
	if err != nil {
		return err
	}
	if err := root.setName("/"); err != nil {
		return err
	}
	now := f.now()
	root.setAtime(now)
	root.setMtime(now)
	root.setKind(kindDir)

	tableHeaderOff := uint64(rootInodeOffset + inodeSize)
	tableHeader, err := newFreeHeaderView(f.region, tableHeaderOff)
	if err != nil {
		return err
	}
	tablePayloadOff := tableHeaderOff + allocHeaderSize
	tableHeader.setSize(uint64(initialChildrenSlots) * 8)
	tableHeader.setNext(0)

	tableBytes, err := f.region.slice(tablePayloadOff, uint64(initialChildrenSlots)*8)
	if err != nil {
		return err
	}
	for i := range tableBytes {
		tableBytes[i] = 0 // slot 0: root has no parent, so its back-reference is 0
	}

	root.setNumChildren(1)
	root.setChildrenTable(tablePayloadOff)

	freeOff := tablePayloadOff + uint64(initialChildrenSlots)*8
	freeHeader, err := newFreeHeaderView(f.region, freeOff)
	if err != nil {
		return err
	}
	freeHeader.setSize(total - freeOff - allocHeaderSize)
	freeHeader.setNext(0)

	sb.setTotalSize(total)
	sb.setRootOffset(rootInodeOffset)
	sb.setFreeListHead(freeOff)
	sb.setMagic(Magic)
	return nil
}

func (f *FS) sb() (superblockView, error) {
	return newSuperblockView(f.region)
}

// RawBytes exposes the mounted region's backing bytes, e.g. to persist
// them to a file after an in-memory Restore.
func (f *FS) RawBytes() []byte {
	return f.region.Bytes()
}
