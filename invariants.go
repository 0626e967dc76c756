package regionfs

// maxFreeListWalk bounds checkFreeList's iteration count so a corrupt
// cyclic free list fails fast instead of looping forever.
const maxFreeListWalk = 1 << 20

// checkInvariants re-walks the free list and, when dirOff names a
// directory, its children table, failing with EFAULT if spec.md §8's
// invariants don't hold. The mutating entry points in inode.go call this,
// and alloc.go's allocate and insertFree call its checkFreeList half,
// only when f.debug.Has(CheckInvariants) is set.
func (f *FS) checkInvariants(dirOff uint64) error {
	if err := f.checkFreeList(); err != nil {
		return err
	}
	if dirOff != 0 {
		if err := f.checkChildrenTable(dirOff); err != nil {
			return err
		}
	}
	return nil
}

// checkFreeList verifies the free list is address-ordered, every block
// fits inside the region, and no two blocks overlap (spec.md §8: the
// free list is always address-ordered and coalesced).
func (f *FS) checkFreeList() error {
	sb, err := f.sb()
	if err != nil {
		return EFAULT
	}

	var prevEnd uint64
	cur := sb.freeListHead()
	for steps := 0; cur != 0; steps++ {
		if steps >= maxFreeListWalk {
			return EFAULT
		}
		if cur < prevEnd {
			return EFAULT
		}
		h, err := newFreeHeaderView(f.region, cur)
		if err != nil {
			return EFAULT
		}
		end := cur + allocHeaderSize + h.size()
		if end > f.region.Len() {
			return EFAULT
		}
		prevEnd = end
		cur = h.next()
	}
	return nil
}

// checkChildrenTable verifies dirOff's children table reports no more
// entries than it has room for, and that every live slot names an
// in-bounds, named child inode (spec.md §8: a directory's children table
// never overruns its own capacity, and every slot names a live child).
func (f *FS) checkChildrenTable(dirOff uint64) error {
	dir, err := newInodeView(f.region, dirOff)
	if err != nil {
		return EFAULT
	}
	if !dir.isDir() {
		return nil
	}

	n := dir.numChildren()
	table := dir.childrenTable()
	cap, err := f.childrenCapacity(table)
	if err != nil {
		return EFAULT
	}
	if n == 0 || n > cap {
		return EFAULT
	}

	for i := uint64(1); i < n; i++ {
		off, err := f.childSlot(table, i)
		if err != nil {
			return EFAULT
		}
		child, err := newInodeView(f.region, off)
		if err != nil {
			return EFAULT
		}
		if child.name() == "" {
			return EFAULT
		}
	}
	return nil
}
