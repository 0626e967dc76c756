package regionfs

import "errors"

// childSlot reads the inode offset stored in a children table's slot
// idx. Slot 0 is always the directory's parent back-reference, not a
// visible child.
func (f *FS) childSlot(table, idx uint64) (uint64, error) {
	b, err := f.region.slice(table+idx*8, 8)
	if err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b), nil
}

func (f *FS) setChildSlot(table, idx, val uint64) error {
	b, err := f.region.slice(table+idx*8, 8)
	if err != nil {
		return err
	}
	byteOrder.PutUint64(b, val)
	return nil
}

func (f *FS) childrenCapacity(table uint64) (uint64, error) {
	h, err := newFreeHeaderView(f.region, table-allocHeaderSize)
	if err != nil {
		return 0, err
	}
	return h.size() / 8, nil
}

// lookupChild scans dir's children (skipping slot 0) for name.
func (f *FS) lookupChild(dir inodeView, name string) (uint64, error) {
	n := dir.numChildren()
	table := dir.childrenTable()
	for i := uint64(1); i < n; i++ {
		off, err := f.childSlot(table, i)
		if err != nil {
			return 0, err
		}
		child, err := newInodeView(f.region, off)
		if err != nil {
			return 0, err
		}
		if child.name() == name {
			return off, nil
		}
	}
	return 0, ENOENT
}

// appendChild adds childOff to dirOff's children table, doubling the
// table's capacity first if it's full (spec.md §4.5).
func (f *FS) appendChild(dirOff, childOff uint64) error {
	dir, err := newInodeView(f.region, dirOff)
	if err != nil {
		return err
	}
	n := dir.numChildren()
	table := dir.childrenTable()
	cap, err := f.childrenCapacity(table)
	if err != nil {
		return err
	}
	if n == cap {
		newTable, err := f.reallocate(table, cap*2*8)
		if err != nil {
			return ENOSPC
		}
		table = newTable
		dir.setChildrenTable(table)
	}
	if err := f.setChildSlot(table, n, childOff); err != nil {
		return err
	}
	dir.setNumChildren(n + 1)
	return nil
}

// removeChild finds childOff among dirOff's children and removes it by
// swapping in the last slot, keeping the table dense (spec.md §4.5).
func (f *FS) removeChild(dirOff, childOff uint64) error {
	dir, err := newInodeView(f.region, dirOff)
	if err != nil {
		return err
	}
	n := dir.numChildren()
	table := dir.childrenTable()

	idx := uint64(0)
	for i := uint64(1); i < n; i++ {
		off, err := f.childSlot(table, i)
		if err != nil {
			return err
		}
		if off == childOff {
			idx = i
			break
		}
	}
	if idx == 0 {
		return ENOENT
	}

	last := n - 1
	if idx != last {
		lastOff, err := f.childSlot(table, last)
		if err != nil {
			return err
		}
		if err := f.setChildSlot(table, idx, lastOff); err != nil {
			return err
		}
	}
	if err := f.setChildSlot(table, last, 0); err != nil {
		return err
	}
	dir.setNumChildren(last)
	return nil
}

func (f *FS) countSubdirs(dir inodeView) (uint32, error) {
	n := dir.numChildren()
	table := dir.childrenTable()
	var count uint32
	for i := uint64(1); i < n; i++ {
		off, err := f.childSlot(table, i)
		if err != nil {
			return 0, err
		}
		child, err := newInodeView(f.region, off)
		if err != nil {
			return 0, err
		}
		if child.isDir() {
			count++
		}
	}
	return count, nil
}

// create makes a new file or directory entry at path: the parent must
// exist and not already have a child of that name (spec.md §4.5
// "mknod"/"mkdir"). A failure after the inode is allocated rolls the
// allocation back, leaving the region unchanged.
func (f *FS) create(path string, isDir bool) (uint64, error) {
	parentOff, err := f.resolve(path, 1)
	if err != nil {
		return 0, err
	}
	parent, err := newInodeView(f.region, parentOff)
	if err != nil {
		return 0, err
	}
	if !parent.isDir() {
		return 0, ENOTDIR
	}

	name, err := basename(path)
	if err != nil {
		return 0, err
	}

	if _, err := f.lookupChild(parent, name); err == nil {
		return 0, EEXIST
	} else if !errors.Is(err, ENOENT) {
		return 0, err
	}

	inoOff, err := f.allocate(inodeSize)
	if err != nil {
		return 0, ENOSPC
	}
	ino, err := newInodeView(f.region, inoOff)
	if err != nil {
		return 0, err
	}
	if err := ino.setName(name); err != nil {
		f.free(inoOff)
		return 0, err
	}
	now := f.now()
	ino.setAtime(now)
	ino.setMtime(now)

	if isDir {
		ino.setKind(kindDir)
		tableOff, err := f.allocate(initialChildrenSlots * 8)
		if err != nil {
			f.free(inoOff)
			return 0, ENOSPC
		}
		tb, err := f.region.slice(tableOff, initialChildrenSlots*8)
		if err != nil {
			return 0, err
		}
		for i := range tb {
			tb[i] = 0
		}
		if err := f.setChildSlot(tableOff, 0, parentOff); err != nil {
			return 0, err
		}
		ino.setNumChildren(1)
		ino.setChildrenTable(tableOff)
	} else {
		ino.setKind(kindFile)
		ino.setFileSize(0)
		ino.setFirstBlock(0)
	}

	if err := f.appendChild(parentOff, inoOff); err != nil {
		if isDir {
			f.free(ino.childrenTable())
		}
		f.free(inoOff)
		return 0, err
	}
	parent.setMtime(now)

	if f.debug.Has(CheckInvariants) {
		if err := f.checkInvariants(parentOff); err != nil {
			return 0, err
		}
	}
	return inoOff, nil
}

// unlinkFile removes a file entry (spec.md §4.5 "unlink").
func (f *FS) unlinkFile(path string) error {
	off, err := f.resolve(path, 0)
	if err != nil {
		return err
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return err
	}
	if ino.isDir() {
		return EISDIR
	}

	parentOff, err := f.resolve(path, 1)
	if err != nil {
		return err
	}

	if err := f.freeChunkChain(ino.firstBlock()); err != nil {
		return err
	}
	if err := f.free(off); err != nil {
		return err
	}
	if err := f.removeChild(parentOff, off); err != nil {
		return err
	}

	parent, err := newInodeView(f.region, parentOff)
	if err != nil {
		return err
	}
	parent.setMtime(f.now())

	if f.debug.Has(CheckInvariants) {
		return f.checkInvariants(parentOff)
	}
	return nil
}

// rmdir removes an empty directory entry (spec.md §4.5 "rmdir").
func (f *FS) rmdir(path string) error {
	off, err := f.resolve(path, 0)
	if err != nil {
		return err
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return err
	}
	if !ino.isDir() {
		return ENOTDIR
	}
	if ino.numChildren() != 1 {
		return ENOTEMPTY
	}

	parentOff, err := f.resolve(path, 1)
	if err != nil {
		return err
	}

	if err := f.free(ino.childrenTable()); err != nil {
		return err
	}
	if err := f.free(off); err != nil {
		return err
	}
	if err := f.removeChild(parentOff, off); err != nil {
		return err
	}

	parent, err := newInodeView(f.region, parentOff)
	if err != nil {
		return err
	}
	parent.setMtime(f.now())

	if f.debug.Has(CheckInvariants) {
		return f.checkInvariants(parentOff)
	}
	return nil
}

// isAncestorOf reports whether ancestorOff lies on startOff's path to
// root, inclusive of startOff itself — used by rename to reject a move
// that would create a cycle.
func (f *FS) isAncestorOf(ancestorOff, startOff uint64) (bool, error) {
	sb, err := f.sb()
	if err != nil {
		return false, err
	}
	cur := startOff
	for {
		if cur == ancestorOff {
			return true, nil
		}
		if cur == sb.rootOffset() {
			return false, nil
		}
		curIno, err := newInodeView(f.region, cur)
		if err != nil {
			return false, err
		}
		if !curIno.isDir() {
			return false, nil
		}
		parent, err := f.childSlot(curIno.childrenTable(), 0)
		if err != nil {
			return false, err
		}
		cur = parent
	}
}

// rename moves or renames an entry, replacing an existing empty-dir or
// file target of the same kind if present (spec.md §4.5 "rename"). The
// new entry is linked into the destination before the source link is
// removed, so a failure partway through still leaves the entry
// reachable from somewhere.
func (f *FS) rename(oldPath, newPath string) error {
	srcParentOff, err := f.resolve(oldPath, 1)
	if err != nil {
		return err
	}
	srcOff, err := f.resolve(oldPath, 0)
	if err != nil {
		return err
	}
	dstParentOff, err := f.resolve(newPath, 1)
	if err != nil {
		return err
	}

	dstParent, err := newInodeView(f.region, dstParentOff)
	if err != nil {
		return err
	}
	if !dstParent.isDir() {
		return ENOTDIR
	}

	srcName, err := basename(oldPath)
	if err != nil {
		return err
	}
	dstName, err := basename(newPath)
	if err != nil {
		return err
	}

	if anc, err := f.isAncestorOf(srcOff, dstParentOff); err != nil {
		return err
	} else if anc {
		return EINVAL
	}

	srcIno, err := newInodeView(f.region, srcOff)
	if err != nil {
		return err
	}

	if srcParentOff == dstParentOff && srcName == dstName {
		return nil
	}

	if existingOff, lookErr := f.lookupChild(dstParent, dstName); lookErr == nil {
		existing, err := newInodeView(f.region, existingOff)
		if err != nil {
			return err
		}
		if existing.isDir() != srcIno.isDir() {
			if existing.isDir() {
				return EISDIR
			}
			return ENOTDIR
		}
		if existing.isDir() && existing.numChildren() != 1 {
			return ENOTEMPTY
		}

		if existing.isDir() {
			if err := f.free(existing.childrenTable()); err != nil {
				return err
			}
		} else {
			if err := f.freeChunkChain(existing.firstBlock()); err != nil {
				return err
			}
		}
		if err := f.free(existingOff); err != nil {
			return err
		}
		if err := f.removeChild(dstParentOff, existingOff); err != nil {
			return err
		}
	} else if !errors.Is(lookErr, ENOENT) {
		return lookErr
	}

	if err := f.appendChild(dstParentOff, srcOff); err != nil {
		return ENOSPC
	}
	if err := srcIno.setName(dstName); err != nil {
		f.removeChild(dstParentOff, srcOff)
		return err
	}
	if err := f.removeChild(srcParentOff, srcOff); err != nil {
		return err
	}
	if srcIno.isDir() {
		if err := f.setChildSlot(srcIno.childrenTable(), 0, dstParentOff); err != nil {
			return err
		}
	}

	now := f.now()
	if srcParent, err := newInodeView(f.region, srcParentOff); err == nil {
		srcParent.setMtime(now)
	}
	dstParent.setMtime(now)

	if f.debug.Has(CheckInvariants) {
		if err := f.checkInvariants(dstParentOff); err != nil {
			return err
		}
		if srcParentOff != dstParentOff {
			if err := f.checkChildrenTable(srcParentOff); err != nil {
				return err
			}
		}
	}
	return nil
}
