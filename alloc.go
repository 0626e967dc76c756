package regionfs

// allocate scans the address-ordered free list and hands back the
// payload offset of the largest free block that fits size bytes,
// splitting off its unused tail when the remainder is worth keeping
// (spec.md §4.2 "Allocate").
func (f *FS) allocate(size uint64) (uint64, error) {
	if size == 0 {
		size = 1
	}

	sb, err := f.sb()
	if err != nil {
		return 0, err
	}

	var bestOff, bestPrev, bestSize uint64
	found := false

	prev := uint64(0)
	cur := sb.freeListHead()
	for cur != 0 {
		h, err := newFreeHeaderView(f.region, cur)
		if err != nil {
			return 0, err
		}
		if h.size() >= size && (!found || h.size() > bestSize) {
			bestOff, bestPrev, bestSize, found = cur, prev, h.size(), true
		}
		prev = cur
		cur = h.next()
	}

	if !found {
		return 0, ENOSPC
	}

	h, err := newFreeHeaderView(f.region, bestOff)
	if err != nil {
		return 0, err
	}
	next := h.next()
	residual := bestSize - size

	if residual > allocHeaderSize {
		tailOff := bestOff + allocHeaderSize + size
		tail, err := newFreeHeaderView(f.region, tailOff)
		if err != nil {
			return 0, err
		}
		tail.setSize(residual - allocHeaderSize)
		tail.setNext(next)
		h.setSize(size)
		if err := f.linkAfter(sb, bestPrev, tailOff); err != nil {
			return 0, err
		}
	} else {
		if err := f.linkAfter(sb, bestPrev, next); err != nil {
			return 0, err
		}
	}

	if f.debug.Has(CheckInvariants) {
		if err := f.checkFreeList(); err != nil {
			return 0, err
		}
	}
	return bestOff + allocHeaderSize, nil
}

// linkAfter points whatever preceded a free-list node (prev, or the
// superblock head when prev is 0) at newNext.
func (f *FS) linkAfter(sb superblockView, prev, newNext uint64) error {
	if prev == 0 {
		sb.setFreeListHead(newNext)
		return nil
	}
	ph, err := newFreeHeaderView(f.region, prev)
	if err != nil {
		return err
	}
	ph.setNext(newNext)
	return nil
}

// free releases a previously allocated payload pointer, inserting it
// back into the free list in address order and coalescing with any
// adjacent neighbor (spec.md §4.2 "Free").
func (f *FS) free(ptr uint64) error {
	off := ptr - allocHeaderSize
	h, err := newFreeHeaderView(f.region, off)
	if err != nil {
		return err
	}
	return f.insertFree(off, h.size())
}

// freeRange inserts a free block covering [off, off+payloadSize) that
// was never itself a tracked allocation — used when reallocate carves a
// tail off the end of a live block during a shrink.
func (f *FS) freeRange(off, payloadSize uint64) error {
	return f.insertFree(off, payloadSize)
}

func (f *FS) insertFree(off, payloadSize uint64) error {
	sb, err := f.sb()
	if err != nil {
		return err
	}

	prev := uint64(0)
	cur := sb.freeListHead()
	for cur != 0 && cur < off {
		h, err := newFreeHeaderView(f.region, cur)
		if err != nil {
			return err
		}
		prev = cur
		cur = h.next()
	}

	h, err := newFreeHeaderView(f.region, off)
	if err != nil {
		return err
	}
	h.setSize(payloadSize)
	h.setNext(cur)
	if err := f.linkAfter(sb, prev, off); err != nil {
		return err
	}

	// Coalesce with the block immediately following, if contiguous.
	if cur != 0 && off+allocHeaderSize+payloadSize == cur {
		ch, err := newFreeHeaderView(f.region, cur)
		if err != nil {
			return err
		}
		h.setSize(payloadSize + allocHeaderSize + ch.size())
		h.setNext(ch.next())
	}

	// Coalesce with the block immediately preceding, if contiguous.
	if prev != 0 {
		ph, err := newFreeHeaderView(f.region, prev)
		if err != nil {
			return err
		}
		if prev+allocHeaderSize+ph.size() == off {
			ph.setSize(ph.size() + allocHeaderSize + h.size())
			ph.setNext(h.next())
		}
	}

	if f.debug.Has(CheckInvariants) {
		return f.checkFreeList()
	}
	return nil
}

// reallocate resizes the allocation at ptr to newSize, preferring to
// grow or shrink in place before falling back to allocate+copy+free
// (spec.md §4.2 "Reallocate").
func (f *FS) reallocate(ptr, newSize uint64) (uint64, error) {
	hdr, err := newFreeHeaderView(f.region, ptr-allocHeaderSize)
	if err != nil {
		return 0, err
	}
	oldSize := hdr.size()

	if newSize <= oldSize {
		residual := oldSize - newSize
		if residual > allocHeaderSize {
			tailOff := ptr + newSize
			if err := f.freeRange(tailOff, residual-allocHeaderSize); err != nil {
				return 0, err
			}
			hdr.setSize(newSize)
		}
		return ptr, nil
	}

	ok, err := f.tryGrowAdjacent(ptr, oldSize, newSize)
	if err != nil {
		return 0, err
	}
	if ok {
		return ptr, nil
	}

	newPtr, err := f.allocate(newSize)
	if err != nil {
		return 0, err
	}
	oldData, err := f.region.slice(ptr, oldSize)
	if err != nil {
		return 0, err
	}
	newData, err := f.region.slice(newPtr, newSize)
	if err != nil {
		return 0, err
	}
	copy(newData, oldData)
	if err := f.free(ptr); err != nil {
		return 0, err
	}
	return newPtr, nil
}

// tryGrowAdjacent extends the allocation at ptr in place by absorbing
// the free block that immediately follows its current payload, if one
// exists and is large enough (spec.md §4.2 "Allocate-adjacent
// optimization").
func (f *FS) tryGrowAdjacent(ptr, oldSize, newSize uint64) (bool, error) {
	sb, err := f.sb()
	if err != nil {
		return false, err
	}
	needed := newSize - oldSize
	followOff := ptr + oldSize

	prev := uint64(0)
	cur := sb.freeListHead()
	for cur != 0 {
		h, err := newFreeHeaderView(f.region, cur)
		if err != nil {
			return false, err
		}
		if cur == followOff {
			avail := h.size()
			if avail < needed {
				return false, nil
			}
			next := h.next()
			residual := avail - needed

			hdr, err := newFreeHeaderView(f.region, ptr-allocHeaderSize)
			if err != nil {
				return false, err
			}

			// The absorbed block's own header bytes become part of the
			// grown allocation (or of the new tail's header), so
			// avail+allocHeaderSize bytes are available in all.
			if residual > allocHeaderSize {
				tailOff := followOff + needed
				tail, err := newFreeHeaderView(f.region, tailOff)
				if err != nil {
					return false, err
				}
				tail.setSize(residual)
				tail.setNext(next)
				if err := f.linkAfter(sb, prev, tailOff); err != nil {
					return false, err
				}
				hdr.setSize(newSize)
			} else {
				if err := f.linkAfter(sb, prev, next); err != nil {
					return false, err
				}
				hdr.setSize(oldSize + allocHeaderSize + avail)
			}
			return true, nil
		}
		prev = cur
		cur = h.next()
	}
	return false, nil
}
