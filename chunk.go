package regionfs

// growTo extends ino's content chain so its capacity covers at least
// target bytes, zero-filling every byte added along the way (spec.md
// §4.6). It does not touch ino's recorded file size; the caller does
// that once growth succeeds.
func (f *FS) growTo(ino inodeView, target uint64) error {
	cur := ino.firstBlock()
	var last uint64
	written := uint64(0)

	// toppedUpBlock/toppedUpOldUsed remember the one pre-existing block
	// (necessarily the chain's current tail) whose used field this call
	// bumped up to its own capacity before deciding more blocks were
	// still needed — so a later allocation failure can undo it.
	var toppedUpBlock uint64
	var toppedUpOldUsed uint32

	for cur != 0 {
		blk, err := newFileBlockView(f.region, cur)
		if err != nil {
			return err
		}
		cap64 := uint64(blk.capacity())

		if written+cap64 >= target {
			want := target - written
			if uint64(blk.used()) < want {
				if err := f.zeroFillBlock(blk, uint64(blk.used()), want); err != nil {
					return err
				}
				blk.setUsed(uint32(want))
			}
			return nil
		}

		if uint64(blk.used()) < cap64 {
			if err := f.zeroFillBlock(blk, uint64(blk.used()), cap64); err != nil {
				return err
			}
			toppedUpBlock, toppedUpOldUsed = cur, blk.used()
			blk.setUsed(blk.capacity())
		}

		written += cap64
		last = cur
		cur = blk.next()
	}

	// Past this point we're appending brand new blocks. If allocation
	// runs out partway through, every block added in this call is rolled
	// back so the chain — and ino's recorded size, set by the caller
	// only on success — never disagree (spec.md §8 invariant: file size
	// equals the sum of used bytes across its chain).
	attachedTo := last
	var added []uint64

	rollback := func() {
		for _, off := range added {
			blk, err := newFileBlockView(f.region, off)
			if err != nil {
				continue
			}
			f.free(blk.data())
			f.free(off)
		}
		if attachedTo == 0 {
			ino.setFirstBlock(0)
			return
		}
		prevBlk, err := newFileBlockView(f.region, attachedTo)
		if err != nil {
			return
		}
		prevBlk.setNext(0)
		if toppedUpBlock == attachedTo {
			prevBlk.setUsed(toppedUpOldUsed)
		}
	}

	for written < target {
		remaining := target - written
		capacity := BlockSize
		if remaining < uint64(capacity) {
			capacity = uint32(remaining)
		}

		blkOff, err := f.allocate(fileBlockHeaderSize)
		if err != nil {
			rollback()
			return ENOSPC
		}
		dataOff, err := f.allocate(uint64(capacity))
		if err != nil {
			f.free(blkOff)
			rollback()
			return ENOSPC
		}
		data, err := f.region.slice(dataOff, uint64(capacity))
		if err != nil {
			return err
		}
		for i := range data {
			data[i] = 0
		}

		blk, err := newFileBlockView(f.region, blkOff)
		if err != nil {
			return err
		}
		blk.setCapacity(capacity)
		blk.setUsed(capacity)
		blk.setNext(0)
		blk.setData(dataOff)
		added = append(added, blkOff)

		if last == 0 {
			ino.setFirstBlock(blkOff)
		} else {
			lastBlk, err := newFileBlockView(f.region, last)
			if err != nil {
				return err
			}
			lastBlk.setNext(blkOff)
		}
		last = blkOff
		written += uint64(capacity)
	}
	return nil
}

// shrinkTo truncates ino's content chain to target bytes, freeing every
// block (and partial tail payload) past that point (spec.md §4.6). The
// caller updates ino's recorded file size.
func (f *FS) shrinkTo(ino inodeView, target uint64) error {
	cur := ino.firstBlock()
	var prev uint64
	written := uint64(0)

	for cur != 0 {
		blk, err := newFileBlockView(f.region, cur)
		if err != nil {
			return err
		}
		cap64 := uint64(blk.capacity())

		if written+cap64 <= target {
			written += cap64
			prev = cur
			cur = blk.next()
			continue
		}

		keep := target - written
		if keep == 0 {
			if prev == 0 {
				ino.setFirstBlock(0)
			} else {
				prevBlk, err := newFileBlockView(f.region, prev)
				if err != nil {
					return err
				}
				prevBlk.setNext(0)
			}
			return f.freeChunkChain(cur)
		}

		next := blk.next()
		blk.setNext(0)
		if uint64(blk.used()) > keep {
			blk.setUsed(uint32(keep))
		}
		newData, err := f.reallocate(blk.data(), keep)
		if err != nil {
			return err
		}
		blk.setData(newData)
		blk.setCapacity(uint32(keep))

		return f.freeChunkChain(next)
	}
	return nil
}

// freeChunkChain releases every block in a file's content chain,
// starting at first, back to the allocator.
func (f *FS) freeChunkChain(first uint64) error {
	cur := first
	for cur != 0 {
		blk, err := newFileBlockView(f.region, cur)
		if err != nil {
			return err
		}
		next := blk.next()
		if blk.capacity() > 0 {
			if err := f.free(blk.data()); err != nil {
				return err
			}
		}
		if err := f.free(cur); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

func (f *FS) zeroFillBlock(blk fileBlockView, from, to uint64) error {
	data, err := f.region.slice(blk.data(), uint64(blk.capacity()))
	if err != nil {
		return err
	}
	for i := from; i < to; i++ {
		data[i] = 0
	}
	return nil
}

// readAt copies up to len(buf) bytes from ino starting at offset,
// returning the number of bytes actually copied (spec.md §4.7 "read").
// Reading past end of file, or from an empty region, yields 0 bytes and
// no error.
func (f *FS) readAt(ino inodeView, buf []byte, offset uint64) (int, error) {
	size := ino.fileSize()
	if offset >= size || len(buf) == 0 {
		return 0, nil
	}
	n := uint64(len(buf))
	if offset+n > size {
		n = size - offset
	}

	cur := ino.firstBlock()
	skip := offset
	copied := uint64(0)
	for cur != 0 && copied < n {
		blk, err := newFileBlockView(f.region, cur)
		if err != nil {
			return int(copied), err
		}
		used := uint64(blk.used())
		if skip >= used {
			skip -= used
			cur = blk.next()
			continue
		}
		data, err := f.region.slice(blk.data(), used)
		if err != nil {
			return int(copied), err
		}
		avail := used - skip
		want := n - copied
		if want > avail {
			want = avail
		}
		copy(buf[copied:copied+want], data[skip:skip+want])
		copied += want
		skip = 0
		cur = blk.next()
	}
	return int(copied), nil
}

// writeAt writes buf into ino starting at offset, growing the file (and
// zero-filling any hole before offset) as needed, and returns the
// number of bytes written (spec.md §4.7 "write").
func (f *FS) writeAt(ino inodeView, buf []byte, offset uint64) (int, error) {
	size := ino.fileSize()
	target := offset + uint64(len(buf))
	newSize := size
	if target > newSize {
		newSize = target
	}

	if newSize > size {
		if err := f.growTo(ino, newSize); err != nil {
			return 0, err
		}
		ino.setFileSize(newSize)
	}

	cur := ino.firstBlock()
	skip := offset
	written := uint64(0)
	n := uint64(len(buf))
	for cur != 0 && written < n {
		blk, err := newFileBlockView(f.region, cur)
		if err != nil {
			return int(written), err
		}
		cap64 := uint64(blk.capacity())
		if skip >= cap64 {
			skip -= cap64
			cur = blk.next()
			continue
		}
		data, err := f.region.slice(blk.data(), cap64)
		if err != nil {
			return int(written), err
		}
		avail := cap64 - skip
		want := n - written
		if want > avail {
			want = avail
		}
		copy(data[skip:skip+want], buf[written:written+want])
		if skip+want > uint64(blk.used()) {
			blk.setUsed(uint32(skip + want))
		}
		written += want
		skip = 0
		cur = blk.next()
	}

	now := f.now()
	ino.setAtime(now)
	ino.setMtime(now)
	return int(written), nil
}
