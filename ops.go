package regionfs

import (
	"fmt"
	"log"
	"time"
)

// wrap attaches the failing operation and path to a core error so a
// caller logging it can tell entry points apart, while still comparing
// cleanly with errors.Is against the Errno sentinels.
func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}

func (f *FS) log(op, path string) {
	if f.debug.Has(LogOperations) {
		log.Printf("regionfs: %s %s", op, path)
	}
}

// Getattr returns path's mode, link count, size and timestamps (spec.md
// §4.7 "getattr"). regionfs publishes a fixed mode and no ownership
// (spec.md §1 Non-goals), so Mode only ever distinguishes file from
// directory.
func (f *FS) Getattr(path string) (Attr, error) {
	f.log("getattr", path)
	off, err := f.resolve(path, 0)
	if err != nil {
		return Attr{}, wrap("getattr", path, err)
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return Attr{}, wrap("getattr", path, err)
	}

	a := Attr{Atime: ino.atime(), Mtime: ino.mtime()}
	if ino.isDir() {
		subdirs, err := f.countSubdirs(ino)
		if err != nil {
			return Attr{}, wrap("getattr", path, err)
		}
		a.Mode = S_IFDIR | publishedPerm
		a.Nlink = 2 + subdirs
	} else {
		a.Mode = S_IFREG | publishedPerm
		a.Nlink = 1
		a.Size = ino.fileSize()
	}
	return a, nil
}

// Readdir lists path's children, excluding "." and ".." (spec.md §4.7
// "readdir").
func (f *FS) Readdir(path string) ([]string, error) {
	f.log("readdir", path)
	off, err := f.resolve(path, 0)
	if err != nil {
		return nil, wrap("readdir", path, err)
	}
	dir, err := newInodeView(f.region, off)
	if err != nil {
		return nil, wrap("readdir", path, err)
	}
	if !dir.isDir() {
		return nil, wrap("readdir", path, ENOTDIR)
	}

	n := dir.numChildren()
	table := dir.childrenTable()
	names := make([]string, 0, n-1)
	for i := uint64(1); i < n; i++ {
		childOff, err := f.childSlot(table, i)
		if err != nil {
			return nil, wrap("readdir", path, err)
		}
		child, err := newInodeView(f.region, childOff)
		if err != nil {
			return nil, wrap("readdir", path, err)
		}
		names = append(names, child.name())
	}
	return names, nil
}

// Mknod creates an empty regular file at path (spec.md §4.7 "mknod").
func (f *FS) Mknod(path string) error {
	f.log("mknod", path)
	_, err := f.create(path, false)
	return wrap("mknod", path, err)
}

// Mkdir creates an empty directory at path (spec.md §4.7 "mkdir").
func (f *FS) Mkdir(path string) error {
	f.log("mkdir", path)
	_, err := f.create(path, true)
	return wrap("mkdir", path, err)
}

// Unlink removes a file entry (spec.md §4.7 "unlink").
func (f *FS) Unlink(path string) error {
	f.log("unlink", path)
	return wrap("unlink", path, f.unlinkFile(path))
}

// Rmdir removes an empty directory entry (spec.md §4.7 "rmdir").
func (f *FS) Rmdir(path string) error {
	f.log("rmdir", path)
	return wrap("rmdir", path, f.rmdir(path))
}

// Rename moves or renames oldPath to newPath (spec.md §4.7 "rename").
func (f *FS) Rename(oldPath, newPath string) error {
	f.log("rename", oldPath+" -> "+newPath)
	return wrap("rename", oldPath+" -> "+newPath, f.rename(oldPath, newPath))
}

// Truncate grows or shrinks path's content to length bytes, zero-filling
// any new space (spec.md §4.7 "truncate").
func (f *FS) Truncate(path string, length int64) error {
	f.log("truncate", path)
	if length < 0 {
		return wrap("truncate", path, EFAULT)
	}
	off, err := f.resolve(path, 0)
	if err != nil {
		return wrap("truncate", path, err)
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return wrap("truncate", path, err)
	}
	if ino.isDir() {
		return wrap("truncate", path, EISDIR)
	}

	target := uint64(length)
	size := ino.fileSize()
	if target > size {
		if err := f.growTo(ino, target); err != nil {
			return wrap("truncate", path, err)
		}
	} else if target < size {
		if err := f.shrinkTo(ino, target); err != nil {
			return wrap("truncate", path, err)
		}
	}
	ino.setFileSize(target)
	ino.setMtime(f.now())
	return nil
}

// Open is an existence check: path must resolve to a live entry. No
// per-open state is kept — Read and Write always resolve the path fresh
// (spec.md §4.7 "open").
func (f *FS) Open(path string) error {
	f.log("open", path)
	_, err := f.resolve(path, 0)
	return wrap("open", path, err)
}

// Read copies up to len(buf) bytes from path starting at offset (spec.md
// §4.7 "read").
func (f *FS) Read(path string, buf []byte, offset int64) (int, error) {
	f.log("read", path)
	if offset < 0 {
		return 0, wrap("read", path, EFAULT)
	}
	off, err := f.resolve(path, 0)
	if err != nil {
		return 0, wrap("read", path, err)
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return 0, wrap("read", path, err)
	}
	if ino.isDir() {
		return 0, wrap("read", path, EISDIR)
	}
	n, err := f.readAt(ino, buf, uint64(offset))
	if err != nil {
		return n, wrap("read", path, err)
	}
	ino.setAtime(f.now())
	return n, nil
}

// Write writes buf into path starting at offset, extending the file as
// needed (spec.md §4.7 "write").
func (f *FS) Write(path string, buf []byte, offset int64) (int, error) {
	f.log("write", path)
	if offset < 0 {
		return 0, wrap("write", path, EFAULT)
	}
	off, err := f.resolve(path, 0)
	if err != nil {
		return 0, wrap("write", path, err)
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return 0, wrap("write", path, err)
	}
	if ino.isDir() {
		return 0, wrap("write", path, EISDIR)
	}
	n, err := f.writeAt(ino, buf, uint64(offset))
	return n, wrap("write", path, err)
}

// Utimens sets path's access and modification timestamps (spec.md §4.7
// "utimens").
func (f *FS) Utimens(path string, atime, mtime time.Time) error {
	f.log("utimens", path)
	off, err := f.resolve(path, 0)
	if err != nil {
		return wrap("utimens", path, err)
	}
	ino, err := newInodeView(f.region, off)
	if err != nil {
		return wrap("utimens", path, err)
	}
	ino.setAtime(atime)
	ino.setMtime(mtime)
	return nil
}

// Statfs reports block size, total and free blocks, and the maximum
// name length (spec.md §4.7 "statfs").
func (f *FS) Statfs() (StatFS, error) {
	f.log("statfs", "/")
	sb, err := f.sb()
	if err != nil {
		return StatFS{}, wrap("statfs", "/", err)
	}

	var free uint64
	cur := sb.freeListHead()
	for cur != 0 {
		h, err := newFreeHeaderView(f.region, cur)
		if err != nil {
			return StatFS{}, wrap("statfs", "/", err)
		}
		free += h.size()
		cur = h.next()
	}

	return StatFS{
		BlockSize:  BlockSize,
		Blocks:     sb.totalSize() / uint64(BlockSize),
		BlocksFree: free / uint64(BlockSize),
		NameMax:    NameMaxLen,
	}, nil
}
