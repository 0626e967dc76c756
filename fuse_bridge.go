//go:build fuse

package regionfs

import (
	"context"
	"path"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// regionfs has no internal locking (spec.md §5: the core is
// single-threaded cooperative, any mutex belongs in the harness). This
// bridge is that harness: every entry point into *FS is serialized
// behind mu, exactly the way the teacher's squashfs harness relied on
// its (external) caller to serialize raw FUSE callbacks before they
// reached an *Inode.
var mu sync.Mutex

// regionNode adapts one path inside a mounted *FS to go-fuse/v2's node
// API. Unlike the teacher's Inode, a regionNode carries no cached
// attributes of its own: every callback resolves path against fsys
// fresh, matching the core's no-open-file-state design (spec.md §4.7
// "open").
type regionNode struct {
	fs.Inode
	fsys *FS
	path string
}

var (
	_ fs.NodeGetattrer  = (*regionNode)(nil)
	_ fs.NodeReaddirer  = (*regionNode)(nil)
	_ fs.NodeLookuper   = (*regionNode)(nil)
	_ fs.NodeCreater    = (*regionNode)(nil)
	_ fs.NodeMkdirer    = (*regionNode)(nil)
	_ fs.NodeUnlinker   = (*regionNode)(nil)
	_ fs.NodeRmdirer    = (*regionNode)(nil)
	_ fs.NodeRenamer    = (*regionNode)(nil)
	_ fs.NodeOpener     = (*regionNode)(nil)
	_ fs.NodeReader     = (*regionNode)(nil)
	_ fs.NodeWriter     = (*regionNode)(nil)
	_ fs.NodeSetattrer  = (*regionNode)(nil)
	_ fs.NodeStatfser   = (*regionNode)(nil)
)

// ServeFUSE starts a go-fuse/v2 server for fsys at mountpoint. The
// returned server runs until unmounted; debug turns on go-fuse's own
// protocol logging, independent of fsys's own WithDebugFlags(LogOperations).
func ServeFUSE(fsys *FS, mountpoint string, debug bool) (*fuse.Server, error) {
	root := &regionNode{fsys: fsys, path: "/"}
	return fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{Debug: debug},
	})
}

func (n *regionNode) child(name string) *regionNode {
	return &regionNode{fsys: n.fsys, path: path.Join(n.path, name)}
}

// fillAttr translates an Attr into a fuse.Attr, the adapter-layer
// counterpart of the teacher's per-OS FillAttr.
func fillAttr(a Attr, out *fuse.Attr) {
	out.Mode = a.Mode
	out.Nlink = a.Nlink
	out.Size = a.Size
	out.Atime = uint64(a.Atime.Unix())
	out.Mtime = uint64(a.Mtime.Unix())
	out.Ctime = out.Mtime
	out.Blksize = BlockSize
}

func errnoOf(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch {
	case isErrno(err, ENOENT):
		return syscall.ENOENT
	case isErrno(err, ENOTDIR):
		return syscall.ENOTDIR
	case isErrno(err, EISDIR):
		return syscall.EISDIR
	case isErrno(err, ENAMETOOLONG):
		return syscall.ENAMETOOLONG
	case isErrno(err, EEXIST):
		return syscall.EEXIST
	case isErrno(err, EFAULT):
		return syscall.EFAULT
	case isErrno(err, EINVAL):
		return syscall.EINVAL
	case isErrno(err, ENOTEMPTY):
		return syscall.ENOTEMPTY
	case isErrno(err, ENOSPC):
		return syscall.ENOSPC
	case isErrno(err, ENOMEM):
		return syscall.ENOMEM
	default:
		return syscall.EIO
	}
}

func isErrno(err error, target *Errno) bool {
	for err != nil {
		if e, ok := err.(*Errno); ok {
			return e == target
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func (n *regionNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	mu.Lock()
	defer mu.Unlock()
	a, err := n.fsys.Getattr(n.path)
	if err != nil {
		return errnoOf(err)
	}
	fillAttr(a, &out.Attr)
	return 0
}

func (n *regionNode) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	mu.Lock()
	defer mu.Unlock()

	if size, ok := in.GetSize(); ok {
		if err := n.fsys.Truncate(n.path, int64(size)); err != nil {
			return errnoOf(err)
		}
	}
	if atime, ok := in.GetATime(); ok {
		mtime := atime
		if m, ok := in.GetMTime(); ok {
			mtime = m
		}
		if err := n.fsys.Utimens(n.path, atime, mtime); err != nil {
			return errnoOf(err)
		}
	}

	a, err := n.fsys.Getattr(n.path)
	if err != nil {
		return errnoOf(err)
	}
	fillAttr(a, &out.Attr)
	return 0
}

func (n *regionNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	mu.Lock()
	a, err := n.fsys.Getattr(path.Join(n.path, name))
	mu.Unlock()
	if err != nil {
		return nil, errnoOf(err)
	}
	fillAttr(a, &out.Attr)
	child := n.child(name)
	mode := uint32(fuse.S_IFREG)
	if a.Mode&S_IFDIR == S_IFDIR {
		mode = fuse.S_IFDIR
	}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode}), 0
}

func (n *regionNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	mu.Lock()
	names, err := n.fsys.Readdir(n.path)
	mu.Unlock()
	if err != nil {
		return nil, errnoOf(err)
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		mu.Lock()
		a, err := n.fsys.Getattr(path.Join(n.path, name))
		mu.Unlock()
		if err != nil {
			continue
		}
		mode := uint32(fuse.S_IFREG)
		if a.Mode&S_IFDIR == S_IFDIR {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *regionNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	mu.Lock()
	childPath := path.Join(n.path, name)
	err := n.fsys.Mknod(childPath)
	var a Attr
	if err == nil {
		a, err = n.fsys.Getattr(childPath)
	}
	mu.Unlock()
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}
	fillAttr(a, &out.Attr)
	child := n.child(name)
	return n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFREG}), nil, 0, 0
}

func (n *regionNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	mu.Lock()
	childPath := path.Join(n.path, name)
	err := n.fsys.Mkdir(childPath)
	var a Attr
	if err == nil {
		a, err = n.fsys.Getattr(childPath)
	}
	mu.Unlock()
	if err != nil {
		return nil, errnoOf(err)
	}
	fillAttr(a, &out.Attr)
	child := n.child(name)
	return n.NewInode(ctx, child, fs.StableAttr{Mode: fuse.S_IFDIR}), 0
}

func (n *regionNode) Unlink(ctx context.Context, name string) syscall.Errno {
	mu.Lock()
	defer mu.Unlock()
	return errnoOf(n.fsys.Unlink(path.Join(n.path, name)))
}

func (n *regionNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	mu.Lock()
	defer mu.Unlock()
	return errnoOf(n.fsys.Rmdir(path.Join(n.path, name)))
}

func (n *regionNode) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	dst, ok := newParent.(*regionNode)
	if !ok {
		return syscall.EINVAL
	}
	mu.Lock()
	defer mu.Unlock()
	oldPath := path.Join(n.path, name)
	newPath := path.Join(dst.path, newName)
	return errnoOf(n.fsys.Rename(oldPath, newPath))
}

func (n *regionNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	mu.Lock()
	defer mu.Unlock()
	if err := n.fsys.Open(n.path); err != nil {
		return nil, 0, errnoOf(err)
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *regionNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	mu.Lock()
	defer mu.Unlock()
	got, err := n.fsys.Read(n.path, dest, off)
	if err != nil {
		return nil, errnoOf(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *regionNode) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	mu.Lock()
	defer mu.Unlock()
	written, err := n.fsys.Write(n.path, data, off)
	if err != nil {
		return 0, errnoOf(err)
	}
	return uint32(written), 0
}

func (n *regionNode) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	mu.Lock()
	defer mu.Unlock()
	s, err := n.fsys.Statfs()
	if err != nil {
		return errnoOf(err)
	}
	out.Bsize = s.BlockSize
	out.Blocks = s.Blocks
	out.Bfree = s.BlocksFree
	out.Bavail = s.BlocksFree
	out.NameLen = s.NameMax
	return 0
}
