package regionfs

import (
	"io/fs"
	"path"
)

// Import walks a host filesystem tree and recreates it inside the
// region via the core's own entry points — mkdir for each directory,
// mknod and Write for each regular file — rooted at destDir (spec.md §1
// Non-goals excludes symlinks and devices, so Import skips anything
// that isn't a directory or a regular file).
//
// This is the region-building counterpart of Snapshot/Restore: where
// those move a whole region, Import populates one from ordinary host
// files, the way the teacher's Writer built a squashfs image from a
// walked directory tree.
func (f *FS) Import(host fs.FS, destDir string) error {
	return fs.WalkDir(host, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}

		target := path.Join(destDir, name)

		switch {
		case d.IsDir():
			return f.Mkdir(target)
		case d.Type().IsRegular():
			return f.importFile(host, name, target)
		default:
			return nil // symlinks, devices, etc. are out of scope
		}
	})
}

func (f *FS) importFile(host fs.FS, srcName, destPath string) error {
	if err := f.Mknod(destPath); err != nil {
		return err
	}
	contents, err := fs.ReadFile(host, srcName)
	if err != nil {
		return err
	}
	if len(contents) == 0 {
		return nil
	}
	_, err = f.Write(destPath, contents, 0)
	return err
}
