package main

import (
	"fmt"
	"os"

	"github.com/KarpelesLab/regionfs"
)

const usage = `regionfsctl - regionfs CLI tool

Usage:
  regionfsctl mount <region_file> <mountpoint>       Mount a region file over FUSE (requires -tags fuse)
  regionfsctl stat <region_file>                     Show statfs-style information about a region
  regionfsctl fsck <region_file>                      Walk the directory tree and report the first entry that fails to list or stat
  regionfsctl snapshot export <region_file> <out> [zstd|xz]  Write a (optionally compressed) copy of a region
  regionfsctl snapshot import <in> <region_file>             Restore a region from a snapshot (compressor read from its header)
  regionfsctl help                                    Show this help message
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "mount":
		if len(os.Args) < 4 {
			err = fmt.Errorf("missing region file or mountpoint")
			break
		}
		err = cmdMount(os.Args[2], os.Args[3])
	case "stat":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing region file")
			break
		}
		err = cmdStat(os.Args[2])
	case "fsck":
		if len(os.Args) < 3 {
			err = fmt.Errorf("missing region file")
			break
		}
		err = cmdFsck(os.Args[2])
	case "snapshot":
		if len(os.Args) < 5 {
			err = fmt.Errorf("usage: regionfsctl snapshot export|import <src> <dst> [zstd|xz]")
			break
		}
		err = cmdSnapshot(os.Args[2], os.Args[3], os.Args[4], os.Args[5:])
	case "help":
		fmt.Print(usage)
		return
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func cmdStat(regionPath string) error {
	buf, close, err := openRegion(regionPath)
	if err != nil {
		return err
	}
	defer close()

	fsys, err := regionfs.Mount(buf)
	if err != nil {
		return err
	}
	st, err := fsys.Statfs()
	if err != nil {
		return err
	}
	fmt.Printf("block size:  %d\n", st.BlockSize)
	fmt.Printf("blocks:      %d\n", st.Blocks)
	fmt.Printf("free blocks: %d\n", st.BlocksFree)
	fmt.Printf("name max:    %d\n", st.NameMax)
	return nil
}

func cmdFsck(regionPath string) error {
	buf, close, err := openRegion(regionPath)
	if err != nil {
		return err
	}
	defer close()

	fsys, err := regionfs.Mount(buf)
	if err != nil {
		return err
	}
	if err := fsckWalk(fsys, "/"); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func fsckWalk(fsys *regionfs.FS, dir string) error {
	names, err := fsys.Readdir(dir)
	if err != nil {
		return fmt.Errorf("readdir %s: %w", dir, err)
	}
	for _, name := range names {
		childPath := dir
		if childPath != "/" {
			childPath += "/"
		}
		childPath += name
		a, err := fsys.Getattr(childPath)
		if err != nil {
			return fmt.Errorf("getattr %s: %w", childPath, err)
		}
		if a.Mode&regionfs.S_IFDIR == regionfs.S_IFDIR {
			if err := fsckWalk(fsys, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func cmdSnapshot(mode, src, dst string, rest []string) error {
	comp := regionfs.CompNone
	if len(rest) > 0 {
		switch rest[0] {
		case "zstd":
			comp = regionfs.CompZstd
		case "xz":
			comp = regionfs.CompXZ
		default:
			return fmt.Errorf("unknown compression %q", rest[0])
		}
	}

	switch mode {
	case "export":
		return snapshotExport(src, dst, comp)
	case "import":
		return snapshotImport(src, dst)
	default:
		return fmt.Errorf("snapshot mode must be export or import, got %q", mode)
	}
}

func snapshotExport(regionPath, outPath string, comp regionfs.Compression) error {
	buf, close, err := openRegion(regionPath)
	if err != nil {
		return err
	}
	defer close()

	fsys, err := regionfs.Mount(buf)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	return fsys.Snapshot(out, comp)
}

func snapshotImport(inPath, regionPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	// The compressor is read from the snapshot's own header, not passed
	// in by the caller.
	fsys, err := regionfs.Restore(in)
	if err != nil {
		return err
	}

	out, err := os.Create(regionPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.Write(fsys.RawBytes())
	return err
}
