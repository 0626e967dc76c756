//go:build fuse

package main

import "github.com/KarpelesLab/regionfs"

func cmdMount(regionPath, mountpoint string) error {
	buf, close, err := openRegion(regionPath)
	if err != nil {
		return err
	}
	defer close()

	fsys, err := regionfs.Mount(buf)
	if err != nil {
		return err
	}

	server, err := regionfs.ServeFUSE(fsys, mountpoint, false)
	if err != nil {
		return err
	}
	server.Wait()
	return nil
}
