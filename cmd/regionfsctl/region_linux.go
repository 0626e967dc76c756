//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// openRegion mmaps regionPath MAP_SHARED so writes through the returned
// slice land directly in the file, the way a production mount would
// back the region with a real file instead of an anonymous buffer.
func openRegion(regionPath string) ([]byte, func() error, error) {
	f, err := os.OpenFile(regionPath, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	closeFn := func() error {
		syncErr := unix.Msync(data, unix.MS_SYNC)
		unmapErr := unix.Munmap(data)
		closeErr := f.Close()
		switch {
		case syncErr != nil:
			return syncErr
		case unmapErr != nil:
			return unmapErr
		default:
			return closeErr
		}
	}
	return data, closeFn, nil
}
