//go:build !linux

package main

import "os"

// openRegion falls back to a plain read/write-back for non-Linux hosts
// that lack unix.Mmap; changes are only durable once closeFn runs.
func openRegion(regionPath string) ([]byte, func() error, error) {
	data, err := os.ReadFile(regionPath)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error {
		return os.WriteFile(regionPath, data, 0644)
	}
	return data, closeFn, nil
}
