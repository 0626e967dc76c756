//go:build !fuse

package main

import "fmt"

func cmdMount(regionPath, mountpoint string) error {
	return fmt.Errorf("regionfsctl was built without FUSE support; rebuild with -tags fuse")
}
