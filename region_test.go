package regionfs_test

import (
	"testing"

	"github.com/KarpelesLab/regionfs"
)

func TestRegionLenAndBytes(t *testing.T) {
	buf := make([]byte, 1024)
	r := regionfs.NewRegion(buf)

	if r.Len() != 1024 {
		t.Errorf("expected Len() 1024, got %d", r.Len())
	}
	if len(r.Bytes()) != len(buf) {
		t.Errorf("expected Bytes() to expose the full backing slice")
	}

	r.Bytes()[0] = 0x42
	if buf[0] != 0x42 {
		t.Errorf("Bytes() should alias the original slice, not copy it")
	}
}
