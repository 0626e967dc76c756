package regionfs_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/KarpelesLab/regionfs"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	fsys, _ := newTestFS(t, 1 << 20)
	mustMknod(t, fsys, "/f")

	payload := []byte("Hello\n")
	n, err := fsys.Write("/f", payload, 0)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("expected to write %d bytes, wrote %d", len(payload), n)
	}

	buf := make([]byte, len(payload))
	n, err = fsys.Read("/f", buf, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) || !bytes.Equal(buf, payload) {
		t.Fatalf("expected to read %q, got %q", payload, buf[:n])
	}

	attr, err := fsys.Getattr("/f")
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if attr.Size != uint64(len(payload)) {
		t.Errorf("expected size %d, got %d", len(payload), attr.Size)
	}
}

func TestTruncateGrowZeroFillsTail(t *testing.T) {
	fsys, _ := newTestFS(t, 1 << 20)
	mustMknod(t, fsys, "/g")
	if _, err := fsys.Write("/g", []byte("Hello\n"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	before, err := fsys.Statfs()
	if err != nil {
		t.Fatalf("Statfs: %v", err)
	}

	if err := fsys.Truncate("/g", 4096); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	buf := make([]byte, 4096)
	n, err := fsys.Read("/g", buf, 0)
	if err != nil || n != 4096 {
		t.Fatalf("Read after truncate: n=%d err=%v", n, err)
	}
	if !bytes.Equal(buf[:6], []byte("Hello\n")) {
		t.Fatalf("expected leading bytes preserved, got %q", buf[:6])
	}
	for i, b := range buf[6:] {
		if b != 0 {
			t.Fatalf("expected zero at offset %d, got %d", 6+i, b)
		}
	}

	after, err := fsys.Statfs()
	if err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if before.BlocksFree-after.BlocksFree < 4 {
		t.Errorf("expected at least 4 blocks consumed by growth, before=%d after=%d", before.BlocksFree, after.BlocksFree)
	}
}

func TestWriteAtOffsetCreatesHole(t *testing.T) {
	fsys, _ := newTestFS(t, 2 << 20)
	mustMknod(t, fsys, "/f")

	if _, err := fsys.Write("/f", []byte("Hello\n"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := fsys.Write("/f", []byte("X"), 1_000_000); err != nil {
		t.Fatalf("Write at offset: %v", err)
	}

	attr, err := fsys.Getattr("/f")
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if attr.Size != 1_000_001 {
		t.Fatalf("expected size 1000001, got %d", attr.Size)
	}

	mid := make([]byte, 1)
	if _, err := fsys.Read("/f", mid, 500_000); err != nil {
		t.Fatalf("Read mid-hole: %v", err)
	}
	if mid[0] != 0 {
		t.Errorf("expected a zero byte inside the hole, got %d", mid[0])
	}

	last := make([]byte, 1)
	if _, err := fsys.Read("/f", last, 1_000_000); err != nil {
		t.Fatalf("Read last byte: %v", err)
	}
	if last[0] != 'X' {
		t.Errorf("expected 'X' at offset 1000000, got %q", last[0])
	}
}

func TestTruncateShrinkThenGrowDiscardsOldTail(t *testing.T) {
	fsys, _ := newTestFS(t, 1 << 20)
	mustMknod(t, fsys, "/f")

	if _, err := fsys.Write("/f", []byte("0123456789"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fsys.Truncate("/f", 4); err != nil {
		t.Fatalf("Truncate shrink: %v", err)
	}
	if err := fsys.Truncate("/f", 10); err != nil {
		t.Fatalf("Truncate grow: %v", err)
	}

	buf := make([]byte, 10)
	if _, err := fsys.Read("/f", buf, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf[:4], []byte("0123")) {
		t.Errorf("expected kept prefix %q, got %q", "0123", buf[:4])
	}
	for i, b := range buf[4:] {
		if b != 0 {
			t.Errorf("expected zero at offset %d after shrink+grow, got %d", 4+i, b)
		}
	}
}

func TestTruncateExhaustingRegionReturnsENOSPCAndKeepsOldBytes(t *testing.T) {
	fsys, _ := newTestFS(t, 8192)
	mustMknod(t, fsys, "/f")

	if _, err := fsys.Write("/f", []byte("hi"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var lastGoodSize uint64 = 2
	size := uint64(1024)
	for {
		err := fsys.Truncate("/f", int64(size))
		if err != nil {
			if !errors.Is(err, regionfs.ENOSPC) {
				t.Fatalf("expected ENOSPC once the region fills, got %v", err)
			}
			break
		}
		lastGoodSize = size
		size *= 2
		if size > 1<<30 {
			t.Fatalf("region never reported ENOSPC")
		}
	}

	buf := make([]byte, lastGoodSize)
	if _, err := fsys.Read("/f", buf, 0); err != nil {
		t.Fatalf("Read after failed truncate: %v", err)
	}
	if !bytes.Equal(buf[:2], []byte("hi")) {
		t.Errorf("expected previously committed bytes to survive a failed truncate, got %q", buf[:2])
	}
}
