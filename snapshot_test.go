package regionfs_test

import (
	"bytes"
	"testing"

	"github.com/KarpelesLab/regionfs"
)

func buildSnapshotFixture(t *testing.T) *regionfs.FS {
	t.Helper()
	fsys, _ := newTestFS(t, 1<<20)
	mustMkdir(t, fsys, "/a")
	mustMknod(t, fsys, "/a/f")
	if _, err := fsys.Write("/a/f", []byte("snapshot me\n"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return fsys
}

func assertMatchesFixture(t *testing.T, fsys *regionfs.FS) {
	t.Helper()
	attr, err := fsys.Getattr("/a/f")
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if attr.Size != uint64(len("snapshot me\n")) {
		t.Errorf("expected size %d, got %d", len("snapshot me\n"), attr.Size)
	}
	buf := make([]byte, attr.Size)
	if _, err := fsys.Read("/a/f", buf, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf, []byte("snapshot me\n")) {
		t.Errorf("expected %q, got %q", "snapshot me\n", buf)
	}
	names, err := fsys.Readdir("/a")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if len(names) != 1 || names[0] != "f" {
		t.Errorf("expected [\"f\"], got %v", names)
	}
}

func TestSnapshotRestoreRoundTripUncompressed(t *testing.T) {
	fsys := buildSnapshotFixture(t)

	var buf bytes.Buffer
	if err := fsys.Snapshot(&buf, regionfs.CompNone); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, err := regionfs.Restore(&buf)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	assertMatchesFixture(t, restored)
}

func TestSnapshotRestoreRoundTripZstd(t *testing.T) {
	fsys := buildSnapshotFixture(t)

	var buf bytes.Buffer
	if err := fsys.Snapshot(&buf, regionfs.CompZstd); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, err := regionfs.Restore(&buf)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	assertMatchesFixture(t, restored)
}

func TestSnapshotRestoreRoundTripXZ(t *testing.T) {
	fsys := buildSnapshotFixture(t)

	var buf bytes.Buffer
	if err := fsys.Snapshot(&buf, regionfs.CompXZ); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored, err := regionfs.Restore(&buf)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	assertMatchesFixture(t, restored)
}

func TestSnapshotRejectsUnknownCompression(t *testing.T) {
	fsys := buildSnapshotFixture(t)
	var buf bytes.Buffer
	if err := fsys.Snapshot(&buf, regionfs.Compression(99)); err == nil {
		t.Fatalf("expected an error for an unknown compression mode")
	}
}

func TestRestoreRejectsStreamWithoutHeader(t *testing.T) {
	fsys := buildSnapshotFixture(t)
	var raw bytes.Buffer
	if err := fsys.Snapshot(&raw, regionfs.CompNone); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Strip the 16-byte header so Restore sees a bare region dump
	// instead of a proper snapshot stream.
	const headerSize = 16
	payload := bytes.NewReader(raw.Bytes()[headerSize:])
	if _, err := regionfs.Restore(payload); err == nil {
		t.Fatalf("expected Restore to reject a header-less stream")
	}
}
