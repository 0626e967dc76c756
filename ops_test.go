package regionfs_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/KarpelesLab/regionfs"
)

// TestScenarioFreshRegionSurvivesRemount mirrors spec.md §8 scenario 1:
// a write, then an unmount (simulated by re-Mounting the same bytes) and
// remount, must read back exactly what was written.
func TestScenarioFreshRegionSurvivesRemount(t *testing.T) {
	buf := make([]byte, 1<<20)
	fsys, err := regionfs.Mount(buf)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	mustMkdir(t, fsys, "/a")
	mustMknod(t, fsys, "/a/f")
	if _, err := fsys.Write("/a/f", []byte("Hello\n"), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	remounted, err := regionfs.Mount(buf)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}

	got := make([]byte, 6)
	if _, err := remounted.Read("/a/f", got, 0); err != nil {
		t.Fatalf("Read after remount: %v", err)
	}
	if !bytes.Equal(got, []byte("Hello\n")) {
		t.Fatalf("expected %q after remount, got %q", "Hello\n", got)
	}

	attr, err := remounted.Getattr("/a/f")
	if err != nil {
		t.Fatalf("Getattr after remount: %v", err)
	}
	if attr.Size != 6 {
		t.Errorf("expected size 6 after remount, got %d", attr.Size)
	}
}

func TestOpenIsExistenceCheckOnly(t *testing.T) {
	fsys, _ := newTestFS(t, 65536)
	mustMknod(t, fsys, "/f")

	if err := fsys.Open("/f"); err != nil {
		t.Fatalf("Open existing: %v", err)
	}
	if err := fsys.Open("/missing"); !errors.Is(err, regionfs.ENOENT) {
		t.Fatalf("expected ENOENT opening a missing path, got %v", err)
	}
}

func TestReadDirOnFileIsNotDir(t *testing.T) {
	fsys, _ := newTestFS(t, 65536)
	mustMknod(t, fsys, "/f")

	if _, err := fsys.Readdir("/f"); !errors.Is(err, regionfs.ENOTDIR) {
		t.Fatalf("expected ENOTDIR, got %v", err)
	}
}

func TestUtimensUpdatesTimestamps(t *testing.T) {
	fsys, _ := newTestFS(t, 65536)
	mustMknod(t, fsys, "/f")

	at := time.Unix(111, 0)
	mt := time.Unix(222, 0)
	if err := fsys.Utimens("/f", at, mt); err != nil {
		t.Fatalf("Utimens: %v", err)
	}

	attr, err := fsys.Getattr("/f")
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if !attr.Atime.Equal(at) {
		t.Errorf("expected atime %v, got %v", at, attr.Atime)
	}
	if !attr.Mtime.Equal(mt) {
		t.Errorf("expected mtime %v, got %v", mt, attr.Mtime)
	}
}

func TestStatfsAccountsForAllocations(t *testing.T) {
	fsys, _ := newTestFS(t, 1 << 20)

	before, err := fsys.Statfs()
	if err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if before.BlockSize != regionfs.BlockSize {
		t.Errorf("expected BlockSize %d, got %d", regionfs.BlockSize, before.BlockSize)
	}

	mustMknod(t, fsys, "/f")
	if _, err := fsys.Write("/f", make([]byte, 4000), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	after, err := fsys.Statfs()
	if err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if after.BlocksFree >= before.BlocksFree {
		t.Errorf("expected free blocks to drop after a 4000-byte write, before=%d after=%d", before.BlocksFree, after.BlocksFree)
	}
}

func TestNegativeOffsetsAndLengthsAreRejected(t *testing.T) {
	fsys, _ := newTestFS(t, 65536)
	mustMknod(t, fsys, "/f")

	buf := make([]byte, 4)
	if _, err := fsys.Read("/f", buf, -1); !errors.Is(err, regionfs.EFAULT) {
		t.Errorf("expected EFAULT for negative read offset, got %v", err)
	}
	if _, err := fsys.Write("/f", buf, -1); !errors.Is(err, regionfs.EFAULT) {
		t.Errorf("expected EFAULT for negative write offset, got %v", err)
	}
	if err := fsys.Truncate("/f", -1); !errors.Is(err, regionfs.EFAULT) {
		t.Errorf("expected EFAULT for negative truncate length, got %v", err)
	}
}

func TestCheckInvariantsPassesThroughLegitimateMutations(t *testing.T) {
	buf := make([]byte, 1<<20)
	fsys, err := regionfs.Mount(buf, regionfs.WithDebugFlags(regionfs.CheckInvariants))
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	mustMkdir(t, fsys, "/a")
	mustMknod(t, fsys, "/a/f")
	if _, err := fsys.Write("/a/f", []byte("hello"), 0); err != nil {
		t.Fatalf("Write with CheckInvariants on: %v", err)
	}
	if err := fsys.Truncate("/a/f", 4096); err != nil {
		t.Fatalf("Truncate with CheckInvariants on: %v", err)
	}
	if err := fsys.Rename("/a/f", "/a/g"); err != nil {
		t.Fatalf("Rename with CheckInvariants on: %v", err)
	}
	if err := fsys.Unlink("/a/g"); err != nil {
		t.Fatalf("Unlink with CheckInvariants on: %v", err)
	}
	if err := fsys.Rmdir("/a"); err != nil {
		t.Fatalf("Rmdir with CheckInvariants on: %v", err)
	}

	const n = 40
	mustMkdir(t, fsys, "/d")
	for i := 0; i < n; i++ {
		mustMknod(t, fsys, "/d/"+string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
}

func TestFreeSpaceIsReclaimedAfterUnlink(t *testing.T) {
	fsys, _ := newTestFS(t, 1 << 20)

	before, err := fsys.Statfs()
	if err != nil {
		t.Fatalf("Statfs: %v", err)
	}

	mustMknod(t, fsys, "/f")
	if _, err := fsys.Write("/f", make([]byte, 8000), 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fsys.Unlink("/f"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	after, err := fsys.Statfs()
	if err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if after.BlocksFree != before.BlocksFree {
		t.Errorf("expected free blocks to return to baseline after unlink, before=%d after=%d", before.BlocksFree, after.BlocksFree)
	}
}
