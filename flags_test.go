package regionfs_test

import (
	"testing"

	"github.com/KarpelesLab/regionfs"
)

func TestDebugFlagsString(t *testing.T) {
	cases := []struct {
		flag     regionfs.DebugFlags
		expected string
	}{
		{regionfs.CheckInvariants, "CheckInvariants"},
		{regionfs.LogOperations, "LogOperations"},
		{regionfs.CheckInvariants | regionfs.LogOperations, "CheckInvariants|LogOperations"},
		{0, ""},
	}

	for _, tc := range cases {
		if got := tc.flag.String(); got != tc.expected {
			t.Errorf("flag %d: expected %q, got %q", tc.flag, tc.expected, got)
		}
	}
}

func TestDebugFlagsHas(t *testing.T) {
	flags := regionfs.LogOperations

	if !flags.Has(regionfs.LogOperations) {
		t.Errorf("flags should have LogOperations")
	}
	if flags.Has(regionfs.CheckInvariants) {
		t.Errorf("flags should not have CheckInvariants")
	}
}
