package bloom

import (
	"fmt"
	"testing"
)

func TestRollingFilterAddTest(t *testing.T) {
	rf := NewRollingFilter(1000, 1e-6)
	rf.Add([]byte("peer-addr-1"))
	if !rf.Test([]byte("peer-addr-1")) {
		t.Fatal("expected added element to test positive")
	}
	if rf.Test([]byte("never-added")) {
		t.Log("false positive on untested element (probabilistically possible)")
	}
}

func TestRollingFilterSurvivesRotation(t *testing.T) {
	rf := NewRollingFilter(10, 1e-3)
	var recent [][]byte
	for i := 0; i < 100; i++ {
		item := []byte(fmt.Sprintf("item-%d", i))
		rf.Add(item)
		recent = append(recent, item)
		if len(recent) > 5 {
			recent = recent[1:]
		}
	}
	for _, item := range recent {
		if !rf.Test(item) {
			t.Fatalf("expected recently-added item %q to still test positive after rotation", item)
		}
	}
}
