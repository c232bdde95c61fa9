package core

import (
	"testing"
)

func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestConsecutiveIDsDiffer(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Fatal("consecutive IDs should differ")
	}
}

func TestParseRunID(t *testing.T) {
	if _, err := ParseRunID(""); err == nil {
		t.Error("expected error for empty run ID")
	}
	if _, err := ParseRunID("   "); err == nil {
		t.Error("expected error for blank run ID")
	}
	id, err := ParseRunID("run-abc")
	if err != nil {
		t.Fatalf("ParseRunID failed: %v", err)
	}
	if id.String() != "run-abc" {
		t.Errorf("run ID = %q", id.String())
	}
}
