package domain

import (
	"fmt"
	"testing"
)

// TestRecencySetAddAndContains tests basic membership after insertion
func TestRecencySetAddAndContains(t *testing.T) {
	set := NewRecencySet(10)

	if set.Contains("a") {
		t.Error("expected empty set to not contain 'a'")
	}

	set.Add("a")
	if !set.Contains("a") {
		t.Error("expected set to contain 'a' after Add")
	}

	if set.Len() != 1 {
		t.Errorf("expected length 1, got %d", set.Len())
	}
}

// TestRecencySetDuplicateAddIsNoop tests that re-adding a present id does not
// grow the set or change its order
func TestRecencySetDuplicateAddIsNoop(t *testing.T) {
	set := NewRecencySet(3)
	set.Add("a")
	set.Add("b")
	set.Add("a")

	if set.Len() != 2 {
		t.Errorf("expected length 2 after duplicate add, got %d", set.Len())
	}

	snapshot := set.Snapshot()
	if snapshot[0] != "a" || snapshot[1] != "b" {
		t.Errorf("expected order [a b], got %v", snapshot)
	}
}

// TestRecencySetEvictsOldestFirst tests FIFO eviction once capacity is reached
func TestRecencySetEvictsOldestFirst(t *testing.T) {
	set := NewRecencySet(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		set.Add(id)
	}

	if set.Len() != 3 {
		t.Errorf("expected length capped at 3, got %d", set.Len())
	}

	if set.Contains("a") {
		t.Error("expected oldest entry 'a' to be evicted")
	}

	for _, id := range []string{"b", "c", "d"} {
		if !set.Contains(id) {
			t.Errorf("expected %q to survive eviction", id)
		}
	}
}

// TestRecencySetSizeNeverExceedsCapacity tests the capacity bound under many
// insertions
func TestRecencySetSizeNeverExceedsCapacity(t *testing.T) {
	set := NewRecencySet(5)
	for i := 0; i < 100; i++ {
		set.Add(fmt.Sprintf("id-%d", i))
		if set.Len() > 5 {
			t.Fatalf("size %d exceeded capacity 5 after insert %d", set.Len(), i)
		}
	}

	// The five newest ids survive.
	for i := 95; i < 100; i++ {
		if !set.Contains(fmt.Sprintf("id-%d", i)) {
			t.Errorf("expected id-%d to be retained", i)
		}
	}
}

// TestRecencySetRestoreAppliesCapacity tests that restoring more ids than
// capacity keeps only the newest
func TestRecencySetRestoreAppliesCapacity(t *testing.T) {
	set := NewRecencySet(2)
	set.Restore([]string{"a", "b", "c"})

	if set.Len() != 2 {
		t.Errorf("expected length 2 after restore, got %d", set.Len())
	}
	if set.Contains("a") {
		t.Error("expected 'a' to be dropped by capacity during restore")
	}
	if !set.Contains("b") || !set.Contains("c") {
		t.Error("expected 'b' and 'c' to survive restore")
	}
}

// TestRecencySetClampsCapacity tests that a nonsense capacity is clamped
func TestRecencySetClampsCapacity(t *testing.T) {
	set := NewRecencySet(0)
	set.Add("a")
	set.Add("b")

	if set.Len() != 1 {
		t.Errorf("expected clamped capacity 1, got length %d", set.Len())
	}
}
