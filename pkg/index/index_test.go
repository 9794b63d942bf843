package index

import (
	"reflect"
	"testing"
)

func TestEventIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewEventIndex(dir)
	if err != nil {
		t.Fatalf("NewEventIndex failed: %v", err)
	}

	idx.Set(7, "evt-7")
	idx.Set(3, "evt-3")
	idx.Set(9, "evt-9")
	idx.Remove(9)
	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewEventIndex(dir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.Get(7); got != "evt-7" {
		t.Errorf("Expected evt-7, got %q", got)
	}
	if got := reloaded.Get(9); got != "" {
		t.Errorf("Expected removed mapping to be empty, got %q", got)
	}
	if got := reloaded.TaskIDs(); !reflect.DeepEqual(got, []int64{3, 7}) {
		t.Errorf("Expected ids [3 7], got %v", got)
	}
}
