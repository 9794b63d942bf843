package colors

import (
	"testing"
	"time"
)

func TestColorIDAssignsAndPersists(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewColorCache(dir)
	if err != nil {
		t.Fatalf("NewColorCache failed: %v", err)
	}

	if got := cache.ColorID("", true); got != UnownedColor {
		t.Errorf("Expected unowned colour %s, got %s", UnownedColor, got)
	}
	ana := cache.ColorID("ana", true)
	bo := cache.ColorID("bo", false)
	if ana != "1" || bo != "2" {
		t.Errorf("Expected colours 1 and 2, got %s and %s", ana, bo)
	}
	if again := cache.ColorID("ana", true); again != ana {
		t.Errorf("Expected ana to keep colour %s, got %s", ana, again)
	}
	if cache.Owners["ana"].OpenTasks != 2 || cache.Owners["bo"].OpenTasks != 0 {
		t.Errorf("Unexpected open task counts: %+v %+v", cache.Owners["ana"], cache.Owners["bo"])
	}

	if err := cache.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := NewColorCache(dir)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.Owners["bo"]; got == nil || got.ColorID != "2" {
		t.Errorf("Expected bo to reload with colour 2, got %+v", got)
	}
}

func TestColorIDEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewColorCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewColorCache failed: %v", err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for i := 0; i < maxColor; i++ {
		cache.ColorID(string(rune('a'+i)), true)
	}
	// Touch "a" so "b" becomes the oldest.
	cache.ColorID("a", true)

	got := cache.ColorID("newcomer", true)
	if got != "2" {
		t.Errorf("Expected newcomer to take b's colour 2, got %s", got)
	}
	if _, ok := cache.Owners["b"]; ok {
		t.Error("Expected b to be evicted")
	}

	cache.ResetCounts()
	if cache.Owners["a"].OpenTasks != 0 {
		t.Errorf("Expected counts reset, got %d", cache.Owners["a"].OpenTasks)
	}
}
