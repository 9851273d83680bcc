package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFragmentKey_RoundTrip(t *testing.T) {
	key := FragmentKey("987654")
	id, ok := IDFromKey(key)
	if !ok || id != "987654" {
		t.Errorf("Expected 987654, got %q (ok=%v)", id, ok)
	}

	if _, ok := IDFromKey("other-key"); ok {
		t.Error("Expected foreign key to be rejected")
	}
}

func TestDiskCache_SetGetDelete(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("Expected v, got %q (ok=%v)", got, ok)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Expected key to be gone after delete")
	}
	if err := c.Delete("k"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("old", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("old"); ok {
		t.Error("Expected expired entry to miss")
	}
	keys, err := c.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no live keys, got %v", keys)
	}
}

func TestDiskCache_KeysMissingDir(t *testing.T) {
	c := NewDiskCache(t.TempDir()+"/absent", time.Hour)
	keys, err := c.Keys()
	if err != nil {
		t.Fatalf("Expected no error for a missing dir, got %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected no keys, got %v", keys)
	}
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	first := NewLayeredCache(time.Hour, dir, time.Hour)
	if err := first.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh instance has an empty memory layer
	second := NewLayeredCache(time.Hour, dir, time.Hour)
	got, ok := second.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q (ok=%v)", got, ok)
	}
	if _, ok := second.memory.Get("k"); !ok {
		t.Error("Expected value to be promoted to memory")
	}
}

func TestFragmentStore(t *testing.T) {
	store := NewFragmentStore(NewLayeredCache(time.Hour, t.TempDir(), time.Hour), 0)

	for _, id := range []string{"1000", "99", "250"} {
		if err := store.Put(id, "<div>"+id+"</div>"); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	if !store.Has("99") {
		t.Error("Expected 99 to be stored")
	}
	if store.Has("7") {
		t.Error("Expected 7 to be absent")
	}

	html, ok := store.Get("250")
	if !ok || html != "<div>250</div>" {
		t.Errorf("Expected stored fragment, got %q (ok=%v)", html, ok)
	}

	ids, err := store.IDs()
	if err != nil {
		t.Fatalf("IDs failed: %v", err)
	}
	if diff := cmp.Diff([]string{"99", "250", "1000"}, ids); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	if err := store.Put("", "x"); err == nil {
		t.Error("Expected error for empty identifier")
	}
}

func TestFragmentStore_MemoryOnly(t *testing.T) {
	store := NewFragmentStore(NewMemoryCache(time.Hour, time.Minute), 0)
	if err := store.Put("5", "x"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ids, err := store.IDs()
	if err != nil {
		t.Fatalf("IDs failed: %v", err)
	}
	if diff := cmp.Diff([]string{"5"}, ids); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestDiskCache_RejectsUnsafeKeys(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	for _, key := range []string{"", "../escape", `a\b`, ".hidden"} {
		if err := c.Set(key, []byte("v"), 0); err == nil {
			t.Errorf("Expected key %q to be rejected", key)
		}
	}
}

func TestDiskCache_IgnoresUnfinishedWrites(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	if err := c.Set("done", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".partial-123.cache"), []byte("{"), 0644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	keys, err := c.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if diff := cmp.Diff([]string{"done"}, keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}
