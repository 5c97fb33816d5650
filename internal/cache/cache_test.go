package cache

import (
	"testing"
	"time"
)

func TestKeyStableAndDistinct(t *testing.T) {
	a := Key("getEgytListInfoInqire", "서울특별시", "종로구")
	b := Key("getEgytListInfoInqire", "서울특별시", "종로구")
	c := Key("getEgytListInfoInqire", "서울특별시", "중구")

	if a != b {
		t.Errorf("Expected identical keys for identical signatures, got %s and %s", a, b)
	}
	if a == c {
		t.Error("Expected distinct keys for distinct regions")
	}
	if len(a) == 0 || a[:12] != "carepath:v1:" {
		t.Errorf("Expected carepath:v1: prefix, got %s", a)
	}
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("k")
	if !found || string(val) != "v" {
		t.Errorf("Expected hit with v, got %q found=%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Expected miss after delete")
	}
}

func TestDiskCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("Expected expired entry to miss")
	}

	if err := c.Set("k2", []byte("v2"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get("k2")
	if !found || string(val) != "v2" {
		t.Errorf("Expected hit with v2, got %q found=%v", val, found)
	}
}

func TestLayeredCachePromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredCache(time.Minute, dir, time.Hour)

	// Seed only the disk layer, then read through the stack.
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set(Key("sig"), []byte("v"), 0); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	val, found := layered.Get(Key("sig"))
	if !found || string(val) != "v" {
		t.Fatalf("Expected disk hit through layered cache, got %q found=%v", val, found)
	}

	// Remove the disk file; the promoted memory copy must still serve.
	if err := disk.Delete(Key("sig")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	val, found = layered.Get(Key("sig"))
	if !found || string(val) != "v" {
		t.Errorf("Expected promoted memory hit, got %q found=%v", val, found)
	}
}
