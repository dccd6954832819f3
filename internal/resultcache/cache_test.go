package resultcache

import "testing"

func TestCache_GetAfterAdd(t *testing.T) {
	cache, err := New(8)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	src := []byte("@meta { title: \"x\"; }")
	if _, ok := cache.Get(src); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Add(src, Entry{BlockKinds: []string{"meta"}})
	entry, ok := cache.Get(src)
	if !ok {
		t.Fatal("expected hit after Add")
	}
	if entry.Failed || len(entry.BlockKinds) != 1 || entry.BlockKinds[0] != "meta" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("unexpected stats hits=%d misses=%d", hits, misses)
	}
}

func TestCache_ContentChangeMisses(t *testing.T) {
	cache, err := New(8)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	cache.Add([]byte("@meta {"), Entry{Failed: true, Error: "unterminated @meta block at line 1, column 1"})
	if _, ok := cache.Get([]byte("@meta {}")); ok {
		t.Fatal("expected miss for different content")
	}
	entry, ok := cache.Get([]byte("@meta {"))
	if !ok || !entry.Failed {
		t.Fatalf("expected cached failure, got ok=%v entry=%+v", ok, entry)
	}
}

func TestCache_EvictsOldest(t *testing.T) {
	cache, err := New(2)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	cache.Add([]byte("a"), Entry{})
	cache.Add([]byte("b"), Entry{})
	cache.Add([]byte("c"), Entry{})

	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get([]byte("a")); ok {
		t.Fatal("expected oldest entry to be evicted")
	}
}

func TestCache_NilIsSafe(t *testing.T) {
	var cache *Cache
	cache.Add([]byte("a"), Entry{})
	if _, ok := cache.Get([]byte("a")); ok {
		t.Fatal("nil cache should always miss")
	}
	if cache.Len() != 0 {
		t.Fatal("nil cache should be empty")
	}
	if hits, misses := cache.Stats(); hits != 0 || misses != 0 {
		t.Fatal("nil cache should report zero stats")
	}
}

func TestKey_Deterministic(t *testing.T) {
	if Key([]byte("same")) != Key([]byte("same")) {
		t.Fatal("expected identical keys for identical content")
	}
	if Key([]byte("one")) == Key([]byte("two")) {
		t.Fatal("expected different keys for different content")
	}
}
