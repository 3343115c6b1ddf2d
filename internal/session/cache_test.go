package session

import "testing"

func TestCachePopOrder(t *testing.T) {
	cache := &RecommendationCache{IDs: []int{3, 1, 2}, Source: SourcePopular}

	for _, want := range []int{3, 1, 2} {
		id, ok := cache.Pop()
		if !ok {
			t.Fatalf("Pop() exhausted early, want %d", want)
		}
		if id != want {
			t.Errorf("Pop() = %d, want %d", id, want)
		}
	}

	if !cache.Empty() {
		t.Error("cache not empty after draining")
	}
	if _, ok := cache.Pop(); ok {
		t.Error("Pop() on an empty cache reported ok")
	}
}

func TestCacheNilSafety(t *testing.T) {
	var cache *RecommendationCache
	if !cache.Empty() {
		t.Error("nil cache reported non-empty")
	}
	if cache.Len() != 0 {
		t.Errorf("nil cache Len() = %d, want 0", cache.Len())
	}
	if _, ok := cache.Pop(); ok {
		t.Error("Pop() on a nil cache reported ok")
	}
}

func TestCacheLen(t *testing.T) {
	cache := &RecommendationCache{IDs: []int{7, 8}, Source: SourceFiltered}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
	cache.Pop()
	if cache.Len() != 1 {
		t.Errorf("Len() = %d after one Pop, want 1", cache.Len())
	}
}
