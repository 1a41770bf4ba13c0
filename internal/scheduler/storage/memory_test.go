package storage

import (
	"testing"

	"github.com/nemanja-m/gomandel/internal/scheduler/core"
)

func tileKey(x int) core.TileKey {
	return core.TileKey{Tile: core.TileCoords{X: x}, Iterations: 64, TileSize: 2}
}

func TestLRUTileCache_GetPut(t *testing.T) {
	cache, err := NewLRUTileCache(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := cache.Get(tileKey(0)); ok {
		t.Fatal("expected miss on empty cache")
	}

	counts := []int{1, 2, 3, 4}
	cache.Put(tileKey(0), counts)
	counts[0] = 99

	got, ok := cache.Get(tileKey(0))
	if !ok {
		t.Fatal("expected hit")
	}
	if got[0] != 1 {
		t.Errorf("cache shares memory with caller: %v", got)
	}
	got[1] = 42
	if again, _ := cache.Get(tileKey(0)); again[1] != 2 {
		t.Errorf("returned slice aliases cached value: %v", again)
	}
}

func TestLRUTileCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, _ := NewLRUTileCache(2)
	cache.Put(tileKey(0), []int{0})
	cache.Put(tileKey(1), []int{1})
	cache.Get(tileKey(0))
	cache.Put(tileKey(2), []int{2})

	if cache.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", cache.Len())
	}
	if _, ok := cache.Get(tileKey(1)); ok {
		t.Error("expected least recently used tile to be evicted")
	}
	if _, ok := cache.Get(tileKey(0)); !ok {
		t.Error("expected recently used tile to survive")
	}
}

func TestLRUTileCache_KeyIncludesIterations(t *testing.T) {
	cache, _ := NewLRUTileCache(4)
	key := tileKey(0)
	cache.Put(key, []int{1})

	key.Iterations = 128
	if _, ok := cache.Get(key); ok {
		t.Error("tiles at different iteration counts must not collide")
	}
}

func TestNewTileCache(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
		noop    bool
	}{
		{name: "disabled", size: 0, noop: true},
		{name: "sized", size: 16},
		{name: "negative", size: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, err := NewTileCache(tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTileCache(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			_, isNoop := cache.(NoopTileCache)
			if isNoop != tt.noop {
				t.Errorf("noop = %v, want %v", isNoop, tt.noop)
			}
			cache.Put(tileKey(0), []int{1})
			_, ok := cache.Get(tileKey(0))
			if ok == tt.noop {
				t.Errorf("Get hit = %v for noop = %v", ok, tt.noop)
			}
		})
	}
}
