package code_snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crev/code_snapshot/models"
)

func TestScanCacheHitAndInvalidation(t *testing.T) {
	cache := NewScanCache()
	content := []byte("def a(): pass\n")
	symbols := []models.SymbolTag{{Symbol: "a", Kind: "function", Line: 1}}

	_, hit := cache.get("x.py", content)
	assert.False(t, hit)

	cache.set("x.py", content, symbols)
	got, hit := cache.get("x.py", content)
	require.True(t, hit)
	assert.Equal(t, symbols, got)

	// A content change under the same path misses.
	_, hit = cache.get("x.py", []byte("def b(): pass\n"))
	assert.False(t, hit)
}

func TestScanCacheClear(t *testing.T) {
	cache := NewScanCache()
	cache.set("a.py", []byte("x"), nil)
	cache.set("b.py", []byte("y"), nil)
	require.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}
