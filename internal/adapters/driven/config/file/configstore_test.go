package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_ReadsTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[corpus]
source_dir = "/data/docs"

[rerank]
base_url = "http://reranker:8080"
threshold = 0.45
boost = 1

[chunker]
max_chunk_size = 800

[retrieval]
expand_synonyms = false
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "/data/docs", store.GetString("corpus.source_dir"))
	assert.InDelta(t, 0.45, store.GetFloat("rerank.threshold"), 1e-9)
	assert.InDelta(t, 1.0, store.GetFloat("rerank.boost"), 1e-9)
	assert.Equal(t, 800, store.GetInt("chunker.max_chunk_size"))
	assert.False(t, store.GetBool("retrieval.expand_synonyms"))
	_, ok := store.Get("retrieval.expand_synonyms")
	assert.True(t, ok)
}

func TestConfigStore_GetFloat(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("a", 0.25))
	require.NoError(t, store.Set("b", 2))
	require.NoError(t, store.Set("c", " 0.3 "))
	require.NoError(t, store.Set("d", "high"))
	require.NoError(t, store.Set("e", true))

	assert.InDelta(t, 0.25, store.GetFloat("a"), 1e-9)
	assert.InDelta(t, 2.0, store.GetFloat("b"), 1e-9)
	assert.InDelta(t, 0.3, store.GetFloat("c"), 1e-9)
	assert.Zero(t, store.GetFloat("d"))
	assert.Zero(t, store.GetFloat("e"))
	assert.Zero(t, store.GetFloat("missing"))
}

func TestConfigStore_TypeMismatchDefaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("n", 5))
	assert.Empty(t, store.GetString("n"))
	assert.False(t, store.GetBool("n"))
	assert.Nil(t, store.GetStringSlice("n"))
	assert.Zero(t, store.GetInt("missing"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("rerank.model", "bge-reranker-v2-m3"))
	require.NoError(t, store.Set("rerank.threshold", 0.3))
	require.NoError(t, store.Set("server.port", 9000))
	require.NoError(t, store.Set("tags", []string{"a", "b"}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[rerank]")
	assert.Contains(t, string(raw), "[server]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "bge-reranker-v2-m3", reloaded.GetString("rerank.model"))
	assert.InDelta(t, 0.3, reloaded.GetFloat("rerank.threshold"), 1e-9)
	assert.Equal(t, 9000, reloaded.GetInt("server.port"))
	assert.Equal(t, []string{"a", "b"}, reloaded.GetStringSlice("tags"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("rerank.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[unclosed"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("retrieval.top_k", 3)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.top_k")
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, store.GetInt("retrieval.top_k"))
}

func TestNestMap(t *testing.T) {
	got := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
	})
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, got)
}
