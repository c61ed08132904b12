package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
}

func TestNewConfigStore_MissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	_, ok := store.Lookup("retrieval.top_k")
	assert.False(t, ok)
	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "opening must not create the file")
}

func TestNewConfigStore_DefaultDirIsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".askdoc", "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := NewConfigStore(dir)

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_ReadsSections(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[retrieval]
threshold = 0.65
top_k = 3

[embedding]
provider = "ollama"

  [embedding.cache]
  enabled = true

[user]
name = "alice"
`)

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	tests := map[string]any{
		"retrieval.threshold":     0.65,
		"retrieval.top_k":         int64(3),
		"embedding.provider":      "ollama",
		"embedding.cache.enabled": true,
		"user.name":               "alice",
	}
	for key, want := range tests {
		got, ok := store.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestNewConfigStore_ReadsQuotedDottedKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "'chunker.chunk_size' = 400\n")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	got, ok := store.Lookup("chunker.chunk_size")
	require.True(t, ok)
	assert.Equal(t, int64(400), got)
}

func TestNewConfigStore_ParseErrorNamesFileAndLine(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[retrieval]\ntop_k = = 3\n")

	store, err := NewConfigStore(dir)

	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), filepath.Join(dir, "config.toml")+":2:")
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/askdoc")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_SetWritesSections(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("retrieval.top_k", int64(8)))
	require.NoError(t, store.Set("embedding.cache.ttl", "24h"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[retrieval]")
	assert.Contains(t, content, "top_k = 8")
	assert.Contains(t, content, "[embedding.cache]")
	assert.NotContains(t, content, "'retrieval.top_k'")
}

func TestConfigStore_SetSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("retrieval.threshold", 0.5))
	require.NoError(t, store.Set("retrieval.top_k", int64(2)))
	require.NoError(t, store.Set("embedding.cache.enabled", false))
	require.NoError(t, store.Set("user.name", "bob"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	for _, key := range []string{"retrieval.threshold", "retrieval.top_k", "embedding.cache.enabled", "user.name"} {
		want, _ := store.Lookup(key)
		got, ok := reopened.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestConfigStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigStore_SetRejectsSectionConflicts(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.model", "llama3.2"))

	assert.Error(t, store.Set("llm", "openai"))
	assert.Error(t, store.Set("llm.model.name", "x"))
	assert.Error(t, store.Set("", "x"))
	assert.Error(t, store.Set("llm.", "x"))

	got, _ := store.Lookup("llm.model")
	assert.Equal(t, "llama3.2", got)
}

func TestConfigStore_FailedWriteKeepsValues(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("user.name", "alice"))

	require.NoError(t, os.Chmod(dir, 0o500))
	defer func() { _ = os.Chmod(dir, 0o700) }()

	assert.Error(t, store.Set("user.name", "mallory"))
	got, _ := store.Lookup("user.name")
	assert.Equal(t, "alice", got)
}

func TestConfigStore_Unset(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("retrieval.top_k", int64(3)))
	require.NoError(t, store.Set("user.name", "alice"))

	require.NoError(t, store.Unset("retrieval.top_k"))
	require.NoError(t, store.Unset("retrieval.top_k"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := reopened.Lookup("retrieval.top_k")
	assert.False(t, ok)
	_, ok = reopened.Lookup("user.name")
	assert.True(t, ok)
}

func TestConfigStore_ConcurrentSets(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	keys := []string{"retrieval.top_k", "chunker.chunk_size", "ingest.concurrency", "embedding.max_retries"}
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Set(key, int64(i+1)))
		}()
	}
	wg.Wait()

	reopened, err := NewConfigStore(filepath.Dir(store.Path()))
	require.NoError(t, err)
	for i, key := range keys {
		got, ok := reopened.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, int64(i+1), got)
	}
}

func TestNest(t *testing.T) {
	got := nest(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, got)
}
