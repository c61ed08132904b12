package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func chunkInputs(vecs ...[]float32) []domain.ChunkInput {
	out := make([]domain.ChunkInput, len(vecs))
	for i, v := range vecs {
		out[i] = domain.ChunkInput{Content: fmt.Sprintf("chunk %d", i), Embedding: v}
	}
	return out
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, dbFile), store.Path())

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.DocumentStore().SaveDocument(context.Background(), &domain.Document{ID: "d"}))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	doc, err := second.DocumentStore().GetDocument(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, "d", doc.ID)
}

func TestMigrate_SkipsUnversionedAndApplied(t *testing.T) {
	store := setupTestStore(t)

	fsys := fstest.MapFS{
		"001_initial.up.sql": {Data: []byte("SELECT 1")},
		"002_extra.up.sql":   {Data: []byte("CREATE TABLE extra (id INTEGER)")},
		"readme.up.sql":      {Data: []byte("not sql")},
		"002_extra.down.sql": {Data: []byte("DROP TABLE extra")},
	}
	require.NoError(t, store.migrate(fsys))

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	// Running again applies nothing.
	require.NoError(t, store.migrate(fsys))
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	store := setupTestStore(t)
	err := store.migrate(fstest.MapFS{"005_bad.up.sql": {Data: []byte("CREATE TABLE;")}})
	require.Error(t, err)

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = 5").Scan(&count))
	assert.Zero(t, count)
}

func TestDocumentStore_CRUD(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		ID:        "doc-1",
		Owner:     "alice",
		URI:       "/tmp/a.txt",
		Title:     "A",
		MIMEType:  "text/plain",
		Content:   "Hello.\n\nWorld.",
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, "Hello.\n\nWorld.", got.Content)
	assert.Equal(t, "text/plain", got.MIMEType)
	assert.True(t, created.Equal(got.CreatedAt))

	doc.Title = "B"
	doc.UpdatedAt = created.Add(time.Hour)
	doc.CreatedAt = created.Add(2 * time.Hour)
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err = docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title)
	assert.True(t, created.Equal(got.CreatedAt), "created_at is kept on update")

	require.NoError(t, docs.DeleteDocument(ctx, "doc-1"))
	_, err = docs.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveRejectsMissingID(t *testing.T) {
	store := setupTestStore(t)
	err := store.DocumentStore().SaveDocument(context.Background(), &domain.Document{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	store := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "b", Owner: "alice", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "a", Owner: "alice", CreatedAt: base}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "c", Owner: "bob", CreatedAt: base}))

	all, err := docs.ListDocuments(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[1].ID)
	assert.Equal(t, "b", all[2].ID)

	bob, err := docs.ListDocuments(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, "c", bob[0].ID)
}

func TestChunkStore_ReplaceAndGet(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0, 0, 1},
	)))

	got, err := chunks.GetChunks(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc", c.DocumentID)
		assert.Equal(t, fmt.Sprintf("chunk %d", i), c.Content)
		assert.Len(t, c.Embedding, 3)
	}
	assert.Equal(t, []float32{0, 1, 0}, got[1].Embedding)
}

func TestChunkStore_ReplaceTwiceKeepsN(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()
	set := chunkInputs([]float32{1, 0}, []float32{0, 1})

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", set))
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", set))

	n, err := chunks.CountChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChunkStore_InvalidReplaceLeavesPrevious(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0})))

	err := chunks.ReplaceChunks(ctx, "doc", []domain.ChunkInput{
		{Content: "x", Embedding: []float32{1, 0}},
		{Content: "", Embedding: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, err := chunks.CountChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkStore_ReplaceAlreadyCancelled(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	require.NoError(t, chunks.ReplaceChunks(context.Background(), "doc", chunkInputs([]float32{1, 0})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0}, []float32{0, 1}))
	assert.ErrorIs(t, err, context.Canceled)

	n, err := chunks.CountChunks(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkStore_Query(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs(
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0.9, 0.1},
		[]float32{1, 0},
	)))
	require.NoError(t, chunks.ReplaceChunks(ctx, "other", chunkInputs([]float32{1, 0})))

	matches, err := chunks.Query(ctx, "doc", []float32{1, 0}, 0.7, 5)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, 1, matches[0].Chunk.Index)
	assert.Equal(t, 3, matches[1].Chunk.Index)
	assert.Equal(t, 2, matches[2].Chunk.Index)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	for _, m := range matches {
		assert.Equal(t, "doc", m.Chunk.DocumentID)
	}

	limited, err := chunks.Query(ctx, "doc", []float32{1, 0}, 0.7, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestChunkStore_QueryDimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0, 0})))

	_, err := chunks.Query(ctx, "doc", []float32{1, 0}, 0.7, 5)
	var dm *domain.DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
}

func TestChunkStore_QueryEmptyDocument(t *testing.T) {
	store := setupTestStore(t)
	matches, err := store.ChunkStore().Query(context.Background(), "missing", []float32{1}, 0.7, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestChunkStore_DeleteChunks(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1})))
	require.NoError(t, chunks.DeleteChunks(ctx, "doc"))

	n, err := chunks.CountChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChunkStore_ConcurrentReplaceIsAtomic(t *testing.T) {
	store := setupTestStore(t)
	chunks := store.ChunkStore()
	ctx := context.Background()

	small := chunkInputs([]float32{1, 0}, []float32{1, 0})
	large := chunkInputs([]float32{1, 0}, []float32{1, 0}, []float32{1, 0}, []float32{1, 0})
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", small))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			set := small
			if n%2 == 0 {
				set = large
			}
			assert.NoError(t, chunks.ReplaceChunks(ctx, "doc", set))
		}(i)
		go func() {
			defer wg.Done()
			got, err := chunks.GetChunks(ctx, "doc")
			assert.NoError(t, err)
			assert.Contains(t, []int{2, 4}, len(got))
		}()
	}
	wg.Wait()
}

func TestFloat32Blob(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
