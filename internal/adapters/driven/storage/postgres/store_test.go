package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/askdoc/internal/core/domain"
)

const databaseURLEnv = "ASKDOC_TEST_DATABASE_URL"

// setupTestStore connects to the database named by ASKDOC_TEST_DATABASE_URL
// and clears the tables before and after the test.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv(databaseURLEnv)
	if url == "" {
		t.Skipf("%s not set", databaseURLEnv)
	}

	ctx := context.Background()
	store, err := New(ctx, url)
	require.NoError(t, err)

	truncate := func() {
		_, err := store.pool.Exec(ctx, "TRUNCATE document_chunks, documents")
		require.NoError(t, err)
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		assert.NoError(t, store.Close())
	})
	return store
}

func chunkInputs(vecs ...[]float32) []domain.ChunkInput {
	out := make([]domain.ChunkInput, len(vecs))
	for i, v := range vecs {
		out[i] = domain.ChunkInput{Content: fmt.Sprintf("chunk %d", i), Embedding: v}
	}
	return out
}

func TestUpMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"002_more.up.sql":      {Data: []byte("SELECT 2")},
		"001_initial.up.sql":   {Data: []byte("SELECT 1")},
		"001_initial.down.sql": {Data: []byte("SELECT 0")},
		"README":               {Data: []byte("ignored")},
	}
	names, err := upMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial.up.sql", "002_more.up.sql"}, names)
}

func TestEmbeddedMigrations_DefineMatchFunction(t *testing.T) {
	names, err := upMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	content, err := migrations.FS.ReadFile(names[0])
	require.NoError(t, err)
	sql := string(content)
	assert.Contains(t, sql, "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, sql, "FUNCTION match_document_chunks")
	assert.Contains(t, sql, "ORDER BY s.similarity DESC, s.chunk_index ASC")
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	doc := &domain.Document{ID: "doc-1", Owner: "alice", Title: "Guide", Content: "text"}
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, "Guide", got.Title)

	created := got.CreatedAt
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "doc-1", Owner: "alice", Title: "Guide v2"}))
	got, err = docs.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Guide v2", got.Title)
	assert.True(t, created.Equal(got.CreatedAt))

	require.NoError(t, docs.DeleteDocument(ctx, "doc-1"))
	_, err = docs.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListByOwner(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "a", Owner: "alice"}))
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{ID: "b", Owner: "bob"}))

	all, err := docs.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := docs.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "a", mine[0].ID)
}

func TestChunkStore_ReplaceAndQuery(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs(
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{1, 0, 0},
		[]float32{0.9, 0.1, 0},
	)))

	matches, err := chunks.Query(ctx, "doc", []float32{1, 0, 0}, 0.7, 5)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{matches[0].Chunk.Index, matches[1].Chunk.Index, matches[2].Chunk.Index})
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "doc", matches[0].Chunk.DocumentID)

	limited, err := chunks.Query(ctx, "doc", []float32{1, 0, 0}, 0.7, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestChunkStore_ReplaceDoesNotAccumulate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	chunks := store.ChunkStore()

	set := chunkInputs([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", set))
	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", set))

	n, err := chunks.CountChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := chunks.GetChunks(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []float32{0, 1}, got[1].Embedding)
}

func TestChunkStore_FailedReplaceKeepsPrevious(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0})))

	err := chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0}, []float32{1, 0, 0}))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	err = chunks.ReplaceChunks(cancelled, "doc", chunkInputs([]float32{0, 1}, []float32{0, 1}))
	assert.True(t, errors.Is(err, context.Canceled))

	n, err := chunks.CountChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkStore_QueryDimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0, 0})))

	_, err := chunks.Query(ctx, "doc", []float32{1, 0}, 0.7, 5)
	var dm *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)
}

func TestChunkStore_QueryUnknownDocument(t *testing.T) {
	store := setupTestStore(t)
	matches, err := store.ChunkStore().Query(context.Background(), "missing", []float32{1}, 0.7, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestChunkStore_ZeroVectorScoresZero(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{0, 0})))
	matches, err := chunks.Query(ctx, "doc", []float32{1, 0}, 0, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].Similarity)

	matches, err = chunks.Query(ctx, "doc", []float32{1, 0}, 0.1, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestChunkStore_DeleteChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.ReplaceChunks(ctx, "doc", chunkInputs([]float32{1, 0})))
	require.NoError(t, chunks.DeleteChunks(ctx, "doc"))

	got, err := chunks.GetChunks(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, got)
}
