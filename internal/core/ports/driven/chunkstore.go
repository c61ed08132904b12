package driven

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// ChunkStore persists chunk vectors per document and answers
// nearest-neighbour queries against them.
type ChunkStore interface {
	// ReplaceChunks discards every stored chunk of documentID and stores
	// chunks with indices 0..n-1 in slice order. It is all-or-nothing:
	// on error the previous chunk set is still in place.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error

	// Query returns at most topK chunks of documentID whose cosine
	// similarity to vec is >= threshold, ordered by similarity descending
	// and then by ascending chunk index.
	// It fails with *domain.DimensionMismatchError when len(vec) differs
	// from the stored vectors.
	Query(ctx context.Context, documentID string, vec []float32, threshold float64, topK int) ([]domain.Match, error)

	// GetChunks returns all chunks of documentID ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// CountChunks returns the number of stored chunks for documentID.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// DeleteChunks removes all chunks of documentID.
	DeleteChunks(ctx context.Context, documentID string) error
}
