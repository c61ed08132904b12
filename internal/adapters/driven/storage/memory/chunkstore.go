package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/askdoc/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// generation is an immutable chunk set for one document.
type generation struct {
	chunks []domain.Chunk
	dims   int
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Each replacement builds a new generation and swaps it in whole, so
// readers see either the old set or the new one.
type ChunkStore struct {
	mu          sync.RWMutex
	generations map[string]*generation
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		generations: make(map[string]*generation),
	}
}

// ReplaceChunks swaps in a new chunk set for documentID.
func (s *ChunkStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error {
	if documentID == "" {
		return domain.NewInvalidInput("document_id", "missing document id")
	}
	dims, err := vector.ValidateInputs(chunks)
	if err != nil {
		return err
	}

	gen := &generation{chunks: make([]domain.Chunk, len(chunks)), dims: dims}
	for i, c := range chunks {
		gen.chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Index:      i,
			Content:    c.Content,
			Embedding:  append([]float32(nil), c.Embedding...),
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(gen.chunks) == 0 {
		delete(s.generations, documentID)
		return nil
	}
	s.generations[documentID] = gen
	return nil
}

// Query ranks the document's chunks by cosine similarity to vec.
func (s *ChunkStore) Query(
	ctx context.Context,
	documentID string,
	vec []float32,
	threshold float64,
	topK int,
) ([]domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	gen := s.generations[documentID]
	s.mu.RUnlock()

	if gen == nil {
		return nil, nil
	}
	if err := vector.CheckDimensions(gen.dims, vec); err != nil {
		return nil, err
	}
	threshold, topK = vector.Params(threshold, topK)
	return vector.Rank(gen.chunks, vec, threshold, topK), nil
}

// GetChunks returns the document's chunks ordered by index.
func (s *ChunkStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	gen := s.generations[documentID]
	s.mu.RUnlock()
	if gen == nil {
		return nil, nil
	}
	return append([]domain.Chunk(nil), gen.chunks...), nil
}

// CountChunks returns the number of stored chunks for documentID.
func (s *ChunkStore) CountChunks(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gen := s.generations[documentID]; gen != nil {
		return len(gen.chunks), nil
	}
	return 0, nil
}

// DeleteChunks removes all chunks of documentID.
func (s *ChunkStore) DeleteChunks(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generations, documentID)
	return nil
}
