package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Without embedFunc it maps text to a fixed-length letter histogram.
type mockEmbeddingService struct {
	embedFunc func(ctx context.Context, text string) ([]float32, error)
	calls     atomic.Int32

	mu    sync.Mutex
	texts []string
}

var _ driven.EmbeddingService = (*mockEmbeddingService)(nil)

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return histogram(text), nil
}

func (m *mockEmbeddingService) Dimensions() int   { return 4 }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error {
	return nil
}
func (m *mockEmbeddingService) Close() error { return nil }

// histogram counts the letters a, b, c and d.
func histogram(text string) []float32 {
	v := make([]float32, 4)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'd' {
			v[r-'a']++
		}
	}
	return v
}

// mockAnswerService implements driven.AnswerService for testing.
type mockAnswerService struct {
	answer string
	err    error

	systemContext string
	question      string
	calls         int
}

var _ driven.AnswerService = (*mockAnswerService)(nil)

func (m *mockAnswerService) Answer(_ context.Context, systemContext, question string) (string, error) {
	m.calls++
	m.systemContext = systemContext
	m.question = question
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockAnswerService) ModelName() string          { return "mock-llm" }
func (m *mockAnswerService) Ping(context.Context) error { return nil }
func (m *mockAnswerService) Close() error               { return nil }

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("prompt not found")
}


// failingChunkStore wraps a ChunkStore and fails selected operations.
type failingChunkStore struct {
	driven.ChunkStore
	replaceErr error
	queryErr   error

	// replaceCtxErr records the context error seen by ReplaceChunks.
	replaceCtxErr error
	onReplace     func()
}

func (f *failingChunkStore) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.ChunkInput) error {
	if f.onReplace != nil {
		f.onReplace()
	}
	f.replaceCtxErr = ctx.Err()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	return f.ChunkStore.ReplaceChunks(ctx, documentID, chunks)
}

func (f *failingChunkStore) Query(
	ctx context.Context, documentID string, vec []float32, threshold float64, topK int,
) ([]domain.Match, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.ChunkStore.Query(ctx, documentID, vec, threshold, topK)
}

// deadlineDocStore records whether each GetDocument call carried a deadline.
type deadlineDocStore struct {
	driven.DocumentStore
	deadlines []bool
}

func (d *deadlineDocStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	_, ok := ctx.Deadline()
	d.deadlines = append(d.deadlines, ok)
	return d.DocumentStore.GetDocument(ctx, id)
}
