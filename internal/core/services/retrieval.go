package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/core/ports/driving"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultAnswerPrompt frames the context block when no prompt store is set.
const DefaultAnswerPrompt = `Answer the question using only the context below.
If the context does not contain the answer, say that you do not know.

Context:
%s`

// RetrievalService answers questions about a single document.
type RetrievalService struct {
	docStore     driven.DocumentStore
	chunkStore   driven.ChunkStore
	embedder     driven.EmbeddingService
	answerer     driven.AnswerService
	prompts      driven.PromptStore
	settings     domain.RetrievalSettings
	queryTimeout time.Duration
}

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithRetrievalSettings sets the matching defaults and the context bound.
func WithRetrievalSettings(settings domain.RetrievalSettings) RetrievalOption {
	return func(s *RetrievalService) {
		if settings.TopK <= 0 {
			settings.TopK = domain.DefaultTopK
		}
		s.settings = settings
	}
}

// WithQueryTimeout bounds each similarity query.
func WithQueryTimeout(d time.Duration) RetrievalOption {
	return func(s *RetrievalService) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithPromptStore loads the answer system prompt from store.
func WithPromptStore(store driven.PromptStore) RetrievalOption {
	return func(s *RetrievalService) {
		s.prompts = store
	}
}

// NewRetrievalService creates a new retrieval service.
// The answerer is optional; Search works without it.
func NewRetrievalService(
	docStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	embedder driven.EmbeddingService,
	answerer driven.AnswerService,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		docStore:     docStore,
		chunkStore:   chunkStore,
		embedder:     embedder,
		answerer:     answerer,
		settings:     domain.DefaultRetrievalSettings(),
		queryTimeout: domain.DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// request carries one question through the state machine.
type request struct {
	id    string
	state domain.RetrievalState
	start time.Time
}

func (r *request) enter(next domain.RetrievalState) {
	logger.Debug("ask %s: %s -> %s (%s)", r.id, r.state, next, time.Since(r.start).Round(time.Millisecond))
	r.state = next
}

// fail moves the request to Failed and records the state it failed in.
func (r *request) fail(err error) error {
	failedIn := r.state
	r.enter(domain.StateFailed)
	return &domain.StageError{State: failedIn, Err: err}
}

// Ask embeds the question, matches it against the document, assembles
// context and generates an answer. Zero matches still produce an answer
// from an empty context.
func (s *RetrievalService) Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error) {
	if s.answerer == nil {
		return nil, domain.ErrLLMUnavailable
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.NewInvalidInput("question", "question is empty")
	}
	req.Question = question

	logger.Section("Ask")
	r := &request{id: req.DocumentID, start: time.Now()}
	matches, err := s.match(ctx, r, req.Search())
	if err != nil {
		return nil, err
	}

	r.enter(domain.StateContextAssembly)
	used, block := assembleContext(matches, s.settings.MaxContextChars)
	logger.Debug("ask %s: context of %d chars from %d of %d matches", r.id, len(block), len(used), len(matches))

	r.enter(domain.StateAnswering)
	text, err := s.answerer.Answer(ctx, s.systemPrompt(block), question)
	if err != nil {
		return nil, r.fail(asAnswerError(err))
	}

	r.enter(domain.StateDone)
	logger.Info("Answered question on %s using %d chunks in %s", r.id, len(used), time.Since(r.start).Round(time.Millisecond))
	return &domain.Answer{
		Text:    text,
		Matches: used,
		Context: block,
		State:   domain.StateDone,
	}, nil
}

// Search runs the embedding and matching steps only.
func (s *RetrievalService) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Match, error) {
	r := &request{id: req.DocumentID, start: time.Now()}
	matches, err := s.match(ctx, r, req)
	if err != nil {
		return nil, err
	}
	r.enter(domain.StateDone)
	return matches, nil
}

// match validates req and runs Embedding then Matching.
func (s *RetrievalService) match(ctx context.Context, r *request, req domain.SearchRequest) ([]domain.Match, error) {
	if s.docStore == nil || s.chunkStore == nil {
		return nil, domain.ErrNotImplemented
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, domain.NewInvalidInput("document_id", "missing document id")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.NewInvalidInput("query", "query is empty")
	}

	lctx, lcancel := context.WithTimeout(ctx, s.queryTimeout)
	doc, err := s.docStore.GetDocument(lctx, req.DocumentID)
	lcancel()
	if err != nil {
		return nil, err
	}
	if !doc.VisibleTo(req.Owner) {
		return nil, fmt.Errorf("%w: document %s belongs to another user", domain.ErrForbidden, req.DocumentID)
	}

	r.state = domain.StateEmbedding
	logger.Debug("ask %s: %s", r.id, r.state)
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, r.fail(asEmbeddingError(err))
	}

	r.enter(domain.StateMatching)
	threshold, topK := s.settings.Threshold, s.settings.TopK
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if req.TopK > 0 {
		topK = req.TopK
	}

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	matches, err := s.chunkStore.Query(qctx, req.DocumentID, vec, threshold, topK)
	if err != nil {
		return nil, r.fail(err)
	}
	logger.Debug("ask %s: %d matches (threshold %.2f, top %d)", r.id, len(matches), threshold, topK)
	return matches, nil
}

func (s *RetrievalService) systemPrompt(block string) string {
	tmpl := DefaultAnswerPrompt
	if s.prompts != nil {
		if p, err := s.prompts.Load(driven.PromptAnswerSystem); err == nil && strings.Contains(p, "%s") {
			tmpl = p
		} else if err != nil {
			logger.Warn("Using default answer prompt: %v", err)
		}
	}
	return fmt.Sprintf(tmpl, block)
}

// assembleContext joins match contents in order. With maxChars > 0,
// matches are dropped from the tail until the block fits.
func assembleContext(matches []domain.Match, maxChars int) ([]domain.Match, string) {
	used := matches
	for {
		parts := make([]string, len(used))
		for i, m := range used {
			parts[i] = m.Chunk.Content
		}
		block := strings.Join(parts, domain.ContextSeparator)
		if maxChars <= 0 || len([]rune(block)) <= maxChars || len(used) == 0 {
			return used, block
		}
		used = used[:len(used)-1]
	}
}

// asEmbeddingError leaves typed errors alone and wraps anything else.
func asEmbeddingError(err error) error {
	var svc *domain.EmbeddingServiceError
	var inv *domain.InvalidInputError
	var dim *domain.DimensionMismatchError
	if errors.As(err, &svc) || errors.As(err, &inv) || errors.As(err, &dim) {
		return err
	}
	return &domain.EmbeddingServiceError{Err: err}
}

// asAnswerError leaves typed errors alone and wraps anything else.
func asAnswerError(err error) error {
	var svc *domain.AnswerServiceError
	if errors.As(err, &svc) {
		return err
	}
	return &domain.AnswerServiceError{Err: err}
}
