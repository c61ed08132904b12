package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/core/ports/driving"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns documents into embedded chunks.
//
// A run normalises, chunks, embeds every chunk in parallel and then
// replaces the stored chunk set in one step. Runs for the same document
// are serialised; runs for different documents are independent.
type IngestService struct {
	docStore     driven.DocumentStore
	chunkStore   driven.ChunkStore
	registry     driven.NormaliserRegistry
	pipeline     driven.PostProcessorPipeline
	embedder     driven.EmbeddingService
	concurrency  int
	readTimeout  time.Duration
	writeTimeout time.Duration
	locks        *docLocks
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithConcurrency sets how many chunks are embedded at once.
func WithConcurrency(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithReadTimeout bounds each document lookup.
func WithReadTimeout(d time.Duration) IngestOption {
	return func(s *IngestService) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds the final store writes, which are not cancelled
// with the caller's context.
func WithWriteTimeout(d time.Duration) IngestOption {
	return func(s *IngestService) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewIngestService creates a new ingest service.
// The embedder is optional; without it every ingestion fails with
// domain.ErrEmbeddingUnavailable.
func NewIngestService(
	docStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docStore:     docStore,
		chunkStore:   chunkStore,
		registry:     registry,
		pipeline:     pipeline,
		embedder:     embedder,
		concurrency:  domain.DefaultConcurrency,
		readTimeout:  domain.DefaultQueryTimeout,
		writeTimeout: domain.DefaultWriteTimeout,
		locks:        newDocLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest creates a document from req.Raw, or reprocesses req.DocumentID.
// When both are set the raw content replaces the stored document's text.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	if req.Raw == nil {
		if req.DocumentID == "" {
			return nil, domain.NewInvalidInput("document", "need a document id or raw content")
		}
		return s.Reprocess(ctx, req.DocumentID)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(req.Raw.Content)) == 0 {
		return nil, domain.NewInvalidInput("content", "document is empty")
	}

	logger.Section("Ingest")
	result, err := s.registry.Normalise(ctx, req.Raw)
	if err != nil {
		return nil, failed(fmt.Errorf("normalise: %w", err))
	}
	doc := result.Document
	if strings.TrimSpace(doc.Content) == "" {
		return nil, failed(domain.NewInvalidInput("content", "no text could be extracted"))
	}

	if req.DocumentID != "" {
		doc.ID = req.DocumentID
	}

	unlock := s.locks.lock(doc.ID)
	defer unlock()

	var prev *domain.Document
	if req.DocumentID != "" {
		found, err := s.getDocument(ctx, req.DocumentID)
		switch {
		case err == nil:
			doc.CreatedAt = found.CreatedAt
			prev = found
		case !errors.Is(err, domain.ErrNotFound):
			return nil, failed(fmt.Errorf("get document: %w", err))
		}
	}
	return s.run(ctx, &doc, prev)
}

// Reprocess re-chunks and re-embeds a stored document.
func (s *IngestService) Reprocess(ctx context.Context, documentID string) (*domain.IngestReport, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.NewInvalidInput("document_id", "missing document id")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(documentID)
	defer unlock()

	logger.Section("Reprocess")
	prev, err := s.getDocument(ctx, documentID)
	if err != nil {
		return nil, failed(fmt.Errorf("get document: %w", err))
	}
	if strings.TrimSpace(prev.Content) == "" {
		return nil, failed(domain.NewInvalidInput("content", "stored document has no text"))
	}
	doc := *prev
	doc.UpdatedAt = time.Now()
	return s.run(ctx, &doc, prev)
}

func (s *IngestService) getDocument(ctx context.Context, id string) (*domain.Document, error) {
	rctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()
	return s.docStore.GetDocument(rctx, id)
}

// run chunks, embeds and commits doc. prev is the stored version, nil for a
// new document; a failed commit puts it back. The caller holds the lock.
func (s *IngestService) run(ctx context.Context, doc, prev *domain.Document) (*domain.IngestReport, error) {
	start := time.Now()

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, failed(fmt.Errorf("chunk: %w", err))
	}
	logger.Debug("Document %s: %d chunks", doc.ID, len(chunks))

	inputs, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, failed(err)
	}
	logger.Debug("Document %s: embedded %d chunks in %s", doc.ID, len(inputs), time.Since(start))

	// Once every vector exists the commit runs to completion.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	if err := s.docStore.SaveDocument(wctx, doc); err != nil {
		return nil, failed(fmt.Errorf("save document: %w", err))
	}
	if err := s.chunkStore.ReplaceChunks(wctx, doc.ID, inputs); err != nil {
		s.rollback(wctx, doc.ID, prev)
		return nil, failed(fmt.Errorf("replace chunks: %w", err))
	}

	report := &domain.IngestReport{
		DocumentID: doc.ID,
		ChunkCount: len(inputs),
		Model:      s.embedder.ModelName(),
		Duration:   time.Since(start),
	}
	if len(inputs) > 0 {
		report.Dimensions = len(inputs[0].Embedding)
	}
	logger.Info("Ingested %s: %d chunks (%d dims) in %s",
		doc.ID, report.ChunkCount, report.Dimensions, report.Duration.Round(time.Millisecond))
	return report, nil
}

// rollback restores prev after a failed chunk write, or removes a document
// that did not exist before.
func (s *IngestService) rollback(ctx context.Context, id string, prev *domain.Document) {
	if prev == nil {
		if err := s.docStore.DeleteDocument(ctx, id); err != nil {
			logger.Warn("Failed to remove document %s after chunk write error: %v", id, err)
		}
		return
	}
	if err := s.docStore.SaveDocument(ctx, prev); err != nil {
		logger.Warn("Failed to restore document %s after chunk write error: %v", id, err)
	}
}

// embedAll embeds every chunk with bounded parallelism. Result i belongs to
// chunk i whatever order the calls finish in. The first error cancels the rest.
func (s *IngestService) embedAll(ctx context.Context, chunks []domain.Chunk) ([]domain.ChunkInput, error) {
	inputs := make([]domain.ChunkInput, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := s.embedder.Embed(gctx, chunks[i].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			inputs[i] = domain.ChunkInput{Content: chunks[i].Content, Embedding: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

func (s *IngestService) ready() error {
	if s.docStore == nil || s.chunkStore == nil || s.registry == nil || s.pipeline == nil {
		return domain.ErrNotImplemented
	}
	if s.embedder == nil {
		return failed(domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// failed marks err as an aborted ingestion. errors.Is still sees the cause.
func failed(err error) error {
	if errors.Is(err, domain.ErrProcessingFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrProcessingFailed, err)
}
