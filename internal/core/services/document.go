package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/core/ports/driving"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages uploaded documents.
type DocumentService struct {
	docStore   driven.DocumentStore
	chunkStore driven.ChunkStore
	registry   driven.NormaliserRegistry
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docStore driven.DocumentStore,
	chunkStore driven.ChunkStore,
	registry driven.NormaliserRegistry,
) *DocumentService {
	return &DocumentService{
		docStore:   docStore,
		chunkStore: chunkStore,
		registry:   registry,
	}
}

// Create normalises raw and stores it as a document without chunks.
func (s *DocumentService) Create(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if s.docStore == nil || s.registry == nil {
		return nil, domain.ErrNotImplemented
	}
	if raw == nil || len(bytes.TrimSpace(raw.Content)) == 0 {
		return nil, domain.NewInvalidInput("content", "document is empty")
	}

	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}
	doc := result.Document
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.NewInvalidInput("content", "no text could be extracted")
	}

	if err := s.docStore.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.Debug("Created document %s (%s, %d chars)", doc.ID, doc.MIMEType, len(doc.Content))
	return &doc, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns the documents visible to owner. An empty owner lists everything.
func (s *DocumentService) List(ctx context.Context, owner string) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	docs, err := s.docStore.ListDocuments(ctx, "")
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return docs, nil
	}

	visible := make([]domain.Document, 0, len(docs))
	for i := range docs {
		if docs[i].VisibleTo(owner) {
			visible = append(visible, docs[i])
		}
	}
	return visible, nil
}

// Chunks returns the stored chunks of a document in index order.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if s.docStore == nil || s.chunkStore == nil {
		return nil, domain.ErrNotImplemented
	}
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.chunkStore.GetChunks(ctx, documentID)
}

// Details returns a document with its chunk count.
func (s *DocumentService) Details(ctx context.Context, documentID string) (*domain.DocumentDetails, error) {
	if s.docStore == nil || s.chunkStore == nil {
		return nil, domain.ErrNotImplemented
	}
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	count, err := s.chunkStore.CountChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return &domain.DocumentDetails{Document: *doc, ChunkCount: count}, nil
}

// Delete removes a document's chunks and then the document itself.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if s.docStore == nil || s.chunkStore == nil {
		return domain.ErrNotImplemented
	}
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.chunkStore.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.Debug("Deleted document %s", documentID)
	return nil
}
