package mcp

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	answer  *domain.Answer
	matches []domain.Match
	err     error

	lastAsk    domain.AskRequest
	lastSearch domain.SearchRequest
}

func (m *mockRetrievalService) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.lastAsk = req
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockRetrievalService) Search(_ context.Context, req domain.SearchRequest) ([]domain.Match, error) {
	m.lastSearch = req
	return m.matches, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chunks    []domain.Chunk
	err       error

	listOwner string
}

func (m *mockDocumentService) Create(_ context.Context, _ *domain.RawDocument) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.document == nil {
		return nil, domain.ErrNotFound
	}
	return m.document, nil
}

func (m *mockDocumentService) List(_ context.Context, owner string) ([]domain.Document, error) {
	m.listOwner = owner
	return m.documents, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Details(_ context.Context, _ string) (*domain.DocumentDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.DocumentDetails{Document: *m.document, ChunkCount: len(m.chunks)}, nil
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}
