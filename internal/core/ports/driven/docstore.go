package driven

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// DocumentStore persists documents. Chunks live in the ChunkStore.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// DeleteDocument removes a document. Chunks are removed through the ChunkStore.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns documents for an owner, or all documents
	// when owner is empty.
	ListDocuments(ctx context.Context, owner string) ([]domain.Document, error)
}
