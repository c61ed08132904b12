package driving

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Create normalises raw and stores it as a new document.
	// The document has no chunks until it is ingested.
	Create(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns the documents visible to owner.
	List(ctx context.Context, owner string) ([]domain.Document, error)

	// Chunks returns the stored chunks of a document in index order.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Details returns a document with its chunk count.
	Details(ctx context.Context, documentID string) (*domain.DocumentDetails, error)

	// Delete removes a document and all of its chunks.
	Delete(ctx context.Context, documentID string) error
}
