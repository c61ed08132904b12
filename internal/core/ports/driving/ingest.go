package driving

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// IngestService chunks, embeds and stores documents.
type IngestService interface {
	// Ingest creates a document from req.Raw, or reprocesses req.DocumentID,
	// and atomically replaces its chunks. On error the stored chunks are
	// unchanged.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error)

	// Reprocess re-chunks and re-embeds a stored document.
	Reprocess(ctx context.Context, documentID string) (*domain.IngestReport, error)
}
