package driven

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// Normaliser transforms raw documents into cleaned text.
// Each normaliser handles specific MIME types (e.g., PDF, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a document with cleaned content.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Normalisation only produces a Document with Content; paragraph
// boundaries survive so the chunker can see them.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
