// Package plaintext cleans extracted text and normalises plain text uploads.
package plaintext

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"application/json",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw document to a document with cleaned content.
// Paragraph boundaries are kept; chunking is handled by the PostProcessor pipeline.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.NewInvalidInput("document", "nil raw document")
	}

	return &driven.NormaliseResult{
		Document: NewDocument(raw, Clean(string(raw.Content))),
	}, nil
}

// NewDocument builds a fresh document for raw with the given cleaned content.
// Other normalisers use it once they have extracted text.
func NewDocument(raw *domain.RawDocument, content string) domain.Document {
	now := time.Now()
	title := raw.Title
	if title == "" {
		title = TitleFromURI(raw.URI)
	}
	return domain.Document{
		ID:        uuid.New().String(),
		Owner:     raw.Owner,
		URI:       raw.URI,
		Title:     title,
		MIMEType:  raw.MIMEType,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TitleFromURI extracts a human-readable title from a URI.
func TitleFromURI(uri string) string {
	if uri == "" {
		return ""
	}

	filename := filepath.Base(uri)

	// Remove common extensions for cleaner title
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
