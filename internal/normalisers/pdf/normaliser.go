// Package pdf extracts plain text from PDF uploads.
// Extraction is text-layer only; scanned pages without a text layer yield
// no content.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLength bounds a first-line title.
const maxTitleLength = 200

// Extractor returns the text layer of a PDF file.
type Extractor func(data []byte) (string, error)

// Normaliser handles PDF documents.
type Normaliser struct {
	extract Extractor
}

// Option configures the normaliser.
type Option func(*Normaliser)

// WithExtractor replaces the PDF text extractor.
func WithExtractor(e Extractor) Option {
	return func(n *Normaliser) {
		if e != nil {
			n.extract = e
		}
	}
}

// New creates a new PDF normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{extract: ExtractText}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts and cleans the text of a PDF.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.NewInvalidInput("document", "nil raw document")
	}
	if len(raw.Content) == 0 {
		return nil, domain.NewInvalidInput("content", "empty pdf")
	}

	text, err := n.extract(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}

	content := plaintext.Clean(text)
	doc := plaintext.NewDocument(raw, content)
	if raw.Title == "" {
		doc.Title = extractTitle(content, raw.URI)
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// ExtractText reads the plain text layer using ledongthuc/pdf.
func ExtractText(data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// extractTitle uses the first short non-empty line, falling back to the filename.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxTitleLength {
			continue
		}
		return line
	}
	return plaintext.TitleFromURI(uri)
}
