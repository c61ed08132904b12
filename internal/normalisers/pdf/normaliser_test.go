package pdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

func fakeExtractor(text string, err error) Extractor {
	return func(_ []byte) (string, error) {
		return text, err
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "application/pdf")
	assert.Len(t, mimeTypes, 1)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	n := New(WithExtractor(fakeExtractor("Quarterly Report\n\n\n\nRevenue grew.\x0c\n", nil)))

	raw := &domain.RawDocument{
		Owner:    "alice",
		URI:      "/uploads/q3.pdf",
		MIMEType: "application/pdf",
		Content:  []byte("%PDF-1.4"),
	}

	result, err := n.Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Quarterly Report", doc.Title)
	assert.Equal(t, "Quarterly Report\n\nRevenue grew.", doc.Content)
	assert.Equal(t, "alice", doc.Owner)
	assert.Equal(t, "application/pdf", doc.MIMEType)
}

func TestNormalise_ExtractorError(t *testing.T) {
	n := New(WithExtractor(fakeExtractor("", errors.New("bad xref"))))

	_, err := n.Normalise(context.Background(), &domain.RawDocument{Content: []byte("x")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad xref")
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_EmptyContent(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.RawDocument{URI: "/a.pdf"})

	var target *domain.InvalidInputError
	assert.ErrorAs(t, err, &target)
}

func TestExtractText_InvalidPDF(t *testing.T) {
	_, err := ExtractText([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		uri      string
		expected string
	}{
		{
			name:     "first line as title",
			content:  "Document Title\n\nSome content here.",
			uri:      "/doc.pdf",
			expected: "Document Title",
		},
		{
			name:     "skip empty lines",
			content:  "\n\n\nActual Title\nContent",
			uri:      "/doc.pdf",
			expected: "Actual Title",
		},
		{
			name:     "fallback to filename",
			content:  "",
			uri:      "/path/to/my_document.pdf",
			expected: "my document",
		},
		{
			name:     "skip very long first line",
			content:  strings.Repeat("x", 250) + "\nShort Title\nContent",
			uri:      "/doc.pdf",
			expected: "Short Title",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, extractTitle(tc.content, tc.uri))
		})
	}
}
