package domain

import "time"

// Document represents an uploaded document after text extraction.
// Its content is immutable once chunked; re-processing replaces the chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Owner is the user that uploaded the document.
	// An empty owner means the document is visible to everyone.
	Owner string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// MIMEType is the content type the text was extracted from.
	MIMEType string

	// Content is the cleaned text with paragraph boundaries preserved.
	// This is the complete document text before chunking.
	Content string

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the document was last processed.
	UpdatedAt time.Time
}

// VisibleTo reports whether owner may read the document.
func (d *Document) VisibleTo(owner string) bool {
	return owner == "" || d.Owner == "" || d.Owner == owner
}

// Chunk is a bounded slice of a document's text with its embedding.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the zero-based position of the chunk within the document.
	// Indices are contiguous.
	Index int

	// Content is the normalised text of this chunk.
	Content string

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// ChunkInput is one element of a replacement set passed to a ChunkStore.
// Its index is its position in the slice.
type ChunkInput struct {
	Content   string
	Embedding []float32
}

// Match pairs a chunk with its similarity to a query vector.
type Match struct {
	Chunk Chunk

	// Similarity is the cosine similarity in [-1, 1].
	Similarity float64
}

// DocumentDetails is a document together with its chunk statistics.
type DocumentDetails struct {
	Document

	// ChunkCount is the number of stored chunks.
	ChunkCount int
}
