// Package chunker splits document text into bounded, coherent chunks.
//
// Paragraphs (separated by blank lines) are packed greedily up to the
// size limit. A paragraph that is larger than the limit on its own is
// split into sentences, which are packed the same way. A sentence larger
// than the limit is emitted as a chunk by itself rather than truncated.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/normalisers/plaintext"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// Processor splits document content into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk length.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Process splits the document content into chunks with contiguous,
// zero-based indices. Input chunks are ignored.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	texts := Chunk(doc.Content, p.chunkSize)
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Index:      i,
			Content:    text,
		}
	}

	return chunks, nil
}

// Chunk splits text into an ordered sequence of non-empty, whitespace
// normalised chunks. Each chunk is at most maxLen characters unless it is
// a single sentence that is longer than maxLen. A non-positive maxLen
// selects DefaultChunkSize.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultChunkSize
	}

	pk := &packer{max: maxLen}
	for _, para := range splitParagraphs(text) {
		para = plaintext.Collapse(para)
		if para == "" {
			continue
		}

		n := utf8.RuneCountInString(para)
		if n <= maxLen {
			pk.add(para, n)
			continue
		}

		pk.flush()
		for _, sentence := range splitSentences(para) {
			pk.add(sentence, utf8.RuneCountInString(sentence))
		}
	}
	pk.flush()

	return pk.chunks
}

// packer accumulates units into a chunk buffer. Units are joined by a
// single space, which counts towards the length.
type packer struct {
	max    int
	buf    strings.Builder
	length int
	chunks []string
}

func (p *packer) add(unit string, n int) {
	if p.length > 0 && p.length+1+n > p.max {
		p.flush()
	}
	if p.length > 0 {
		p.buf.WriteByte(' ')
		p.length++
	}
	p.buf.WriteString(unit)
	p.length += n

	// oversized sentence
	if p.length > p.max {
		p.flush()
	}
}

func (p *packer) flush() {
	if p.length == 0 {
		return
	}
	if s := plaintext.Collapse(p.buf.String()); s != "" {
		p.chunks = append(p.chunks, s)
	}
	p.buf.Reset()
	p.length = 0
}
