package driving

import (
	"context"

	"github.com/custodia-labs/askdoc/internal/core/domain"
)

// RetrievalService answers questions from a document's stored chunks.
type RetrievalService interface {
	// Ask embeds the question, matches it against the document, assembles
	// context and generates an answer. Zero matches still yields an answer.
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Answer, error)

	// Search embeds the query and returns the matching chunks only.
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.Match, error)
}
