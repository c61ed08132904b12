package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	DocumentID string   `json:"document_id" jsonschema:"the document to search"`
	Query      string   `json:"query" jsonschema:"the text to match against the document"`
	Owner      string   `json:"owner,omitempty" jsonschema:"acting user; defaults to the configured user"`
	Threshold  *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity (default 0.7)"`
	TopK       int      `json:"top_k,omitempty" jsonschema:"maximum number of matches (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Matches []MatchOutput `json:"matches"`
	Count   int           `json:"count"`
}

// MatchOutput represents a single matched chunk.
type MatchOutput struct {
	Index      int     `json:"index"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	DocumentID string   `json:"document_id" jsonschema:"the document the question is about"`
	Question   string   `json:"question" jsonschema:"the question to answer"`
	Owner      string   `json:"owner,omitempty" jsonschema:"acting user; defaults to the configured user"`
	Threshold  *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity (default 0.7)"`
	TopK       int      `json:"top_k,omitempty" jsonschema:"maximum number of context chunks (default 5)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string        `json:"answer"`
	Sources []MatchOutput `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question about one uploaded document using its most relevant passages",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages of one uploaded document most similar to a query",
	}, s.handleSearch)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Retrieval.Ask(ctx, domain.AskRequest{
		DocumentID: input.DocumentID,
		Question:   input.Question,
		Owner:      s.ownerOr(input.Owner),
		Threshold:  input.Threshold,
		TopK:       input.TopK,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) ||
			errors.Is(err, domain.ErrForbidden) {
			return nil, AskOutput{}, err
		}
		logger.Error("mcp: ask %s: %v", input.DocumentID, err)
		return nil, AskOutput{}, domain.ErrAnswerUnavailable
	}

	return nil, AskOutput{
		Answer:  answer.Text,
		Sources: toMatchOutputs(answer.Matches),
	}, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	matches, err := s.ports.Retrieval.Search(ctx, domain.SearchRequest{
		DocumentID: input.DocumentID,
		Query:      input.Query,
		Owner:      s.ownerOr(input.Owner),
		Threshold:  input.Threshold,
		TopK:       input.TopK,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Matches: toMatchOutputs(matches),
		Count:   len(matches),
	}
	return nil, output, nil
}

func (s *Server) ownerOr(owner string) string {
	if owner != "" {
		return owner
	}
	return s.owner
}

func toMatchOutputs(matches []domain.Match) []MatchOutput {
	out := make([]MatchOutput, len(matches))
	for i := range matches {
		out[i] = MatchOutput{
			Index:      matches[i].Chunk.Index,
			Similarity: matches[i].Similarity,
			Content:    matches[i].Chunk.Content,
		}
	}
	return out
}
