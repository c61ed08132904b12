package domain

import "time"

// RetrievalState is a step of the question-answering state machine.
type RetrievalState string

// Retrieval states in the order a request moves through them.
// StateFailed is terminal and reachable from every other state.
const (
	StateEmbedding       RetrievalState = "embedding"
	StateMatching        RetrievalState = "matching"
	StateContextAssembly RetrievalState = "context_assembly"
	StateAnswering       RetrievalState = "answering"
	StateDone            RetrievalState = "done"
	StateFailed          RetrievalState = "failed"
)

// String returns the string representation.
func (s RetrievalState) String() string {
	return string(s)
}

// IsTerminal returns true for Done and Failed.
func (s RetrievalState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// ContextSeparator joins matched chunk texts in an assembled context.
const ContextSeparator = "\n\n"

// SearchRequest is a similarity query against one document.
type SearchRequest struct {
	// DocumentID is the target document.
	DocumentID string

	// Query is the text to embed and match.
	Query string

	// Owner is the acting user. Empty skips the ownership check.
	Owner string

	// Threshold overrides the configured minimum similarity when non-nil.
	Threshold *float64

	// TopK overrides the configured result cap when positive.
	TopK int
}

// AskRequest is a question about one document.
type AskRequest struct {
	DocumentID string
	Question   string
	Owner      string
	Threshold  *float64
	TopK       int
}

// Search returns the matching half of the request.
func (r AskRequest) Search() SearchRequest {
	return SearchRequest{
		DocumentID: r.DocumentID,
		Query:      r.Question,
		Owner:      r.Owner,
		Threshold:  r.Threshold,
		TopK:       r.TopK,
	}
}

// Answer is the outcome of a retrieval-augmented question.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Matches are the chunks used as context, most similar first.
	Matches []Match

	// Context is the exact context block sent to the answer service.
	Context string

	// State is the terminal state of the request.
	State RetrievalState
}

// IngestRequest asks for a document to be chunked, embedded and stored.
type IngestRequest struct {
	// DocumentID is set to reprocess a stored document.
	DocumentID string

	// Raw is set to create a new document.
	Raw *RawDocument
}

// IngestReport summarises a completed ingestion.
type IngestReport struct {
	DocumentID string
	ChunkCount int
	Dimensions int
	Model      string
	Duration   time.Duration
}
