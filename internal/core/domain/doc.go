// Package domain defines the core business entities for askdoc.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded document and its cleaned text
//   - Chunk: A bounded, embedded slice of a document
//   - Match: A chunk with its similarity to a query
//   - Answer: The result of a retrieval-augmented question
//
// It also defines the typed pipeline errors (InvalidInputError,
// EmbeddingServiceError, AnswerServiceError, DimensionMismatchError,
// StorageError) and the retrieval state machine states.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
