// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser / NormaliserRegistry: Extract and clean text by MIME type
//   - PostProcessorPipeline: Split cleaned text into chunks
//   - EmbeddingService: Map text to a fixed-length vector
//   - ChunkStore: Persist chunk vectors and answer similarity queries
//   - DocumentStore: Document persistence
//   - AnswerService: Generate answer text from context and a question
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - PromptStore: User-editable answer prompt. Defaults are used when nil.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
