package driven

import "context"

// AnswerService turns retrieved context and a question into answer text.
// The service is a black box; only the input/output contract matters.
//
// Answer fails with *domain.AnswerServiceError when the upstream call
// errors or times out.
type AnswerService interface {
	// Answer generates a response to question grounded in systemContext.
	Answer(ctx context.Context, systemContext, question string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
