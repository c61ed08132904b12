package driven

// PromptStore provides answer prompt templates.
// Load fails for unknown names and for templates that cannot be used;
// callers then fall back to a built-in prompt.
type PromptStore interface {
	// Load returns the current template for name.
	Load(name string) (string, error)
}

// Well-known prompt names.
const (
	// PromptAnswerSystem frames retrieved context for the answer service.
	// The template expects one %s placeholder for the context block.
	PromptAnswerSystem = "answer_system"
)
