// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/askdoc/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/askdoc/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/askdoc/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/askdoc/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/askdoc/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/askdoc/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the AI services built from settings.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	AnswerService    driven.AnswerService
	Warnings         []string // Non-fatal issues, such as an unreachable cache.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.AnswerService != nil {
		r.AnswerService.Close()
	}
}

// Init builds both services from settings without pinging them.
// A service whose provider is not configured is left nil.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	res := &InitResult{}

	embed, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if embed != nil && settings.Embedding.Cache.Enabled {
		dialCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		cached, err := cache.Dial(dialCtx, embed, settings.Embedding.Cache.Addr,
			cache.WithTTL(settings.Embedding.Cache.TTL))
		cancel()
		if err != nil {
			msg := fmt.Sprintf("embedding cache disabled: %v", err)
			logger.Warn("%s", msg)
			res.Warnings = append(res.Warnings, msg)
		} else {
			embed = cached
		}
	}
	res.EmbeddingService = embed

	answer, err := CreateAnswerService(&settings.LLM)
	if err != nil {
		res.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	res.AnswerService = answer

	return res, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'askdoc config set embedding.provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("service unreachable (%w). Check embedding.base_url", err)
	}

	return svc, nil
}

// CreateAndValidateAnswerService creates an answer service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateAnswerService(settings *domain.LLMSettings) (driven.AnswerService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateAnswerService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'askdoc config set llm.provider' to fix",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("service unreachable (%w). Check llm.base_url", err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(settings)
	if svc != nil {
		svc.Close()
	}
	return err
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	svc, err := CreateAndValidateAnswerService(settings)
	if svc != nil {
		svc.Close()
	}
	return err
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}

	switch settings.Provider {
	case "":
		return nil, nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		if !settings.IsConfigured() {
			return nil, fmt.Errorf("openai embeddings require an API key")
		}
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateAnswerService creates the appropriate answer service based on settings.
// Returns nil if the provider is not configured.
func CreateAnswerService(settings *domain.LLMSettings) (driven.AnswerService, error) {
	if settings == nil {
		return nil, nil
	}

	switch settings.Provider {
	case "":
		return nil, nil

	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("%w: llm provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// embeddingDimensions resolves the configured or well-known vector size.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           settings.Timeout,
		Dimensions:        embeddingDimensions(settings),
		MaxRetries:        settings.MaxRetries,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           settings.Timeout,
		Dimensions:        embeddingDimensions(settings),
		MaxRetries:        settings.MaxRetries,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.AnswerService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		MaxRetries: settings.MaxRetries,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.AnswerService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		MaxRetries: settings.MaxRetries,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.AnswerService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		MaxRetries: settings.MaxRetries,
	})
}
