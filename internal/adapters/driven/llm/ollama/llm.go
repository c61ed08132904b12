// Package ollama provides an answer service adapter using Ollama.
package ollama

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/askdoc/internal/adapters/driven/httpx"
	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.AnswerService = (*LLMService)(nil)

const providerName = "ollama"

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// Timeout bounds one Answer call including retries (default: 120s).
	Timeout time.Duration

	// MaxRetries is the retry budget for 429 and 5xx responses.
	MaxRetries int

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// LLMService answers questions using the Ollama chat API.
type LLMService struct {
	client  *httpx.Client
	baseURL string
	model   string
	timeout time.Duration
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: httpx.New(
			httpx.WithMaxRetries(cfg.MaxRetries),
			httpx.WithHTTPClient(cfg.HTTPClient),
		),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Answer runs a non-streaming chat with systemContext as the system message.
func (s *LLMService) Answer(ctx context.Context, systemContext, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemContext},
			{Role: "user", Content: question},
		},
		Stream: false,
	}

	var resp chatResponse
	if err := s.client.PostJSON(ctx, s.baseURL+"/api/chat", reqBody, &resp); err != nil {
		return "", serviceError(err)
	}
	if resp.Error != "" {
		return "", &domain.AnswerServiceError{Provider: providerName, Message: resp.Error}
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.client.GetJSON(ctx, s.baseURL+"/api/tags", nil); err != nil {
		return serviceError(err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

func serviceError(err error) error {
	e := &domain.AnswerServiceError{Provider: providerName, Status: httpx.StatusOf(err), Err: err}
	if errors.Is(err, context.DeadlineExceeded) {
		e.Message = "request timed out"
	}
	return e
}
