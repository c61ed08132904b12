package domain

import "time"

const unknownDescription = "Unknown"

// StorageBackend selects where documents and chunk vectors are persisted.
type StorageBackend string

// Available storage backends.
const (
	// StorageSQLite is an embedded SQLite database under the data directory.
	StorageSQLite StorageBackend = "sqlite"

	// StoragePostgres is a Postgres server with the pgvector extension.
	StoragePostgres StorageBackend = "postgres"

	// StorageMemory keeps everything in process. Nothing survives a restart.
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageSQLite, StoragePostgres, StorageMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StorageBackend) Description() string {
	switch b {
	case StorageSQLite:
		return "SQLite (embedded, exact cosine)"
	case StoragePostgres:
		return "Postgres + pgvector"
	case StorageMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an AI service provider for embeddings or answers.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StorageSettings holds persistence configuration.
type StorageSettings struct {
	// Backend selects the store implementation.
	Backend StorageBackend

	// DataDir is the SQLite data directory (default ~/.askdoc/data).
	DataDir string

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// QueryTimeout bounds a single similarity query.
	QueryTimeout time.Duration

	// WriteTimeout bounds a chunk replacement, which runs even after
	// the caller cancels.
	WriteTimeout time.Duration
}

// CacheSettings holds the Redis embedding cache configuration.
type CacheSettings struct {
	Enabled bool
	Addr    string
	TTL     time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the expected vector length. Zero means the model default.
	Dimensions int

	// Timeout bounds each embedding call, retries included.
	Timeout time.Duration

	// MaxRetries is the transport retry budget for 429 and 5xx responses.
	MaxRetries int

	// RequestsPerSecond paces calls to the provider. Zero disables pacing.
	RequestsPerSecond float64

	// Cache configures the optional embedding cache.
	Cache CacheSettings
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds answer-generation provider configuration.
type LLMSettings struct {
	// Provider is the answer service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Timeout bounds each answer call, retries included.
	Timeout time.Duration

	// MaxRetries is the transport retry budget for 429 and 5xx responses.
	MaxRetries int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings holds chunking configuration.
type ChunkerSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int
}

// RetrievalSettings holds matching and context assembly configuration.
type RetrievalSettings struct {
	// Threshold is the minimum cosine similarity for a match.
	Threshold float64

	// TopK caps the number of matches.
	TopK int

	// MaxContextChars bounds the assembled context. Zero is unbounded.
	MaxContextChars int
}

// IngestSettings holds ingestion configuration.
type IngestSettings struct {
	// Concurrency is the number of embedding calls in flight per document.
	Concurrency int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage   StorageSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Ingest    IngestSettings

	// User is the default owner for uploads and the acting identity for questions.
	User string
}

// Default pipeline values. These are product choices, not measured optima,
// and are all overridable from configuration.
const (
	DefaultChunkSize    = 1000
	DefaultThreshold    = 0.7
	DefaultTopK         = 5
	DefaultConcurrency  = 4
	DefaultMaxRetries   = 3
	DefaultQueryTimeout = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultEmbedTimeout = 30 * time.Second
	DefaultLLMTimeout   = 120 * time.Second
	DefaultCacheTTL     = 7 * 24 * time.Hour
)

// DefaultRetrievalSettings returns the default matching parameters.
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		Threshold: DefaultThreshold,
		TopK:      DefaultTopK,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers are left unconfigured; a working setup needs at least
// an embedding provider and an LLM provider.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend:      StorageSQLite,
			QueryTimeout: DefaultQueryTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Embedding: EmbeddingSettings{
			Timeout:    DefaultEmbedTimeout,
			MaxRetries: DefaultMaxRetries,
			Cache: CacheSettings{
				Addr: "localhost:6379",
				TTL:  DefaultCacheTTL,
			},
		},
		LLM: LLMSettings{
			Timeout:    DefaultLLMTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Chunker:   ChunkerSettings{ChunkSize: DefaultChunkSize},
		Retrieval: DefaultRetrievalSettings(),
		Ingest:    IngestSettings{Concurrency: DefaultConcurrency},
	}
}

// AllStorageBackends returns all available storage backends.
func AllStorageBackends() []StorageBackend {
	return []StorageBackend{StorageSQLite, StoragePostgres, StorageMemory}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
