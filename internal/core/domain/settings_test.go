package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStorageBackend_IsValid tests all valid and invalid backends
func TestStorageBackend_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		backend  StorageBackend
		expected bool
	}{
		{"sqlite is valid", StorageSQLite, true},
		{"postgres is valid", StoragePostgres, true},
		{"memory is valid", StorageMemory, true},
		{"empty string is invalid", StorageBackend(""), false},
		{"unknown backend is invalid", StorageBackend("qdrant"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.backend.IsValid())
		})
	}
}

func TestStorageBackend_Description(t *testing.T) {
	for _, b := range AllStorageBackends() {
		assert.NotEqual(t, unknownDescription, b.Description(), b.String())
	}
	assert.Equal(t, unknownDescription, StorageBackend("nope").Description())
}

func TestAIProvider(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"anthropic has no embeddings", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, StorageSQLite, s.Storage.Backend)
	assert.Equal(t, 1000, s.Chunker.ChunkSize)
	assert.Equal(t, 0.7, s.Retrieval.Threshold)
	assert.Equal(t, 5, s.Retrieval.TopK)
	assert.Zero(t, s.Retrieval.MaxContextChars)
	assert.Equal(t, DefaultConcurrency, s.Ingest.Concurrency)
	assert.Positive(t, s.Storage.WriteTimeout)
	assert.Positive(t, s.Embedding.Timeout)
	assert.Positive(t, s.LLM.Timeout)
	assert.False(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.False(t, s.Embedding.Cache.Enabled)
}

func TestDefaultModels(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		model := DefaultEmbeddingModels()[p]
		assert.NotEmpty(t, model, p.String())
		assert.Positive(t, EmbeddingDimensions()[model], model)
	}
	for _, p := range AllLLMProviders() {
		assert.NotEmpty(t, DefaultLLMModels()[p], p.String())
	}
}
