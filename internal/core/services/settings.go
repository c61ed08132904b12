package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStorageBackend      = "storage.backend"
	keyStorageDataDir      = "storage.data_dir"
	keyStorageDatabaseURL  = "storage.database_url"
	keyStorageQueryTimeout = "storage.query_timeout"
	keyStorageWriteTimeout = "storage.write_timeout"
	keyEmbedProvider       = "embedding.provider"
	keyEmbedModel          = "embedding.model"
	keyEmbedBaseURL        = "embedding.base_url"
	keyEmbedAPIKey         = "embedding.api_key"
	keyEmbedDimensions     = "embedding.dimensions"
	keyEmbedTimeout        = "embedding.timeout"
	keyEmbedMaxRetries     = "embedding.max_retries"
	keyEmbedRPS            = "embedding.requests_per_second"
	keyCacheEnabled        = "embedding.cache.enabled"
	keyCacheAddr           = "embedding.cache.addr"
	keyCacheTTL            = "embedding.cache.ttl"
	keyLLMProvider         = "llm.provider"
	keyLLMModel            = "llm.model"
	keyLLMBaseURL          = "llm.base_url"
	keyLLMAPIKey           = "llm.api_key"
	keyLLMTimeout          = "llm.timeout"
	keyLLMMaxRetries       = "llm.max_retries"
	keyChunkSize           = "chunker.chunk_size"
	keyThreshold           = "retrieval.threshold"
	keyTopK                = "retrieval.top_k"
	keyMaxContextChars     = "retrieval.max_context_chars"
	keyIngestConcurrency   = "ingest.concurrency"
	keyUserName            = "user.name"
)

// Environment overrides, applied after the config file.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIAPIKey    = "ASKDOC_OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ASKDOC_ANTHROPIC_API_KEY"
	EnvDatabaseURL     = "ASKDOC_DATABASE_URL"
	EnvRedisAddr       = "ASKDOC_REDIS_ADDR"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindBackend
	kindProvider
)

var settingKinds = map[string]keyKind{
	keyStorageBackend:      kindBackend,
	keyStorageDataDir:      kindString,
	keyStorageDatabaseURL:  kindString,
	keyStorageQueryTimeout: kindDuration,
	keyStorageWriteTimeout: kindDuration,
	keyEmbedProvider:       kindProvider,
	keyEmbedModel:          kindString,
	keyEmbedBaseURL:        kindString,
	keyEmbedAPIKey:         kindString,
	keyEmbedDimensions:     kindInt,
	keyEmbedTimeout:        kindDuration,
	keyEmbedMaxRetries:     kindInt,
	keyEmbedRPS:            kindFloat,
	keyCacheEnabled:        kindBool,
	keyCacheAddr:           kindString,
	keyCacheTTL:            kindDuration,
	keyLLMProvider:         kindProvider,
	keyLLMModel:            kindString,
	keyLLMBaseURL:          kindString,
	keyLLMAPIKey:           kindString,
	keyLLMTimeout:          kindDuration,
	keyLLMMaxRetries:       kindInt,
	keyChunkSize:           kindInt,
	keyThreshold:           kindFloat,
	keyTopK:                kindInt,
	keyMaxContextChars:     kindInt,
	keyIngestConcurrency:   kindInt,
	keyUserName:            kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Stored values of the wrong
// type fall back to their defaults; Validate reports them.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings, _ := s.read()
	return settings, nil
}

// read builds the effective settings and collects every unusable stored value.
func (s *SettingsService) read() (*domain.AppSettings, []error) {
	d := domain.DefaultAppSettings()
	if s.configStore == nil {
		applyEnv(&d)
		return &d, nil
	}
	r := &configReader{store: s.configStore}

	embedProvider := r.provider(keyEmbedProvider, d.Embedding.Provider)
	llmProvider := r.provider(keyLLMProvider, d.LLM.Provider)

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend:      r.backend(keyStorageBackend, d.Storage.Backend),
			DataDir:      r.str(keyStorageDataDir, ""),
			DatabaseURL:  r.str(keyStorageDatabaseURL, ""),
			QueryTimeout: r.duration(keyStorageQueryTimeout, d.Storage.QueryTimeout),
			WriteTimeout: r.duration(keyStorageWriteTimeout, d.Storage.WriteTimeout),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          embedProvider,
			Model:             r.str(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:           r.str(keyEmbedBaseURL, ""),
			APIKey:            r.str(keyEmbedAPIKey, ""),
			Dimensions:        r.integer(keyEmbedDimensions, 0),
			Timeout:           r.duration(keyEmbedTimeout, d.Embedding.Timeout),
			MaxRetries:        r.integer(keyEmbedMaxRetries, d.Embedding.MaxRetries),
			RequestsPerSecond: r.float(keyEmbedRPS, 0),
			Cache: domain.CacheSettings{
				Enabled: r.boolean(keyCacheEnabled, d.Embedding.Cache.Enabled),
				Addr:    r.str(keyCacheAddr, d.Embedding.Cache.Addr),
				TTL:     r.duration(keyCacheTTL, d.Embedding.Cache.TTL),
			},
		},
		LLM: domain.LLMSettings{
			Provider:   llmProvider,
			Model:      r.str(keyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:    r.str(keyLLMBaseURL, ""),
			APIKey:     r.str(keyLLMAPIKey, ""),
			Timeout:    r.duration(keyLLMTimeout, d.LLM.Timeout),
			MaxRetries: r.integer(keyLLMMaxRetries, d.LLM.MaxRetries),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize: r.integer(keyChunkSize, d.Chunker.ChunkSize),
		},
		Retrieval: domain.RetrievalSettings{
			Threshold:       r.float(keyThreshold, d.Retrieval.Threshold),
			TopK:            r.integer(keyTopK, d.Retrieval.TopK),
			MaxContextChars: r.integer(keyMaxContextChars, 0),
		},
		Ingest: domain.IngestSettings{
			Concurrency: r.integer(keyIngestConcurrency, d.Ingest.Concurrency),
		},
		User: r.str(keyUserName, ""),
	}

	applyEnv(settings)
	return settings, r.errs
}

// applyEnv overlays environment variables on settings.
// Provider API keys only apply to the sections that use that provider.
func applyEnv(settings *domain.AppSettings) {
	if key := os.Getenv(EnvOpenAIAPIKey); key != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = key
		}
	}
	if key := os.Getenv(EnvAnthropicAPIKey); key != "" && settings.LLM.Provider == domain.AIProviderAnthropic {
		settings.LLM.APIKey = key
	}
	if url := os.Getenv(EnvDatabaseURL); url != "" {
		settings.Storage.DatabaseURL = url
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		settings.Embedding.Cache.Addr = addr
	}
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	kind, ok := settingKinds[key]
	if !ok {
		return domain.NewInvalidInput(key, "unknown setting")
	}

	parsed, err := parseSetting(kind, strings.TrimSpace(value))
	if err != nil {
		return domain.NewInvalidInput(key, err.Error())
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored value so its default applies again.
func (s *SettingsService) Unset(key string) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	if _, ok := settingKinds[key]; !ok {
		return domain.NewInvalidInput(key, "unknown setting")
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

func parseSetting(kind keyKind, value string) (any, error) {
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		if n < 0 {
			return nil, fmt.Errorf("must not be negative: %d", n)
		}
		return int64(n), nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", value)
		}
		return b, nil
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("not a duration: %q", value)
		}
		return value, nil
	case kindBackend:
		if !domain.StorageBackend(value).IsValid() {
			return nil, fmt.Errorf("unknown storage backend: %q", value)
		}
		return value, nil
	case kindProvider:
		if !domain.AIProvider(value).IsValid() {
			return nil, fmt.Errorf("unknown provider: %q", value)
		}
		return value, nil
	default:
		return value, nil
	}
}

// Keys returns every settable key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks if current settings are complete enough to ingest and answer.
func (s *SettingsService) Validate() error {
	settings, errs := s.read()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if settings.Storage.Backend == domain.StoragePostgres && settings.Storage.DatabaseURL == "" {
		return fmt.Errorf("storage backend %q requires %s or %s",
			settings.Storage.Backend, keyStorageDatabaseURL, EnvDatabaseURL)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider is not configured (set %s)", keyEmbedProvider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider is not configured (set %s)", keyLLMProvider)
	}
	if t := settings.Retrieval.Threshold; t < -1 || t > 1 {
		return fmt.Errorf("%s must be within [-1, 1], got %v", keyThreshold, t)
	}
	return nil
}

// configReader reads typed values from a ConfigStore. A missing key yields
// the default; a value of the wrong type yields the default and is recorded.
type configReader struct {
	store driven.ConfigStore
	errs  []error
}

func (r *configReader) invalid(key string, v any, want string) {
	r.errs = append(r.errs, domain.NewInvalidInput(key, fmt.Sprintf("want %s, got %v (%T)", want, v, v)))
}

func (r *configReader) str(key, def string) string {
	v, ok := r.store.Lookup(key)
	if !ok {
		return def
	}
	str, ok := v.(string)
	if !ok {
		r.invalid(key, v, "a string")
		return def
	}
	if str == "" {
		return def
	}
	return str
}

// integer treats zero as unset so defaults apply.
func (r *configReader) integer(key string, def int) int {
	v, ok := r.store.Lookup(key)
	if !ok {
		return def
	}
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case int:
		n = int64(x)
	default:
		r.invalid(key, v, "an integer")
		return def
	}
	if n < 0 {
		r.invalid(key, v, "a non-negative integer")
		return def
	}
	if n == 0 {
		return def
	}
	return int(n)
}

// float keeps a stored zero. Integers are accepted.
func (r *configReader) float(key string, def float64) float64 {
	v, ok := r.store.Lookup(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	default:
		r.invalid(key, v, "a number")
		return def
	}
}

func (r *configReader) boolean(key string, def bool) bool {
	v, ok := r.store.Lookup(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		r.invalid(key, v, "true or false")
		return def
	}
	return b
}

func (r *configReader) duration(key string, def time.Duration) time.Duration {
	str := r.str(key, "")
	if str == "" {
		return def
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		r.invalid(key, str, "a positive duration such as 30s")
		return def
	}
	return d
}

func (r *configReader) backend(key string, def domain.StorageBackend) domain.StorageBackend {
	str := r.str(key, "")
	if str == "" {
		return def
	}
	backend := domain.StorageBackend(str)
	if !backend.IsValid() {
		r.invalid(key, str, "sqlite, postgres or memory")
		return def
	}
	return backend
}

func (r *configReader) provider(key string, def domain.AIProvider) domain.AIProvider {
	str := r.str(key, "")
	if str == "" {
		return def
	}
	provider := domain.AIProvider(str)
	if !provider.IsValid() {
		r.invalid(key, str, "a known provider")
		return def
	}
	return provider
}
