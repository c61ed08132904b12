// Package cache provides a Redis-backed decorator for embedding services.
//
// Vectors are keyed by model, dimensions and a SHA-256 of the input text, so
// re-ingesting an unchanged document skips the upstream calls. Redis
// failures are logged and never fail an Embed call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/askdoc/internal/core/ports/driven"
	"github.com/custodia-labs/askdoc/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultPrefix namespaces cache keys.
const DefaultPrefix = "askdoc:embed:"

// EmbeddingService wraps another EmbeddingService with a Redis cache.
type EmbeddingService struct {
	next   driven.EmbeddingService
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	owns   bool
}

// Option configures the cache.
type Option func(*EmbeddingService)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *EmbeddingService) {
		s.prefix = prefix
	}
}

// WithTTL sets how long vectors are kept. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *EmbeddingService) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// New wraps next with a cache on client. The caller keeps ownership of client.
func New(next driven.EmbeddingService, client redis.UniversalClient, opts ...Option) *EmbeddingService {
	s := &EmbeddingService{
		next:   next,
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to Redis at addr and wraps next. The connection is
// closed with the service.
func Dial(ctx context.Context, next driven.EmbeddingService, addr string, opts ...Option) (*EmbeddingService, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache %s: %w", addr, err)
	}
	s := New(next, client, opts...)
	s.owns = true
	return s, nil
}

// Embed returns the cached vector for text, or calls the wrapped service
// and stores its result.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(text)

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		vec, ok := decode(raw)
		if ok && (s.next.Dimensions() == 0 || len(vec) == s.next.Dimensions()) {
			return vec, nil
		}
		logger.Warn("embedding cache: discarding unusable entry %s", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("embedding cache: get failed: %v", err)
	}

	vec, err := s.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, key, encode(vec), s.ttl).Err(); err != nil {
		logger.Warn("embedding cache: set failed: %v", err)
	}
	return vec, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks both Redis and the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis cache: %w", err)
	}
	return s.next.Ping(ctx)
}

// Close closes the wrapped service and, when Dial opened it, the Redis client.
func (s *EmbeddingService) Close() error {
	err := s.next.Close()
	if s.owns {
		err = errors.Join(err, s.client.Close())
	}
	return err
}

func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return s.prefix + s.next.ModelName() + ":" + strconv.Itoa(s.next.Dimensions()) + ":" + hex.EncodeToString(sum[:])
}

// encode packs vec as little-endian float32s.
func encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, true
}
