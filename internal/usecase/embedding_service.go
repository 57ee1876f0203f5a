package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/metrics"
)

const (
	// DefaultEmbeddingDimension is the vector length shared with the vector index
	DefaultEmbeddingDimension = 384

	unknownProductText  = "unknown product"
	descriptorSeparator = " | "
)

// EmbeddingConfig holds configuration for the embedding generator
type EmbeddingConfig struct {
	Dimension int
	CacheTTL  time.Duration
}

// EmbeddingGenerator produces fixed-length vectors for products.
// Providers are tried in order; a provider that errors or returns a vector
// of the wrong length is skipped. When all fail the zero vector is returned.
type EmbeddingGenerator struct {
	providers []domain.EmbeddingProvider
	cache     domain.CacheRepository
	dimension int
	cacheTTL  time.Duration
	log       *zap.Logger
}

// NewEmbeddingGenerator creates a generator. cache may be nil.
func NewEmbeddingGenerator(
	cache domain.CacheRepository,
	config EmbeddingConfig,
	log *zap.Logger,
	providers ...domain.EmbeddingProvider,
) *EmbeddingGenerator {
	dim := config.Dimension
	if dim <= 0 {
		dim = DefaultEmbeddingDimension
	}

	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &EmbeddingGenerator{
		providers: providers,
		cache:     cache,
		dimension: dim,
		cacheTTL:  ttl,
		log:       logger.OrNop(log),
	}
}

// Dimension returns the vector length every call to Embed produces
func (g *EmbeddingGenerator) Dimension() int {
	return g.dimension
}

// Embed returns the embedding of the product's descriptive text
func (g *EmbeddingGenerator) Embed(ctx context.Context, attrs domain.ProductAttributes) []float32 {
	return g.EmbedText(ctx, DescribeProduct(attrs))
}

// EmbedText returns the embedding of text, always of length Dimension()
func (g *EmbeddingGenerator) EmbedText(ctx context.Context, text string) []float32 {
	for _, provider := range g.providers {
		vector, err := g.embedWith(ctx, provider, text)
		if err != nil {
			g.log.Warn("embedding provider failed",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			continue
		}
		metrics.FallbackTier.WithLabelValues("embedding", provider.Name()).Inc()
		return vector
	}

	g.log.Warn("all embedding providers failed, using zero vector", zap.String("text", text))
	metrics.FallbackTier.WithLabelValues("embedding", "zero").Inc()
	return make([]float32, g.dimension)
}

func (g *EmbeddingGenerator) embedWith(ctx context.Context, provider domain.EmbeddingProvider, text string) ([]float32, error) {
	key := MakeEmbeddingKey(provider.Name(), text)

	if g.cache != nil {
		if cached, err := g.cache.Get(ctx, key); err == nil {
			if vector, ok := toFloat32Slice(cached); ok && len(vector) == g.dimension {
				return vector, nil
			}
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			g.log.Debug("embedding cache read failed", zap.Error(err))
		}
	}

	vector, err := provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) != g.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vector), g.dimension)
	}

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, vector, g.cacheTTL); err != nil {
			g.log.Debug("embedding cache write failed", zap.Error(err))
		}
	}
	return vector, nil
}

// DescribeProduct builds the deterministic text that is embedded for a product:
// brand, name, category and price, each only when present, in that order.
func DescribeProduct(attrs domain.ProductAttributes) string {
	parts := make([]string, 0, 4)
	if b := strings.TrimSpace(attrs.Brand); b != "" {
		parts = append(parts, b)
	}
	if n := strings.TrimSpace(attrs.Name); n != "" {
		parts = append(parts, n)
	}
	if c := strings.TrimSpace(attrs.Category); c != "" {
		parts = append(parts, c)
	}
	if attrs.Price > 0 {
		parts = append(parts, formatPrice(attrs.Price))
	}

	if len(parts) == 0 {
		return unknownProductText
	}
	return strings.Join(parts, descriptorSeparator)
}

// MakeEmbeddingKey builds the cache key of a provider's embedding of text
func MakeEmbeddingKey(provider, text string) string {
	sum := md5.Sum([]byte(provider + "|" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// toFloat32Slice converts a cached value back into a vector. Cached values
// come back as []interface{} of float64 after the JSON round trip.
func toFloat32Slice(v interface{}) ([]float32, bool) {
	switch t := v.(type) {
	case []float32:
		return t, true
	case []float64:
		out := make([]float32, len(t))
		for i, f := range t {
			out[i] = float32(f)
		}
		return out, true
	case []interface{}:
		out := make([]float32, len(t))
		for i, item := range t {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}
