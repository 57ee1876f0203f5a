// Package app builds the shared infrastructure both binaries need from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/config"
	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/infrastructure/cache"
	"github.com/cartgenie/backend/internal/infrastructure/llm"
	"github.com/cartgenie/backend/internal/infrastructure/neo4j"
	"github.com/cartgenie/backend/internal/infrastructure/qdrant"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/usecase"
)

// Cache is a CacheRepository that owns resources
type Cache interface {
	domain.CacheRepository
	io.Closer
}

// NewCache returns the in-memory cache or a Redis cache, checking Redis connectivity
func NewCache(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if cfg.Type != "redis" {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// NewEmbeddingGenerator uses the remote embedding service when a key is set,
// always backed by the local hashing model
func NewEmbeddingGenerator(cfg *config.Config, c domain.CacheRepository, log *zap.Logger) *usecase.EmbeddingGenerator {
	var providers []domain.EmbeddingProvider
	if cfg.OpenAI.APIKey != "" {
		providers = append(providers, llm.NewEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel, cfg.Embedding.Dimension))
	}
	providers = append(providers, usecase.NewLocalEmbedder(cfg.Embedding.Dimension))

	return usecase.NewEmbeddingGenerator(c, usecase.EmbeddingConfig{
		Dimension: cfg.Embedding.Dimension,
		CacheTTL:  cfg.Embedding.CacheTTL,
	}, logger.OrNop(log).Named("embedding"), providers...)
}

// NewVectorIndex creates the Qdrant client; it connects on first use
func NewVectorIndex(cfg *config.Config, log *zap.Logger) *qdrant.Client {
	return qdrant.NewClient(qdrant.Config{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		Collection: cfg.Qdrant.Collection,
		APIKey:     cfg.Qdrant.APIKey,
		Dimension:  cfg.Embedding.Dimension,
		Timeout:    cfg.Qdrant.Timeout,
	}, log)
}

// NewGraphStore creates the Neo4j connector; it connects on first use
func NewGraphStore(cfg *config.Config, log *zap.Logger) *neo4j.Connector {
	return neo4j.NewConnector(neo4j.Config{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
	}, log)
}

// NewStructuredExtractor returns the AI extraction service, or nil when it is disabled
func NewStructuredExtractor(cfg *config.Config, log *zap.Logger) domain.StructuredExtractor {
	if !cfg.OpenAI.ExtractionEnabled {
		return nil
	}
	// A nil *llm.Extractor must not become a non-nil interface
	if e := llm.NewExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, log); e != nil {
		return e
	}
	return nil
}
