package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// VectorIndex is the nearest-neighbour store of product embeddings
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int) ([]ScoredPoint, error)
	Upsert(ctx context.Context, points []VectorPoint) error
}

// GraphStore runs parameterized queries against the product/retailer graph
type GraphStore interface {
	Query(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
	Write(ctx context.Context, query string, params map[string]interface{}) error
}

// PageScraper fetches rendered HTML through a remote scraping service
type PageScraper interface {
	Scrape(ctx context.Context, url, countryCode string) ([]byte, error)
}

// PageFetcher fetches HTML directly from the retailer
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// StructuredExtractor recovers product fields from raw HTML using a remote AI service
type StructuredExtractor interface {
	ExtractProduct(ctx context.Context, rawHTML string) (*ProductSignal, error)
}

// EmbeddingProvider turns text into a dense vector
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ReasoningEngine executes one agent task, invoking tools as it sees fit,
// and returns the task's final text output
type ReasoningEngine interface {
	Run(ctx context.Context, req ReasoningRequest) (string, error)
}
