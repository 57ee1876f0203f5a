package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/metrics"
)

// Embedder is the remote embedding provider
type Embedder struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewEmbedder creates a provider requesting vectors of the given dimension.
// Without an API key Embed always fails, so the generator falls through to the next provider.
func NewEmbedder(apiKey, baseURL, model string, dimension int) *Embedder {
	e := &Embedder{model: model, dimension: dimension}
	if e.model == "" {
		e.model = string(openai.SmallEmbedding3)
	}
	if apiKey != "" {
		e.client = newOpenAIClient(apiKey, baseURL)
	}
	return e
}

// Name identifies the provider in cache keys and metrics
func (e *Embedder) Name() string { return "openai:" + e.model }

// Embed returns the embedding of text
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: no API key", domain.ErrEmbeddingFailure)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimension,
	})
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("openai_embeddings", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	metrics.UpstreamRequests.WithLabelValues("openai_embeddings", "ok").Inc()

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrEmbeddingFailure)
	}
	vec := resp.Data[0].Embedding
	if e.dimension > 0 && len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), e.dimension)
	}
	return vec, nil
}
