package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartgenie/backend/internal/domain"
)

func TestEmbedder_Name(t *testing.T) {
	assert.Equal(t, "openai:text-embedding-3-small", NewEmbedder("", "", "", 384).Name())
}

func TestEmbedder_NoKey(t *testing.T) {
	_, err := NewEmbedder("", "", "", 384).Embed(context.Background(), "Sony WH-1000XM5")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
}

func TestEmbedder_Embed(t *testing.T) {
	fake, url := newFakeOpenAI(t)
	fake.setEmbedding([]float32{0.1, 0.2, 0.3})

	vec, err := NewEmbedder("sk-test", url, "", 3).Embed(context.Background(), "Sony WH-1000XM5")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedder_WrongDimension(t *testing.T) {
	fake, url := newFakeOpenAI(t)
	fake.setEmbedding([]float32{0.1, 0.2})

	_, err := NewEmbedder("sk-test", url, "", 384).Embed(context.Background(), "Sony WH-1000XM5")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedder_UpstreamError(t *testing.T) {
	fake, url := newFakeOpenAI(t)
	fake.setStatus(503)

	_, err := NewEmbedder("sk-test", url, "", 3).Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
}
