package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/cartgenie/backend/internal/domain"
)

const trigramWeight = 0.5

// LocalEmbedder is the in-process fallback embedding model. It hashes
// normalized title tokens and their character trigrams into a fixed number
// of signed buckets and L2-normalizes the result, so equal titles map to
// equal vectors and overlapping titles land close under cosine distance.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder creates a hashing embedder producing vectors of the given length
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	return &LocalEmbedder{dimension: dimension}
}

// Name returns the provider name used in logs, metrics and cache keys
func (e *LocalEmbedder) Name() string { return "local_hashing" }

// Embed hashes text into a dense vector
func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", domain.ErrEmbeddingFailure, e.dimension)
	}

	tokens := tokenize(normalizeTitleText(text))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in %q", domain.ErrEmbeddingFailure, text)
	}

	acc := make([]float64, e.dimension)
	for _, token := range tokens {
		e.add(acc, "w:"+token, tokenWeight(token))

		padded := []rune("#" + token + "#")
		for i := 0; i+3 <= len(padded); i++ {
			e.add(acc, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, fmt.Errorf("%w: zero vector for %q", domain.ErrEmbeddingFailure, text)
	}

	vector := make([]float32, e.dimension)
	for i, v := range acc {
		vector[i] = float32(v / norm)
	}
	return vector, nil
}

// add hashes feature into a bucket; one hash bit picks the sign so collisions tend to cancel
func (e *LocalEmbedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimension))
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	acc[idx] += weight
}
