package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrNoMatch is returned when there are no titles to match against
	ErrNoMatch = errors.New("no matching title")

	// ErrLowConfidence is returned when the best title match is below the threshold
	ErrLowConfidence = errors.New("match confidence below threshold")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrScraperNotConfigured is returned when the scraping service has no API key.
	// The page fetch tool treats it as "tier unavailable".
	ErrScraperNotConfigured = errors.New("scraping service not configured")

	// ErrScraperFailure is returned when the scraping service request fails
	ErrScraperFailure = errors.New("scraping service request failed")

	// ErrFetchFailure is returned when a direct page fetch fails or returns a non-200 status
	ErrFetchFailure = errors.New("direct page fetch failed")

	// ErrVectorIndexNotConfigured is returned on first use of the vector index without connection settings
	ErrVectorIndexNotConfigured = errors.New("vector index not configured")

	// ErrVectorIndexFailure is returned when a vector index request fails
	ErrVectorIndexFailure = errors.New("vector index request failed")

	// ErrGraphNotConfigured is returned on first use of the graph store without connection settings
	ErrGraphNotConfigured = errors.New("graph store not configured")

	// ErrGraphFailure is returned when a graph query fails
	ErrGraphFailure = errors.New("graph query failed")

	// ErrEmbeddingFailure is returned by an embedding provider that could not produce a vector
	ErrEmbeddingFailure = errors.New("embedding generation failed")

	// ErrDimensionMismatch is returned when a provider yields a vector of the wrong length
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrExtractionFailure is returned by the structured extraction service
	ErrExtractionFailure = errors.New("structured extraction failed")

	// ErrReasoningNotConfigured is returned on first use of the reasoning engine without credentials
	ErrReasoningNotConfigured = errors.New("reasoning engine not configured")

	// ErrPipelineFailed is returned when the agent pipeline fails before producing output
	ErrPipelineFailed = errors.New("agent pipeline failed")

	// ErrMalformedOutput is returned when the pipeline's final output is not a valid optimization result
	ErrMalformedOutput = errors.New("malformed pipeline output")
)

// IsConfigurationError reports whether err is a configuration-fatal error that
// must surface to the caller instead of being degraded into tool text.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrVectorIndexNotConfigured) ||
		errors.Is(err, ErrGraphNotConfigured) ||
		errors.Is(err, ErrReasoningNotConfigured)
}
