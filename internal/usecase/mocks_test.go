package usecase

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cartgenie/backend/internal/domain"
)

// mockEmbeddingProvider is a mock implementation of domain.EmbeddingProvider
type mockEmbeddingProvider struct {
	name   string
	vector []float32
	err    error
	calls  int
	texts  []string
}

func (m *mockEmbeddingProvider) Name() string { return m.name }

func (m *mockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

// mockVectorIndex is a mock implementation of domain.VectorIndex
type mockVectorIndex struct {
	mu        sync.Mutex
	results   []domain.ScoredPoint
	err       error
	upserted  []domain.VectorPoint
	upsertErr error
	lastLimit int
}

func (m *mockVectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockVectorIndex) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, points...)
	return nil
}

// mockGraphStore is a mock implementation of domain.GraphStore
type mockGraphStore struct {
	rows       []map[string]interface{}
	err        error
	writeErr   error
	lastQuery  string
	lastParams map[string]interface{}
	writes     []map[string]interface{}
}

func (m *mockGraphStore) Query(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	m.lastQuery = query
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockGraphStore) Write(ctx context.Context, query string, params map[string]interface{}) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, params)
	return nil
}

// mockScraper is a mock implementation of domain.PageScraper
type mockScraper struct {
	body        []byte
	err         error
	calls       int
	lastCountry string
}

func (m *mockScraper) Scrape(ctx context.Context, url, countryCode string) ([]byte, error) {
	m.calls++
	m.lastCountry = countryCode
	return m.body, m.err
}

// mockFetcher is a mock implementation of domain.PageFetcher
type mockFetcher struct {
	body  []byte
	err   error
	calls int
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	return m.body, m.err
}

// mockReasoningEngine records each request and replays canned outputs in order
type mockReasoningEngine struct {
	outputs  []string
	errs     []error
	requests []domain.ReasoningRequest
	// onRun, when set, runs before the canned output is returned
	onRun func(req domain.ReasoningRequest) error
}

func (m *mockReasoningEngine) Run(ctx context.Context, req domain.ReasoningRequest) (string, error) {
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if m.onRun != nil {
		if err := m.onRun(req); err != nil {
			return "", err
		}
	}
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.outputs) {
		return m.outputs[i], nil
	}
	return "", nil
}

// mockTool is a mock implementation of domain.Tool
type mockTool struct {
	name   string
	output string
	err    error
	args   []json.RawMessage
}

func (m *mockTool) Name() string        { return m.name }
func (m *mockTool) Description() string { return "mock tool " + m.name }
func (m *mockTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (m *mockTool) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	m.args = append(m.args, arguments)
	return m.output, m.err
}
