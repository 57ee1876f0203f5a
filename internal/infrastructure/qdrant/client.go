package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/metrics"
)

// Config holds the connection settings for a Qdrant instance
type Config struct {
	Host       string
	Port       int
	Collection string
	APIKey     string
	Dimension  int
	Timeout    time.Duration
}

// Client is a minimal Qdrant HTTP client implementing domain.VectorIndex.
// The collection is created on first use if it does not exist.
type Client struct {
	cfg  Config
	http *http.Client
	base string
	log  *zap.Logger

	mu    sync.Mutex
	ready bool
}

// NewClient creates a client. An empty host yields a client whose every call
// fails with domain.ErrVectorIndexNotConfigured.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Collection == "" {
		cfg.Collection = "cartgenie_products"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		base: baseURL(cfg.Host, cfg.Port),
		log:  log.Named("qdrant"),
	}
}

// baseURL accepts a bare host ("qdrant") or a full URL ("https://x.cloud.qdrant.io:6333")
func baseURL(host string, port int) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

type queryRequest struct {
	Query       []float32 `json:"query"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type point struct {
	ID      interface{}            `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

type searchResponse struct {
	Result []point `json:"result"`
}

// queryResponse for /points/query, which nests points under result
type queryResponse struct {
	Result struct {
		Points []point `json:"points"`
	} `json:"result"`
}

type upsertPoint struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Search returns the limit nearest points by cosine similarity
func (c *Client) Search(ctx context.Context, vector []float32, limit int) ([]domain.ScoredPoint, error) {
	if err := c.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if c.cfg.Dimension > 0 && len(vector) != c.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, collection expects %d", domain.ErrDimensionMismatch, len(vector), c.cfg.Dimension)
	}

	// Prefer /points/query and fall back to /points/search on older servers
	status, body, err := c.do(ctx, http.MethodPost, c.collectionPath("/points/query"),
		queryRequest{Query: vector, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK {
		var qr queryResponse
		if err := json.Unmarshal(body, &qr); err != nil {
			return nil, fmt.Errorf("%w: decode query response: %v", domain.ErrVectorIndexFailure, err)
		}
		return toScoredPoints(qr.Result.Points), nil
	}

	c.log.Debug("points/query unavailable, falling back to points/search", zap.Int("status", status))
	status, body, err = c.do(ctx, http.MethodPost, c.collectionPath("/points/search"),
		searchRequest{Vector: vector, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: search status %d", domain.ErrVectorIndexFailure, status)
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", domain.ErrVectorIndexFailure, err)
	}
	return toScoredPoints(sr.Result), nil
}

// Upsert inserts or replaces points and waits for them to be indexed
func (c *Client) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	items := make([]upsertPoint, 0, len(points))
	for _, p := range points {
		if c.cfg.Dimension > 0 && len(p.Vector) != c.cfg.Dimension {
			return fmt.Errorf("%w: point %s has %d dimensions", domain.ErrDimensionMismatch, p.ID, len(p.Vector))
		}
		items = append(items, upsertPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
	}

	status, body, err := c.do(ctx, http.MethodPut, c.collectionPath("/points?wait=true"),
		map[string]interface{}{"points": items})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: upsert status %d: %s", domain.ErrVectorIndexFailure, status, string(body))
	}
	return nil
}

// ensureCollection creates the collection if missing. It never recreates an
// existing one. A failed attempt is retried on the next call.
func (c *Client) ensureCollection(ctx context.Context) error {
	if c.base == "" {
		return domain.ErrVectorIndexNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}

	status, _, err := c.do(ctx, http.MethodGet, c.collectionPath(""), nil)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusNotFound:
		dim := c.cfg.Dimension
		if dim <= 0 {
			dim = 384
		}
		body := map[string]interface{}{
			"vectors": map[string]interface{}{"size": dim, "distance": "Cosine"},
		}
		status, resp, err := c.do(ctx, http.MethodPut, c.collectionPath(""), body)
		if err != nil {
			return err
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("%w: create collection status %d: %s", domain.ErrVectorIndexFailure, status, string(resp))
		}
		c.log.Info("created collection", zap.String("collection", c.cfg.Collection), zap.Int("dimension", dim))
	default:
		return fmt.Errorf("%w: get collection status %d", domain.ErrVectorIndexFailure, status)
	}

	c.ready = true
	return nil
}

func (c *Client) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.base, c.cfg.Collection, suffix)
}

// do sends a JSON request and returns status and body. Transport errors are
// wrapped in domain.ErrVectorIndexFailure; HTTP statuses are left to the caller.
func (c *Client) do(ctx context.Context, method, url string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexFailure, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("qdrant", "error").Inc()
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexFailure, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues("qdrant", strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: %v", domain.ErrVectorIndexFailure, err)
	}
	return resp.StatusCode, body, nil
}

func toScoredPoints(points []point) []domain.ScoredPoint {
	out := make([]domain.ScoredPoint, 0, len(points))
	for _, p := range points {
		out = append(out, domain.ScoredPoint{
			ID:      pointID(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return out
}

// pointID renders numeric or UUID point IDs as strings
func pointID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
