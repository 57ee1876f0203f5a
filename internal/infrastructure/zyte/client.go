package zyte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/metrics"
)

const (
	maxAttempts      = 3
	maxResponseBytes = 20 << 20
	maxErrorBodyLen  = 512
)

// Client handles communication with the Zyte extraction API
type Client struct {
	httpClient  *http.Client
	timeout     time.Duration
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	log         *zap.Logger
}

// NewClient creates a new Zyte API client. requestsPerMinute <= 0 disables client-side limiting.
func NewClient(apiKey, baseURL string, timeout time.Duration, requestsPerMinute int, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60)
		burst = max(1, requestsPerMinute/10)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		timeout:     timeout,
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, burst),
		log:         log.Named("zyte"),
	}
}

// Scrape fetches url through Zyte, geolocated to countryCode, and returns the decoded page body.
// All attempts share one deadline of the configured timeout.
func (c *Client) Scrape(ctx context.Context, url, countryCode string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, domain.ErrScraperNotConfigured
	}

	payload, err := json.Marshal(newExtractRequest(url, countryCode))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := c.baseURL + "/extract"

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && !sleepCtx(callCtx, exponentialBackoff(attempt-1)) {
			break
		}
		if err := c.rateLimiter.Wait(callCtx); err != nil {
			if ctx.Err() == nil && lastErr != nil {
				break
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		body, status, err := c.doRequest(callCtx, endpoint, payload)
		if err != nil {
			c.log.Warn("request failed", zap.Int("attempt", attempt), zap.String("url", url), zap.Error(err))
			metrics.UpstreamRequests.WithLabelValues("zyte", "error").Inc()
			lastErr = err
			continue
		}
		metrics.UpstreamRequests.WithLabelValues("zyte", strconv.Itoa(status)).Inc()

		if status != http.StatusOK {
			c.log.Warn("non-200 response",
				zap.Int("attempt", attempt),
				zap.Int("status", status),
				zap.String("body", truncate(string(body), maxErrorBodyLen)))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrScraperFailure, status)
			// Client errors other than throttling will not improve on retry
			if status < 500 && status != http.StatusTooManyRequests {
				return nil, lastErr
			}
			continue
		}

		page, err := decodeExtractResponse(body)
		if err != nil {
			return nil, err
		}
		c.log.Debug("page scraped", zap.String("url", url), zap.Int("bytes", len(page)))
		return page, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %v", domain.ErrScraperFailure, callCtx.Err())
	}
	return nil, lastErr
}

// doRequest executes a POST with basic auth and returns the body and status
func (c *Client) doRequest(ctx context.Context, endpoint string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CartGenie/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrScraperFailure, err)
	}
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", domain.ErrScraperFailure, err)
	}
	return body, resp.StatusCode, nil
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// readLimitedBody reads at most limit bytes and fails if the body is larger
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
