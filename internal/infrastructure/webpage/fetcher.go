package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/metrics"
)

const maxPageBytes = 10 << 20

// Fetcher downloads product pages straight from the retailer with browser-like headers
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	log        *zap.Logger
}

// NewFetcher creates a direct page fetcher
func NewFetcher(timeout time.Duration, userAgent string, log *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		log:        log.Named("webpage"),
	}
}

// Fetch returns the page body. Anything other than a 200 is a failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("direct_fetch", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequests.WithLabelValues("direct_fetch", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		f.log.Debug("non-200 response", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", domain.ErrFetchFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	return body, nil
}
