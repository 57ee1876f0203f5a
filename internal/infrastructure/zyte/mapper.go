package zyte

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cartgenie/backend/internal/domain"
)

// extractRequest is the body of POST /extract
type extractRequest struct {
	URL              string       `json:"url"`
	HTTPResponseBody bool         `json:"httpResponseBody"`
	Geolocation      string       `json:"geolocation,omitempty"`
	Experimental     experimental `json:"experimental"`
}

type experimental struct {
	ResponseCookies bool `json:"responseCookies"`
}

// extractResponse holds the fields we read from the /extract response
type extractResponse struct {
	URL              string `json:"url"`
	StatusCode       int    `json:"statusCode"`
	HTTPResponseBody string `json:"httpResponseBody"`
}

func newExtractRequest(url, countryCode string) extractRequest {
	return extractRequest{
		URL:              url,
		HTTPResponseBody: true,
		Geolocation:      strings.ToUpper(strings.TrimSpace(countryCode)),
		Experimental:     experimental{ResponseCookies: true},
	}
}

// decodeExtractResponse returns the page bytes carried base64-encoded in httpResponseBody
func decodeExtractResponse(body []byte) ([]byte, error) {
	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrScraperFailure, err)
	}
	if resp.HTTPResponseBody == "" {
		return nil, fmt.Errorf("%w: response has no body", domain.ErrScraperFailure)
	}

	page, err := base64.StdEncoding.DecodeString(resp.HTTPResponseBody)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 body: %v", domain.ErrScraperFailure, err)
	}
	return page, nil
}
