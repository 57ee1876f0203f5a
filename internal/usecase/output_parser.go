package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cartgenie/backend/internal/domain"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*?)```")

// StripMarkdownFences returns the body of the first fenced code block in s,
// or s trimmed when it has no complete fence. An unterminated leading fence is dropped.
func StripMarkdownFences(s string) string {
	trimmed := strings.TrimSpace(s)

	if m := fencedBlockPattern.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	if strings.HasPrefix(trimmed, "```") {
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			return strings.TrimSpace(trimmed[nl+1:])
		}
		return ""
	}
	return trimmed
}

// resultEnvelope mirrors OptimizationResult with pointers so missing fields can be detected
type resultEnvelope struct {
	OriginalTotal   *float64                `json:"originalTotal"`
	OptimizedTotal  *float64                `json:"optimizedTotal"`
	Currency        *string                 `json:"currency"`
	TotalSavings    *float64                `json:"totalSavings"`
	Recommendations *[]parsedRecommendation `json:"recommendations"`
}

// parsedRecommendation decodes originalItem loosely. Reconciliation rebuilds the
// line from the cart, so only the title has to be usable.
type parsedRecommendation struct {
	OriginalItem        parsedCartItem   `json:"originalItem"`
	CheapestAlternative domain.Candidate `json:"cheapestAlternative"`
}

type parsedCartItem struct {
	ProductTitle string          `json:"productTitle"`
	Quantity     json.RawMessage `json:"quantity"`
	Price        json.RawMessage `json:"price"`
	Currency     string          `json:"currency"`
}

func (p parsedRecommendation) toDomain() domain.Recommendation {
	return domain.Recommendation{
		OriginalItem: domain.CartItem{
			ProductTitle: p.OriginalItem.ProductTitle,
			Quantity:     int(math.Round(lenientNumber(p.OriginalItem.Quantity))),
			Price:        lenientNumber(p.OriginalItem.Price),
			Currency:     p.OriginalItem.Currency,
		},
		CheapestAlternative: p.CheapestAlternative,
	}
}

// lenientNumber reads a JSON number or a price-like string; anything else is 0
func lenientNumber(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ParsePrice(text)
	}
	return 0
}

// ParseOptimizationResult decodes the analysis stage's final output. Output that
// is not a JSON object carrying a recommendations list is ErrMalformedOutput.
func ParseOptimizationResult(raw string) (*domain.OptimizationResult, error) {
	cleaned := StripMarkdownFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty output", domain.ErrMalformedOutput)
	}

	var env resultEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	if env.Recommendations == nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, errors.New("recommendations missing"))
	}

	recs := make([]domain.Recommendation, 0, len(*env.Recommendations))
	for _, r := range *env.Recommendations {
		recs = append(recs, r.toDomain())
	}
	result := &domain.OptimizationResult{Recommendations: recs}
	if env.OriginalTotal != nil {
		result.OriginalTotal = *env.OriginalTotal
	}
	if env.OptimizedTotal != nil {
		result.OptimizedTotal = *env.OptimizedTotal
	}
	if env.Currency != nil {
		result.Currency = *env.Currency
	}
	if env.TotalSavings != nil {
		result.TotalSavings = *env.TotalSavings
	}
	return result, nil
}
