package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/metrics"
)

const (
	maxPageTextChars = 8000
	extractionPrompt = `Extract the main product from this e-commerce page text.
Return a JSON object with exactly these keys:
"name" (product title), "brand", "price" (number, current selling price without currency symbol),
"sku", "category", "availability".
Use an empty string, or 0 for price, when a value is not present on the page.`
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Extractor implements domain.StructuredExtractor with a JSON-mode chat completion
type Extractor struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewExtractor creates the structured extraction service. Returns nil when
// apiKey is empty so callers can skip the tier entirely.
func NewExtractor(apiKey, baseURL, model string, log *zap.Logger) *Extractor {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Extractor{
		client: newOpenAIClient(apiKey, baseURL),
		model:  model,
		log:    logger.OrNop(log).Named("extraction"),
	}
}

type extractedProduct struct {
	Name         string          `json:"name"`
	Brand        string          `json:"brand"`
	Price        json.RawMessage `json:"price"`
	SKU          string          `json:"sku"`
	Category     string          `json:"category"`
	Availability string          `json:"availability"`
}

// ExtractProduct asks the model for the product fields of rawHTML
func (e *Extractor) ExtractProduct(ctx context.Context, rawHTML string) (*domain.ProductSignal, error) {
	text, err := pageText(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailure, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: page has no text", domain.ErrExtractionFailure)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("openai_extraction", "error").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailure, err)
	}
	metrics.UpstreamRequests.WithLabelValues("openai_extraction", "ok").Inc()
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", domain.ErrExtractionFailure)
	}

	var out extractedProduct
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", domain.ErrExtractionFailure, err)
	}

	signal := &domain.ProductSignal{
		Name:         strings.TrimSpace(out.Name),
		Brand:        strings.TrimSpace(out.Brand),
		PriceText:    rawPriceText(out.Price),
		SKU:          strings.TrimSpace(out.SKU),
		Category:     strings.TrimSpace(out.Category),
		Availability: strings.TrimSpace(out.Availability),
	}
	if signal.Name == "" {
		return nil, fmt.Errorf("%w: no product name", domain.ErrExtractionFailure)
	}
	e.log.Debug("product extracted", zap.String("name", signal.Name), zap.String("price", signal.PriceText))
	return signal, nil
}

// pageText returns the title and visible text of the page, truncated
func pageText(rawHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, svg, iframe").Remove()

	parts := []string{strings.TrimSpace(doc.Find("title").First().Text())}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		parts = append(parts, desc)
	}
	parts = append(parts, doc.Find("body").Text())

	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(parts, "\n"), " "))
	if len(text) > maxPageTextChars {
		text = strings.ToValidUTF8(text[:maxPageTextChars], "")
	}
	return text, nil
}

// rawPriceText returns a JSON number literal or string as text; anything else is empty
func rawPriceText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	return ""
}
