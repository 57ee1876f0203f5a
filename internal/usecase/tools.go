package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/metrics"
)

const (
	defaultSimilarityTopK = 3
	defaultCountryCode    = "US"

	// PriceLookupQuery returns one row per retailer selling the product, with the
	// price recorded for the postal code or null when there is none
	PriceLookupQuery = `MATCH (p:Product {productId: $product_id})-[:SOLD_AT]->(r:Retailer)
OPTIONAL MATCH (p)-[price_rel:HAS_PRICE {postalCode: $postal_code}]->(r)
RETURN p.name AS productName, r.name AS retailer, price_rel.price AS price,
       price_rel.currency AS currency, price_rel.lastUpdated AS lastUpdated`
)

// productEmbedder is the part of EmbeddingGenerator the tools need
type productEmbedder interface {
	Embed(ctx context.Context, attrs domain.ProductAttributes) []float32
}

// productExtractor is the part of ProductExtractor the tools need
type productExtractor interface {
	Extract(ctx context.Context, rawHTML string) domain.ProductSignal
}

// observeTool records a tool invocation outcome and latency
func observeTool(tool, outcome string, start time.Time) {
	metrics.ToolCalls.WithLabelValues(tool, outcome).Inc()
	metrics.ToolLatency.WithLabelValues(tool).Observe(time.Since(start).Seconds())
}

// decodeToolArgs unmarshals the engine-supplied JSON arguments
func decodeToolArgs(arguments json.RawMessage, v interface{}) error {
	if len(arguments) == 0 {
		arguments = json.RawMessage("{}")
	}
	return json.Unmarshal(arguments, v)
}

// SimilaritySearchTool finds catalogue products close to a described product
type SimilaritySearchTool struct {
	embedder productEmbedder
	index    domain.VectorIndex
	matcher  *TitleMatcher
	topK     int
	log      *zap.Logger
}

// NewSimilaritySearchTool creates the tool. matcher may be nil.
func NewSimilaritySearchTool(embedder productEmbedder, index domain.VectorIndex, matcher *TitleMatcher, log *zap.Logger) *SimilaritySearchTool {
	return &SimilaritySearchTool{
		embedder: embedder,
		index:    index,
		matcher:  matcher,
		topK:     defaultSimilarityTopK,
		log:      logger.OrNop(log),
	}
}

func (t *SimilaritySearchTool) Name() string { return "find_similar_products" }

func (t *SimilaritySearchTool) Description() string {
	return "Find products in the catalogue that are similar to the given product. " +
		"Returns product IDs with similarity scores; use the IDs with get_product_prices."
}

func (t *SimilaritySearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"product_name":  map[string]interface{}{"type": "string", "description": "Product title to search for"},
			"product_brand": map[string]interface{}{"type": "string", "description": "Brand, if known"},
			"product_price": map[string]interface{}{"type": "number", "description": "Current price, if known"},
		},
		"required": []string{"product_name"},
	}
}

type similarityArgs struct {
	ProductName  string  `json:"product_name"`
	ProductBrand string  `json:"product_brand"`
	ProductPrice float64 `json:"product_price"`
}

func (t *SimilaritySearchTool) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args similarityArgs
	if err := decodeToolArgs(arguments, &args); err != nil {
		return fmt.Sprintf("Invalid arguments for %s: %v", t.Name(), err), nil
	}
	return t.Search(ctx, args.ProductName, args.ProductBrand, args.ProductPrice)
}

// Search embeds the product, queries the index and summarises the hits.
// Only a missing index configuration is returned as an error.
func (t *SimilaritySearchTool) Search(ctx context.Context, name, brand string, price float64) (string, error) {
	start := time.Now()

	vector := t.embedder.Embed(ctx, domain.ProductAttributes{Name: name, Brand: brand, Price: price})

	hits, err := t.index.Search(ctx, vector, t.topK)
	if err != nil {
		if errors.Is(err, domain.ErrVectorIndexNotConfigured) {
			observeTool(t.Name(), "fatal", start)
			return "", err
		}
		t.log.Warn("similarity search failed", zap.String("product", name), zap.Error(err))
		observeTool(t.Name(), "degraded", start)
		return fmt.Sprintf("Similarity search for '%s' failed: the vector index is unavailable.", name), nil
	}

	if len(hits) == 0 {
		observeTool(t.Name(), "empty", start)
		return fmt.Sprintf("No similar products found in the catalogue for '%s'.", name), nil
	}

	var b strings.Builder
	b.WriteString("Found similar products:\n")
	for _, hit := range hits {
		b.WriteString(t.describeHit(name, brand, hit))
		b.WriteString("\n")
	}

	observeTool(t.Name(), "ok", start)
	return strings.TrimRight(b.String(), "\n"), nil
}

// describeHit renders one hit; catalogue details are appended when the payload carries them
func (t *SimilaritySearchTool) describeHit(query, brand string, hit domain.ScoredPoint) string {
	id := payloadString(hit.Payload, "productId")
	if id == "" {
		id = hit.ID
	}

	line := fmt.Sprintf("- Product ID: %s, Score: %.4f", id, hit.Score)

	title := payloadString(hit.Payload, "name")
	if title != "" {
		line += fmt.Sprintf(" | %s", title)
	}
	if retailer := payloadString(hit.Payload, "retailer"); retailer != "" {
		if p, ok := toFloat(hit.Payload["price"]); ok {
			line += fmt.Sprintf(" | %s %s at %s", payloadString(hit.Payload, "currency"), formatPrice(p), retailer)
		} else {
			line += fmt.Sprintf(" | sold at %s", retailer)
		}
	}
	if u := payloadString(hit.Payload, "url"); u != "" {
		line += " | " + u
	}
	if title != "" && t.matcher != nil {
		line += fmt.Sprintf(" | title match %.0f%%", t.matcher.Score(query, brand, title))
	}
	return line
}

// PageFetchTool scrapes a product page and summarises the product found there.
// The remote scraping service is tried first, then a direct request.
type PageFetchTool struct {
	scraper   domain.PageScraper
	fetcher   domain.PageFetcher
	extractor productExtractor
	log       *zap.Logger
}

// NewPageFetchTool creates the tool. scraper or fetcher may be nil to disable that tier.
func NewPageFetchTool(scraper domain.PageScraper, fetcher domain.PageFetcher, extractor productExtractor, log *zap.Logger) *PageFetchTool {
	return &PageFetchTool{
		scraper:   scraper,
		fetcher:   fetcher,
		extractor: extractor,
		log:       logger.OrNop(log),
	}
}

func (t *PageFetchTool) Name() string { return "scrape_product_page" }

func (t *PageFetchTool) Description() string {
	return "Fetch a retailer product page and extract the product name, price and brand. " +
		"Use it for products missing from the catalogue or with stale prices."
}

func (t *PageFetchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url":          map[string]interface{}{"type": "string", "description": "Product page URL"},
			"country_code": map[string]interface{}{"type": "string", "description": "Two-letter country code for geolocation, default US"},
		},
		"required": []string{"url"},
	}
}

type fetchArgs struct {
	URL         string `json:"url"`
	CountryCode string `json:"country_code"`
}

func (t *PageFetchTool) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args fetchArgs
	if err := decodeToolArgs(arguments, &args); err != nil {
		return fmt.Sprintf("Invalid arguments for %s: %v", t.Name(), err), nil
	}
	return t.Fetch(ctx, args.URL, args.CountryCode), nil
}

// pageTier is one way of obtaining the page HTML
type pageTier struct {
	name  string
	fetch func(ctx context.Context) ([]byte, error)
}

// Fetch returns a product summary, a summary naming the domain reached,
// or an explanation of why the page could not be fetched
func (t *PageFetchTool) Fetch(ctx context.Context, rawURL, countryCode string) string {
	start := time.Now()

	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		observeTool(t.Name(), "degraded", start)
		return fmt.Sprintf("Invalid product URL: %s", rawURL)
	}
	pageURL := parsed.String()
	host := parsed.Hostname()

	country := strings.ToUpper(strings.TrimSpace(countryCode))
	if country == "" {
		country = defaultCountryCode
	}

	var tiers []pageTier
	if t.scraper != nil {
		tiers = append(tiers, pageTier{name: "scraping_service", fetch: func(ctx context.Context) ([]byte, error) {
			return t.scraper.Scrape(ctx, pageURL, country)
		}})
	}
	if t.fetcher != nil {
		tiers = append(tiers, pageTier{name: "direct_fetch", fetch: func(ctx context.Context) ([]byte, error) {
			return t.fetcher.Fetch(ctx, pageURL)
		}})
	}

	reached := false
	for _, tier := range tiers {
		body, err := tier.fetch(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrScraperNotConfigured) {
				t.log.Debug("page tier unavailable", zap.String("tier", tier.name))
			} else {
				t.log.Warn("page tier failed", zap.String("tier", tier.name), zap.String("url", pageURL), zap.Error(err))
			}
			continue
		}
		reached = true

		signal := t.extractor.Extract(ctx, string(body))
		if signal.Name != "" {
			metrics.FallbackTier.WithLabelValues("page_fetch", tier.name).Inc()
			observeTool(t.Name(), "ok", start)
			return summarizeSignal(signal)
		}
		t.log.Debug("no product found on page", zap.String("tier", tier.name), zap.String("url", pageURL))
	}

	if reached {
		observeTool(t.Name(), "empty", start)
		return fmt.Sprintf("Fetched the page from %s but could not identify the product on it.", host)
	}

	observeTool(t.Name(), "degraded", start)
	return fmt.Sprintf("Failed to fetch product page %s: the scraping service and the direct request both failed.", pageURL)
}

// summarizeSignal renders the one-line product summary returned to the agent
func summarizeSignal(s domain.ProductSignal) string {
	brand := s.Brand
	if brand == "" {
		brand = "N/A"
	}
	summary := fmt.Sprintf("Product scraped: %s - Price: %s - Brand: %s", s.Name, formatPrice(s.Price), brand)
	if s.Availability != "" {
		summary += " - Availability: " + s.Availability
	}
	return summary
}

// PriceGraphTool looks up retailer prices for a known product at a postal code
type PriceGraphTool struct {
	graph domain.GraphStore
	log   *zap.Logger
}

// NewPriceGraphTool creates the tool
func NewPriceGraphTool(graph domain.GraphStore, log *zap.Logger) *PriceGraphTool {
	return &PriceGraphTool{graph: graph, log: logger.OrNop(log)}
}

func (t *PriceGraphTool) Name() string { return "get_product_prices" }

func (t *PriceGraphTool) Description() string {
	return "Look up known retailer prices for a catalogue product ID at the user's postal code."
}

func (t *PriceGraphTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"product_id":  map[string]interface{}{"type": "string", "description": "Catalogue product ID"},
			"postal_code": map[string]interface{}{"type": "string", "description": "User postal code"},
		},
		"required": []string{"product_id"},
	}
}

type priceArgs struct {
	ProductID  string `json:"product_id"`
	PostalCode string `json:"postal_code"`
}

func (t *PriceGraphTool) Call(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args priceArgs
	if err := decodeToolArgs(arguments, &args); err != nil {
		return fmt.Sprintf("Invalid arguments for %s: %v", t.Name(), err), nil
	}
	return t.Lookup(ctx, args.ProductID, args.PostalCode)
}

// Lookup runs PriceLookupQuery and lists retailers with a recorded price.
// Retailers without a price at the postal code are omitted.
func (t *PriceGraphTool) Lookup(ctx context.Context, productID, postalCode string) (string, error) {
	start := time.Now()

	rows, err := t.graph.Query(ctx, PriceLookupQuery, map[string]interface{}{
		"product_id":  productID,
		"postal_code": postalCode,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGraphNotConfigured) {
			observeTool(t.Name(), "fatal", start)
			return "", err
		}
		t.log.Warn("price lookup failed", zap.String("productId", productID), zap.Error(err))
		observeTool(t.Name(), "degraded", start)
		return fmt.Sprintf("Price lookup for product ID %s failed: the price graph is unavailable.", productID), nil
	}

	if len(rows) == 0 {
		observeTool(t.Name(), "empty", start)
		return fmt.Sprintf("No price information found for product ID %s at postal code %s.", productID, postalCode), nil
	}

	productName := payloadString(rows[0], "productName")
	if productName == "" {
		productName = productID
	}

	var lines []string
	for _, row := range rows {
		price, ok := toFloat(row["price"])
		if !ok {
			continue
		}
		line := fmt.Sprintf("- %s: %s %s", payloadString(row, "retailer"), payloadString(row, "currency"), formatPrice(price))
		if updated := row["lastUpdated"]; updated != nil {
			line += fmt.Sprintf(" (last updated %v)", updated)
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		observeTool(t.Name(), "empty", start)
		return fmt.Sprintf("%s is sold at %d retailer(s), but no prices are recorded for postal code %s.",
			productName, len(rows), postalCode), nil
	}

	observeTool(t.Name(), "ok", start)
	return fmt.Sprintf("Prices for %s at postal code %s:\n%s", productName, postalCode, strings.Join(lines, "\n")), nil
}

// payloadString reads a string-ish value from a payload or result row
func payloadString(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat converts the numeric types stores hand back; strings go through ParsePrice
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		if strings.TrimSpace(n) == "" {
			return 0, false
		}
		return ParsePrice(n), true
	}
	return 0, false
}
