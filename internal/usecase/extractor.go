package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/metrics"
)

// extractionStrategy is one tier of the extraction fallback chain
type extractionStrategy interface {
	name() string
	attempt(ctx context.Context, page *parsedPage) (domain.ProductSignal, bool)
}

// parsedPage is the raw HTML together with its parsed document
type parsedPage struct {
	raw string
	doc *goquery.Document
}

// ProductExtractor turns raw product-page HTML into a ProductSignal.
// Strategies run in order and the first success wins. Extract never fails:
// when every strategy fails the empty signal is returned.
type ProductExtractor struct {
	strategies []extractionStrategy
	log        *zap.Logger
}

// NewProductExtractor creates an extractor. service may be nil, in which case
// extraction starts with the platform rules.
func NewProductExtractor(service domain.StructuredExtractor, log *zap.Logger) *ProductExtractor {
	log = logger.OrNop(log)

	var strategies []extractionStrategy
	if service != nil {
		strategies = append(strategies, &structuredServiceStrategy{service: service})
	}
	strategies = append(strategies, &platformRulesStrategy{}, &genericHeuristicsStrategy{})

	return &ProductExtractor{strategies: strategies, log: log}
}

// Extract recovers product fields from rawHTML
func (e *ProductExtractor) Extract(ctx context.Context, rawHTML string) domain.ProductSignal {
	if strings.TrimSpace(rawHTML) == "" {
		return domain.EmptyProductSignal()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		e.log.Warn("failed to parse HTML", zap.Error(err))
		return domain.EmptyProductSignal()
	}
	page := &parsedPage{raw: rawHTML, doc: doc}

	for _, strategy := range e.strategies {
		signal, ok := e.run(ctx, strategy, page)
		if ok {
			metrics.FallbackTier.WithLabelValues("extraction", strategy.name()).Inc()
			e.log.Debug("product extracted",
				zap.String("strategy", strategy.name()),
				zap.String("name", signal.Name),
				zap.Float64("price", signal.Price))
			return signal
		}
	}

	metrics.FallbackTier.WithLabelValues("extraction", "empty").Inc()
	return domain.EmptyProductSignal()
}

// run executes one strategy, converting a panic into a failed attempt
func (e *ProductExtractor) run(ctx context.Context, s extractionStrategy, page *parsedPage) (signal domain.ProductSignal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("extraction strategy panicked", zap.String("strategy", s.name()), zap.Any("panic", r))
			signal, ok = domain.EmptyProductSignal(), false
		}
	}()
	return s.attempt(ctx, page)
}

// structuredServiceStrategy asks the remote AI extraction service
type structuredServiceStrategy struct {
	service domain.StructuredExtractor
}

func (s *structuredServiceStrategy) name() string { return "structured_service" }

func (s *structuredServiceStrategy) attempt(ctx context.Context, page *parsedPage) (domain.ProductSignal, bool) {
	result, err := s.service.ExtractProduct(ctx, page.raw)
	if err != nil || result == nil || strings.TrimSpace(result.Name) == "" {
		return domain.EmptyProductSignal(), false
	}

	signal := *result
	signal.Name = collapseWhitespace(signal.Name)
	if signal.PriceText != "" {
		signal.Price = ParsePrice(signal.PriceText)
		signal.PriceText = ""
	}
	if signal.Price < 0 {
		signal.Price = 0
	}
	return signal, true
}

// platformRulesStrategy applies the selector lists of the detected platform
type platformRulesStrategy struct{}

func (s *platformRulesStrategy) name() string { return "platform_rules" }

func (s *platformRulesStrategy) attempt(_ context.Context, page *parsedPage) (domain.ProductSignal, bool) {
	platform := detectPlatform(page.raw, page.doc)
	rules, ok := platformRules[platform]
	if !ok {
		return domain.EmptyProductSignal(), false
	}

	name, brand, priceText, sku, category, availability := applyRules(page.doc, rules)
	if name == "" {
		return domain.EmptyProductSignal(), false
	}

	return domain.ProductSignal{
		Name:         name,
		Brand:        brand,
		Price:        ParsePrice(priceText),
		SKU:          sku,
		Category:     category,
		Availability: availability,
	}, true
}

// genericRules is the class-name substring cascade used when no platform matched
var genericRules = fieldRules{
	name: []selector{
		{css: `[itemprop="name"]`},
		{css: `meta[property="og:title"]`, attr: "content"},
		{css: "h1"},
		{css: `[class*="title"]`},
		{css: `[class*="name"]`},
	},
	brand: []selector{
		{css: `[itemprop="brand"] [itemprop="name"]`},
		{css: `[itemprop="brand"]`},
		{css: `meta[property="product:brand"]`, attr: "content"},
		{css: `[class*="brand"]`},
	},
	price: []selector{
		{css: `[itemprop="price"]`, attr: "content"},
		{css: `[itemprop="price"]`},
		{css: `meta[property="product:price:amount"]`, attr: "content"},
		{css: `[class*="price"]`},
	},
	sku: []selector{
		{css: `[itemprop="sku"]`, attr: "content"},
		{css: `[itemprop="sku"]`},
		{css: `[class*="sku"]`},
	},
	category: []selector{
		{css: `[class*="breadcrumb"] a:last-child`},
		{css: `meta[property="product:category"]`, attr: "content"},
	},
	availability: []selector{
		{css: `[itemprop="availability"]`, attr: "content"},
		{css: `[itemprop="availability"]`, attr: "href"},
		{css: `[class*="availability"]`},
		{css: `[class*="stock"]`},
	},
}

// genericHeuristicsStrategy reads schema.org JSON-LD, then microdata and meta tags,
// then falls back to class-name substrings
type genericHeuristicsStrategy struct{}

func (s *genericHeuristicsStrategy) name() string { return "generic_heuristics" }

func (s *genericHeuristicsStrategy) attempt(_ context.Context, page *parsedPage) (domain.ProductSignal, bool) {
	if signal, ok := extractJSONLD(page.doc); ok {
		return signal, true
	}

	name, brand, priceText, sku, category, availability := applyRules(page.doc, genericRules)
	signal := domain.ProductSignal{
		Name:         name,
		Brand:        brand,
		Price:        ParsePrice(priceText),
		SKU:          sku,
		Category:     category,
		Availability: availabilityLabel(availability),
	}
	if signal.IsEmpty() {
		return signal, false
	}
	return signal, true
}

// extractJSONLD looks for a schema.org Product in ld+json script blocks
func extractJSONLD(doc *goquery.Document) (domain.ProductSignal, bool) {
	var found domain.ProductSignal
	ok := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw interface{}
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true
		}
		if product := findLDProduct(raw); product != nil {
			found = ldProductSignal(product)
			ok = found.Name != ""
		}
		return !ok
	})

	return found, ok
}

// findLDProduct walks arrays and @graph containers for an object typed Product
func findLDProduct(v interface{}) map[string]interface{} {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if p := findLDProduct(item); p != nil {
				return p
			}
		}
	case map[string]interface{}:
		if isLDType(node["@type"], "Product") {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findLDProduct(graph)
		}
	}
	return nil
}

func isLDType(v interface{}, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func ldProductSignal(p map[string]interface{}) domain.ProductSignal {
	signal := domain.ProductSignal{
		Name:     collapseWhitespace(ldString(p["name"])),
		Brand:    ldString(p["brand"]),
		SKU:      ldString(p["sku"]),
		Category: ldString(p["category"]),
	}

	offers := p["offers"]
	if list, ok := offers.([]interface{}); ok && len(list) > 0 {
		offers = list[0]
	}
	if offer, ok := offers.(map[string]interface{}); ok {
		price := offer["price"]
		if price == nil {
			price = offer["lowPrice"]
		}
		signal.Price = ParsePrice(ldString(price))
		signal.Availability = availabilityLabel(ldString(offer["availability"]))
	}

	return signal
}

// ldString flattens a JSON-LD value that may be a string, a number or a named object
func ldString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%v", t)
	case map[string]interface{}:
		return ldString(t["name"])
	}
	return ""
}

// availabilityLabel turns schema.org URLs like "https://schema.org/InStock" into "InStock"
func availabilityLabel(v string) string {
	if i := strings.LastIndex(v, "/"); i >= 0 && strings.Contains(v, "schema.org") {
		return v[i+1:]
	}
	return v
}
