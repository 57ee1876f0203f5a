package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
)

// upsertOfferQuery records a product, its retailer and the price at one postal code
const upsertOfferQuery = `MERGE (p:Product {productId: $product_id})
SET p.name = $name, p.brand = $brand, p.category = $category
MERGE (r:Retailer {name: $retailer})
MERGE (p)-[:SOLD_AT]->(r)
MERGE (p)-[price_rel:HAS_PRICE {postalCode: $postal_code}]->(r)
SET price_rel.price = $price, price_rel.currency = $currency, price_rel.lastUpdated = $last_updated`

// catalogNamespace scopes deterministic point IDs so reseeding overwrites instead of duplicating
var catalogNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://cartgenie.app/catalog"))

// SeedReport summarises a seeding run
type SeedReport struct {
	Indexed      int
	GraphWritten int
	GraphSkipped int
}

// CatalogSeeder loads known products into the vector index and the price graph
type CatalogSeeder struct {
	embedder productEmbedder
	index    domain.VectorIndex
	graph    domain.GraphStore
	log      *zap.Logger
	now      func() time.Time
}

// NewCatalogSeeder creates a seeder. graph may be nil to only populate the vector index.
func NewCatalogSeeder(embedder productEmbedder, index domain.VectorIndex, graph domain.GraphStore, log *zap.Logger) *CatalogSeeder {
	return &CatalogSeeder{
		embedder: embedder,
		index:    index,
		graph:    graph,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
}

// CatalogPointID returns the vector point ID for a product
func CatalogPointID(productID string) string {
	return uuid.NewSHA1(catalogNamespace, []byte(productID)).String()
}

// Seed validates every product, upserts all embeddings in one batch and then
// writes each offer to the graph. Products without a postal code are indexed
// but get no graph price.
func (s *CatalogSeeder) Seed(ctx context.Context, products []domain.CatalogProduct) (*SeedReport, error) {
	for i, p := range products {
		if err := validateCatalogProduct(p); err != nil {
			return nil, fmt.Errorf("%w: product %d: %v", domain.ErrInvalidRequest, i, err)
		}
	}

	points := make([]domain.VectorPoint, 0, len(products))
	for _, p := range products {
		vector := s.embedder.Embed(ctx, domain.ProductAttributes{
			Name:     p.Name,
			Brand:    p.Brand,
			Category: p.Category,
			Price:    p.Price,
		})
		points = append(points, domain.VectorPoint{
			ID:      CatalogPointID(p.ProductID),
			Vector:  vector,
			Payload: catalogPayload(p),
		})
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("upsert embeddings: %w", err)
	}
	report := &SeedReport{Indexed: len(points)}
	s.log.Info("catalogue indexed", zap.Int("products", len(points)))

	if s.graph == nil {
		report.GraphSkipped = len(products)
		return report, nil
	}

	updated := s.now().UTC().Format("2006-01-02")
	for _, p := range products {
		if p.PostalCode == "" {
			report.GraphSkipped++
			continue
		}
		err := s.graph.Write(ctx, upsertOfferQuery, map[string]interface{}{
			"product_id":   p.ProductID,
			"name":         p.Name,
			"brand":        p.Brand,
			"category":     p.Category,
			"retailer":     p.Retailer,
			"postal_code":  p.PostalCode,
			"price":        p.Price,
			"currency":     p.Currency,
			"last_updated": updated,
		})
		if err != nil {
			return report, fmt.Errorf("write offer %s: %w", p.ProductID, err)
		}
		report.GraphWritten++
	}
	s.log.Info("price graph updated",
		zap.Int("written", report.GraphWritten),
		zap.Int("skipped", report.GraphSkipped))
	return report, nil
}

func validateCatalogProduct(p domain.CatalogProduct) error {
	switch {
	case strings.TrimSpace(p.ProductID) == "":
		return fmt.Errorf("productId is required")
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("name is required for %s", p.ProductID)
	case strings.TrimSpace(p.Retailer) == "":
		return fmt.Errorf("retailer is required for %s", p.ProductID)
	case p.Price < 0:
		return fmt.Errorf("price must not be negative for %s", p.ProductID)
	case len(p.Currency) != 3:
		return fmt.Errorf("currency must be a 3-letter code for %s", p.ProductID)
	}
	return nil
}

// catalogPayload carries the fields the similarity search tool reports
func catalogPayload(p domain.CatalogProduct) map[string]interface{} {
	payload := map[string]interface{}{
		"productId": p.ProductID,
		"name":      p.Name,
		"brand":     p.Brand,
		"category":  p.Category,
		"price":     p.Price,
		"currency":  strings.ToUpper(p.Currency),
		"retailer":  p.Retailer,
	}
	if p.URL != "" {
		payload["url"] = p.URL
	}
	return payload
}
