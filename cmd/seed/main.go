// Command seed loads sample products into the vector index and the price graph.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/config"
	"github.com/cartgenie/backend/internal/app"
	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/usecase"
)

func main() {
	file := flag.String("file", "", "JSON array of catalogue products (defaults to the built-in sample)")
	postalCode := flag.String("postal-code", "560001", "postal code for prices of products that carry none")
	skipGraph := flag.Bool("skip-graph", false, "only populate the vector index")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zlog, err := logger.New(cfg.Server.Environment, cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	products := sampleProducts()
	if *file != "" {
		if products, err = loadProducts(*file); err != nil {
			zlog.Fatal("loading products", zap.String("file", *file), zap.Error(err))
		}
	}
	for i := range products {
		if products[i].PostalCode == "" {
			products[i].PostalCode = *postalCode
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := app.NewCache(ctx, cfg.Cache)
	if err != nil {
		zlog.Fatal("cache", zap.Error(err))
	}
	defer c.Close()

	var graph domain.GraphStore
	if !*skipGraph {
		connector := app.NewGraphStore(cfg, zlog)
		defer connector.Close(context.Background())
		graph = connector
	}

	seeder := usecase.NewCatalogSeeder(app.NewEmbeddingGenerator(cfg, c, zlog), app.NewVectorIndex(cfg, zlog), graph, zlog)
	report, err := seeder.Seed(ctx, products)
	if err != nil {
		zlog.Fatal("seeding failed", zap.Error(err))
	}

	fmt.Printf("Seeded %d products (%d graph offers written, %d skipped)\n", report.Indexed, report.GraphWritten, report.GraphSkipped)
	for _, p := range products {
		fmt.Printf("  - %s (%s: %s %.2f)\n", p.Name, p.Retailer, p.Currency, p.Price)
	}
}

func loadProducts(path string) ([]domain.CatalogProduct, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var products []domain.CatalogProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return products, nil
}

func sampleProducts() []domain.CatalogProduct {
	return []domain.CatalogProduct{
		{
			ProductID: "WOODLAND_SHOES_001",
			Name:      "Woodland Men's Leather Casual Shoes Brown",
			Brand:     "Woodland",
			Category:  "Footwear",
			Price:     3299,
			Currency:  "INR",
			Retailer:  "Amazon India",
			URL:       "https://amazon.in/woodland-shoes",
		},
		{
			ProductID: "WOODLAND_SHOES_002",
			Name:      "Woodland Men Camel Outdoor Shoes",
			Brand:     "Woodland",
			Category:  "Footwear",
			Price:     3199,
			Currency:  "INR",
			Retailer:  "Flipkart",
			URL:       "https://flipkart.com/woodland-shoes",
		},
		{
			ProductID: "SONY_HEADPHONES_001",
			Name:      "Sony WH-1000XM5 Wireless Noise Canceling Headphones",
			Brand:     "Sony",
			Category:  "Electronics",
			Price:     29990,
			Currency:  "INR",
			Retailer:  "Amazon India",
			URL:       "https://amazon.in/sony-headphones",
		},
		{
			ProductID: "SONY_HEADPHONES_002",
			Name:      "Sony WH-1000XM5 Headphones Black",
			Brand:     "Sony",
			Category:  "Electronics",
			Price:     28999,
			Currency:  "INR",
			Retailer:  "Flipkart",
			URL:       "https://flipkart.com/sony-headphones",
		},
		{
			ProductID: "IPHONE_001",
			Name:      "Apple iPhone 15 Pro Natural Titanium 128GB",
			Brand:     "Apple",
			Category:  "Smartphones",
			Price:     134900,
			Currency:  "INR",
			Retailer:  "Amazon India",
			URL:       "https://amazon.in/iphone-15-pro",
		},
		{
			ProductID: "ALMONDS_001",
			Name:      "Organic Raw Almonds Premium Quality 1kg",
			Brand:     "Nature's Best",
			Category:  "Groceries",
			Price:     899,
			Currency:  "INR",
			Retailer:  "BigBasket",
			URL:       "https://bigbasket.com/almonds",
		},
	}
}
