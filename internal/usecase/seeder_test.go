package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartgenie/backend/internal/domain"
)

func sampleCatalog() []domain.CatalogProduct {
	return []domain.CatalogProduct{
		{
			ProductID: "WOODLAND_SHOES_002", Name: "Woodland Men Camel Outdoor Shoes", Brand: "Woodland",
			Category: "Footwear", Price: 3199, Currency: "INR", Retailer: "Flipkart",
			URL: "https://flipkart.com/woodland-shoes", PostalCode: "560001",
		},
		{
			ProductID: "ALMONDS_001", Name: "Organic Raw Almonds Premium Quality 1kg", Brand: "Nature's Best",
			Category: "Groceries", Price: 899, Currency: "inr", Retailer: "BigBasket",
		},
	}
}

func TestCatalogPointID_Deterministic(t *testing.T) {
	a := CatalogPointID("IPHONE_001")
	assert.Equal(t, a, CatalogPointID("IPHONE_001"))
	assert.NotEqual(t, a, CatalogPointID("IPHONE_002"))
	assert.Len(t, a, 36)
}

func TestCatalogSeeder_Seed(t *testing.T) {
	embedder := &stubEmbedder{}
	index := &mockVectorIndex{}
	graph := &mockGraphStore{}
	seeder := NewCatalogSeeder(embedder, index, graph, nil)
	seeder.now = func() time.Time { return time.Date(2026, 10, 1, 23, 0, 0, 0, time.UTC) }

	report, err := seeder.Seed(context.Background(), sampleCatalog())
	require.NoError(t, err)
	assert.Equal(t, &SeedReport{Indexed: 2, GraphWritten: 1, GraphSkipped: 1}, report)

	require.Len(t, index.upserted, 2)
	first := index.upserted[0]
	assert.Equal(t, CatalogPointID("WOODLAND_SHOES_002"), first.ID)
	assert.Len(t, first.Vector, 384)
	assert.Equal(t, "WOODLAND_SHOES_002", first.Payload["productId"])
	assert.Equal(t, "https://flipkart.com/woodland-shoes", first.Payload["url"])
	assert.Equal(t, "INR", index.upserted[1].Payload["currency"])
	assert.NotContains(t, index.upserted[1].Payload, "url")

	assert.Equal(t, domain.ProductAttributes{
		Name: "Woodland Men Camel Outdoor Shoes", Brand: "Woodland", Category: "Footwear", Price: 3199,
	}, embedder.attrs[0])

	require.Len(t, graph.writes, 1)
	assert.Equal(t, "WOODLAND_SHOES_002", graph.writes[0]["product_id"])
	assert.Equal(t, "560001", graph.writes[0]["postal_code"])
	assert.Equal(t, "2026-10-01", graph.writes[0]["last_updated"])
}

func TestCatalogSeeder_SeedWithoutGraph(t *testing.T) {
	index := &mockVectorIndex{}
	seeder := NewCatalogSeeder(&stubEmbedder{}, index, nil, nil)

	report, err := seeder.Seed(context.Background(), sampleCatalog())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 2, report.GraphSkipped)
}

func TestCatalogSeeder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.CatalogProduct)
	}{
		{"missing id", func(p *domain.CatalogProduct) { p.ProductID = " " }},
		{"missing name", func(p *domain.CatalogProduct) { p.Name = "" }},
		{"missing retailer", func(p *domain.CatalogProduct) { p.Retailer = "" }},
		{"negative price", func(p *domain.CatalogProduct) { p.Price = -1 }},
		{"bad currency", func(p *domain.CatalogProduct) { p.Currency = "RUPEES" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := sampleCatalog()
			tt.mutate(&products[1])
			index := &mockVectorIndex{}

			_, err := NewCatalogSeeder(&stubEmbedder{}, index, nil, nil).Seed(context.Background(), products)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Empty(t, index.upserted, "nothing is written when any product is invalid")
		})
	}
}

func TestCatalogSeeder_Errors(t *testing.T) {
	t.Run("index failure", func(t *testing.T) {
		index := &mockVectorIndex{upsertErr: domain.ErrVectorIndexNotConfigured}
		_, err := NewCatalogSeeder(&stubEmbedder{}, index, nil, nil).Seed(context.Background(), sampleCatalog())
		assert.ErrorIs(t, err, domain.ErrVectorIndexNotConfigured)
	})

	t.Run("graph failure keeps partial report", func(t *testing.T) {
		graph := &mockGraphStore{writeErr: errors.New("boom")}
		report, err := NewCatalogSeeder(&stubEmbedder{}, &mockVectorIndex{}, graph, nil).Seed(context.Background(), sampleCatalog())
		assert.Error(t, err)
		require.NotNil(t, report)
		assert.Equal(t, 2, report.Indexed)
		assert.Equal(t, 0, report.GraphWritten)
	})
}
