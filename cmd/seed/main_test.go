package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleProducts(t *testing.T) {
	products := sampleProducts()
	require.Len(t, products, 6)

	seen := map[string]bool{}
	for _, p := range products {
		assert.False(t, seen[p.ProductID], "duplicate id %s", p.ProductID)
		seen[p.ProductID] = true
		assert.Equal(t, "INR", p.Currency)
		assert.Positive(t, p.Price)
	}
}

func TestLoadProducts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"productId":"P1","name":"Widget","price":10,"currency":"USD","retailer":"Shop","postalCode":"94105"}]`), 0o600))

	products, err := loadProducts(path)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "P1", products[0].ProductID)
	assert.Equal(t, "94105", products[0].PostalCode)

	_, err = loadProducts(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
