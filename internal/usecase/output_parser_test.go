package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartgenie/backend/internal/domain"
)

func TestStripMarkdownFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fence on one line", in: "```json {\"a\":1}```", want: `{"a":1}`},
		{name: "surrounding prose", in: "Here is the result:\n```json\n{\"a\":1}\n```\nDone.", want: `{"a":1}`},
		{name: "unterminated fence", in: "```json\n{\"a\":1}", want: `{"a":1}`},
		{name: "no fence", in: "  {\"a\":1}  ", want: `{"a":1}`},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdownFences(tt.in))
		})
	}
}

func TestParseOptimizationResult(t *testing.T) {
	t.Run("decodes fenced result", func(t *testing.T) {
		raw := "```json\n" + `{
  "originalTotal": 25000,
  "optimizedTotal": 23999,
  "currency": "INR",
  "totalSavings": 1001,
  "recommendations": [{
    "originalItem": {"productTitle": "OnePlus Nord CE 3", "quantity": 1, "price": 25000, "currency": "INR"},
    "cheapestAlternative": {"productTitle": "OnePlus Nord CE 3 5G", "price": 23999, "currency": "INR", "retailer": "Flipkart", "url": "https://www.flipkart.com/p/1"}
  }]
}` + "\n```"

		got, err := ParseOptimizationResult(raw)
		require.NoError(t, err)
		assert.Equal(t, 25000.0, got.OriginalTotal)
		assert.Equal(t, "INR", got.Currency)
		require.Len(t, got.Recommendations, 1)
		assert.Equal(t, "Flipkart", got.Recommendations[0].CheapestAlternative.Retailer)
	})

	t.Run("loosely typed originalItem", func(t *testing.T) {
		tests := []struct {
			name         string
			item         string
			wantQuantity int
			wantPrice    float64
		}{
			{"float quantity", `{"productTitle":"Amul Butter 500g","quantity":1.0,"price":280}`, 1, 280},
			{"string quantity and price", `{"productTitle":"Amul Butter 500g","quantity":"2","price":"₹300.00"}`, 2, 300},
			{"null fields", `{"productTitle":"Amul Butter 500g","quantity":null,"price":null}`, 0, 0},
			{"title only", `{"productTitle":"Amul Butter 500g"}`, 0, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				raw := `{"recommendations":[{"originalItem":` + tt.item +
					`,"cheapestAlternative":{"productTitle":"Amul Butter 500g","price":265,"currency":"INR","retailer":"BigBasket"}}]}`

				got, err := ParseOptimizationResult(raw)
				require.NoError(t, err)
				require.Len(t, got.Recommendations, 1)
				item := got.Recommendations[0].OriginalItem
				assert.Equal(t, "Amul Butter 500g", item.ProductTitle)
				assert.Equal(t, tt.wantQuantity, item.Quantity)
				assert.Equal(t, tt.wantPrice, item.Price)
				assert.Equal(t, 265.0, got.Recommendations[0].CheapestAlternative.Price)
			})
		}
	})

	t.Run("empty recommendations are valid", func(t *testing.T) {
		got, err := ParseOptimizationResult(`{"originalTotal":10,"optimizedTotal":10,"currency":"USD","totalSavings":0,"recommendations":[]}`)
		require.NoError(t, err)
		assert.Empty(t, got.Recommendations)
	})

	malformed := []struct {
		name string
		raw  string
	}{
		{name: "prose", raw: "I could not find any cheaper products."},
		{name: "empty", raw: "   "},
		{name: "array", raw: `[{"recommendations":[]}]`},
		{name: "missing recommendations", raw: `{"status":"ok"}`},
		{name: "null", raw: "null"},
		{name: "wrong types", raw: `{"recommendations":[{"cheapestAlternative":{"price":"cheap"}}]}`},
		{name: "truncated", raw: "```json\n{\"originalTotal\": 25000, \"recommendations\": [\n```"},
	}

	for _, tt := range malformed {
		t.Run("malformed "+tt.name, func(t *testing.T) {
			_, err := ParseOptimizationResult(tt.raw)
			if !errors.Is(err, domain.ErrMalformedOutput) {
				t.Errorf("error = %v, want ErrMalformedOutput", err)
			}
		})
	}
}
