package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"

	"github.com/cartgenie/backend/internal/domain"
)

// mockStructuredExtractor is a mock implementation of domain.StructuredExtractor
type mockStructuredExtractor struct {
	signal      *domain.ProductSignal
	err         error
	shouldPanic bool
	calls       int
}

func (m *mockStructuredExtractor) ExtractProduct(ctx context.Context, rawHTML string) (*domain.ProductSignal, error) {
	m.calls++
	if m.shouldPanic {
		panic("extraction service exploded")
	}
	return m.signal, m.err
}

const amazonPage = `<html><head><link rel="canonical" href="https://www.amazon.in/dp/B0C7V7VGXZ"/></head><body>
<span id="productTitle">  OnePlus Nord CE 3 5G (Aqua Surge, 8GB RAM, 128GB Storage)  </span>
<a id="bylineInfo">Visit the OnePlus Store</a>
<div id="corePrice_feature_div"><span class="a-price"><span class="a-offscreen">₹24,999.00</span></span></div>
<input id="ASIN" value="B0C7V7VGXZ"/>
<div id="availability"><span> In stock </span></div>
</body></html>`

func TestProductExtractor_EmptyInput(t *testing.T) {
	svc := &mockStructuredExtractor{signal: &domain.ProductSignal{Name: "should not be used"}}
	e := NewProductExtractor(svc, nil)

	for _, in := range []string{"", "   ", "\n\t"} {
		got := e.Extract(context.Background(), in)
		assert.Equal(t, domain.EmptyProductSignal(), got)
	}
	assert.Equal(t, 0, svc.calls, "structured service must not be called for empty input")
}

func TestProductExtractor_StructuredServiceFirst(t *testing.T) {
	svc := &mockStructuredExtractor{signal: &domain.ProductSignal{Name: "  OnePlus   Nord CE 3 ", Brand: "OnePlus", Price: 24999}}
	e := NewProductExtractor(svc, nil)

	got := e.Extract(context.Background(), amazonPage)

	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, "OnePlus Nord CE 3", got.Name)
	assert.Equal(t, 24999.0, got.Price)
}

func TestProductExtractor_StructuredServicePriceText(t *testing.T) {
	tests := []struct {
		name      string
		priceText string
		want      float64
	}{
		{"currency and separators", "₹1,299.00", 1299},
		{"plain number", "26990", 26990},
		{"dollar with space", "$ 49.99", 49.99},
		{"no digits", "Out of stock", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockStructuredExtractor{signal: &domain.ProductSignal{Name: "Sony WH-1000XM5", PriceText: tt.priceText}}
			e := NewProductExtractor(svc, nil)

			got := e.Extract(context.Background(), amazonPage)

			assert.Equal(t, "Sony WH-1000XM5", got.Name)
			assert.Equal(t, tt.want, got.Price)
			assert.Empty(t, got.PriceText)
		})
	}
}

func TestProductExtractor_FallsBackWhenServiceFails(t *testing.T) {
	tests := []struct {
		name string
		svc  *mockStructuredExtractor
	}{
		{name: "service error", svc: &mockStructuredExtractor{err: errors.New("upstream 500")}},
		{name: "service returns no name", svc: &mockStructuredExtractor{signal: &domain.ProductSignal{Brand: "OnePlus"}}},
		{name: "service returns nil", svc: &mockStructuredExtractor{}},
		{name: "service panics", svc: &mockStructuredExtractor{shouldPanic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewProductExtractor(tt.svc, nil)
			got := e.Extract(context.Background(), amazonPage)
			assert.Equal(t, "OnePlus Nord CE 3 5G (Aqua Surge, 8GB RAM, 128GB Storage)", got.Name)
			assert.Equal(t, 24999.0, got.Price)
		})
	}
}

func TestProductExtractor_PlatformRules(t *testing.T) {
	tests := []struct {
		name string
		html string
		want domain.ProductSignal
	}{
		{
			name: "marketplace A by identifier",
			html: amazonPage,
			want: domain.ProductSignal{
				Name:         "OnePlus Nord CE 3 5G (Aqua Surge, 8GB RAM, 128GB Storage)",
				Brand:        "OnePlus",
				Price:        24999.0,
				SKU:          "B0C7V7VGXZ",
				Availability: "In stock",
			},
		},
		{
			name: "marketplace B by DOM marker",
			html: `<html><body>
<span class="mEh187">Sony</span>
<span class="VU-ZEz">Sony WH-1000XM5 Bluetooth Headset</span>
<div class="Nx9bqj CxhGGd">₹29,990</div>
</body></html>`,
			want: domain.ProductSignal{
				Name:  "Sony WH-1000XM5 Bluetooth Headset",
				Brand: "Sony",
				Price: 29990.0,
			},
		},
		{
			name: "grocery delivery",
			html: `<html><head><link rel="canonical" href="https://www.bigbasket.com/pd/40075520/"/></head><body>
<a class="Description___StyledLink-sc-82a36a-1">Happilo</a>
<h1 class="Description___StyledH-sc-82a36a-0">Happilo Premium California Almonds, 200 g</h1>
<table><tr><td class="Description___StyledTd-sc-82a36a-4">Price: ₹225</td></tr></table>
</body></html>`,
			want: domain.ProductSignal{
				Name:  "Happilo Premium California Almonds, 200 g",
				Brand: "Happilo",
				Price: 225.0,
			},
		},
		{
			name: "food delivery",
			html: `<html><head><meta property="og:url" content="https://www.swiggy.com/restaurants/punjabi-dhaba"/></head><body>
<h1 data-testid="restaurant-name">Punjabi Dhaba</h1>
<div data-testid="item-name">Paneer Butter Masala</div>
<span data-testid="item-price">₹ 289</span>
</body></html>`,
			want: domain.ProductSignal{
				Name:  "Paneer Butter Masala",
				Brand: "Punjabi Dhaba",
				Price: 289.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewProductExtractor(nil, nil)
			got := e.Extract(context.Background(), tt.html)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductExtractor_GenericHeuristics(t *testing.T) {
	tests := []struct {
		name string
		html string
		want domain.ProductSignal
	}{
		{
			name: "json-ld product",
			html: `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":"Woodland Men's Leather Shoes",
 "brand":{"@type":"Brand","name":"Woodland"},"sku":"WL-1","category":"Footwear",
 "offers":{"@type":"Offer","price":"2495.00","priceCurrency":"INR","availability":"https://schema.org/InStock"}}
</script></head><body></body></html>`,
			want: domain.ProductSignal{
				Name:         "Woodland Men's Leather Shoes",
				Brand:        "Woodland",
				Price:        2495.0,
				SKU:          "WL-1",
				Category:     "Footwear",
				Availability: "InStock",
			},
		},
		{
			name: "json-ld inside graph",
			html: `<html><head><script type="application/ld+json">
{"@graph":[{"@type":"WebPage","name":"Shop"},{"@type":["Product"],"name":"Apple iPhone 15","offers":[{"price":79900}]}]}
</script></head><body></body></html>`,
			want: domain.ProductSignal{
				Name:  "Apple iPhone 15",
				Price: 79900.0,
			},
		},
		{
			name: "class name cascade",
			html: `<html><body>
<div class="product-title">Organic Almonds</div>
<div class="brand-name">Happilo</div>
<span class="sale-price">$12.99</span>
<span class="stock-status">Only 3 left</span>
</body></html>`,
			want: domain.ProductSignal{
				Name:         "Organic Almonds",
				Brand:        "Happilo",
				Price:        12.99,
				Availability: "Only 3 left",
			},
		},
		{
			name: "detected platform without a name falls through to generic",
			html: `<html><head><link rel="canonical" href="https://www.amazon.in/gp/help"/></head><body><h1>Help Center</h1></body></html>`,
			want: domain.ProductSignal{
				Name: "Help Center",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewProductExtractor(nil, nil)
			got := e.Extract(context.Background(), tt.html)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductExtractor_NothingRecognisable(t *testing.T) {
	e := NewProductExtractor(nil, nil)
	got := e.Extract(context.Background(), "<html><body><p>hello</p></body></html>")
	assert.True(t, got.IsEmpty())
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		html string
		want Platform
	}{
		{html: `<a href="https://www.flipkart.com/x">x</a>`, want: PlatformFlipkart},
		{html: `<span id="productTitle">x</span>`, want: PlatformAmazon},
		{html: `<div qa="pd-name">x</div>`, want: PlatformGrocery},
		{html: `<p>zomato order</p>`, want: PlatformFood},
		{html: `<p>nothing</p>`, want: PlatformGeneric},
	}

	for _, tt := range tests {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(tt.html))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := detectPlatform(tt.html, doc); got != tt.want {
			t.Errorf("detectPlatform(%q) = %v, want %v", tt.html, got, tt.want)
		}
	}
}

func TestCleanBrand(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Visit the Sony Store", "Sony"},
		{"Brand: Woodland", "Woodland"},
		{"  Apple ", "Apple"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanBrand(tt.in); got != tt.want {
			t.Errorf("cleanBrand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
