package domain

// ProductSignal is the normalized product record recovered from a page.
// Every field is always set; missing data keeps its zero value.
type ProductSignal struct {
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	Price        float64 `json:"price"`
	SKU          string  `json:"sku"`
	Category     string  `json:"category"`
	Availability string  `json:"availability"`
	// PriceText is the price as the source reported it, before normalization into Price
	PriceText string `json:"-"`
}

// EmptyProductSignal returns the record used when nothing could be extracted
func EmptyProductSignal() ProductSignal {
	return ProductSignal{}
}

// IsEmpty reports whether no field was recovered
func (p ProductSignal) IsEmpty() bool {
	return p == ProductSignal{}
}

// ProductAttributes is the input to the embedding generator
type ProductAttributes struct {
	Name     string
	Brand    string
	Category string
	Price    float64
}

// CatalogProduct is a known product with one retailer offer, used for seeding the stores
type CatalogProduct struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Category   string  `json:"category"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Retailer   string  `json:"retailer"`
	URL        string  `json:"url"`
	PostalCode string  `json:"postalCode"`
}

// ScoredPoint is one nearest-neighbour hit from the vector index
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

// VectorPoint is one entry written to the vector index
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// MatchResult represents the result of a title matching operation
type MatchResult struct {
	Title         string   `json:"title"`
	MatchScore    float64  `json:"matchScore"`
	MatchedTokens []string `json:"matchedTokens,omitempty"`
}
