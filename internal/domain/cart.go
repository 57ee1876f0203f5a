package domain

import "strings"

// CartItem is one validated line of the shopping cart
type CartItem struct {
	ProductTitle string  `json:"productTitle"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	URL          string  `json:"url,omitempty"`
}

// Subtotal returns price times quantity
func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// UserContext carries the shopper's location
type UserContext struct {
	Country    string `json:"country" binding:"required,len=2"`
	PostalCode string `json:"postalCode" binding:"required,max=10"`
}

// CartItemRequest is the wire form of a cart line.
// Quantity and Price are pointers so that absent and zero can be told apart.
type CartItemRequest struct {
	ProductTitle string   `json:"productTitle" binding:"required,max=500"`
	Quantity     *int     `json:"quantity" binding:"omitempty,min=1"`
	Price        *float64 `json:"price" binding:"required,min=0"`
	Currency     string   `json:"currency" binding:"required,len=3"`
	URL          string   `json:"url,omitempty" binding:"omitempty,url"`
}

// OptimizeCartRequest is the body of an optimize-cart call
type OptimizeCartRequest struct {
	UserContext    UserContext       `json:"userContext"`
	SourceRetailer string            `json:"sourceRetailer" binding:"required,max=100"`
	Items          []CartItemRequest `json:"items" binding:"required,min=1,dive"`
}

// Cart is the validated, immutable form of an optimize-cart request
type Cart struct {
	UserContext    UserContext
	SourceRetailer string
	Items          []CartItem
}

// ToCart applies defaults and returns the validated cart
func (r *OptimizeCartRequest) ToCart() *Cart {
	items := make([]CartItem, 0, len(r.Items))
	for _, in := range r.Items {
		item := CartItem{
			ProductTitle: strings.TrimSpace(in.ProductTitle),
			Quantity:     1,
			Currency:     strings.ToUpper(in.Currency),
			URL:          in.URL,
		}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if in.Price != nil {
			item.Price = *in.Price
		}
		items = append(items, item)
	}

	return &Cart{
		UserContext: UserContext{
			Country:    strings.ToUpper(r.UserContext.Country),
			PostalCode: r.UserContext.PostalCode,
		},
		SourceRetailer: r.SourceRetailer,
		Items:          items,
	}
}

// Candidate is one discovered offer for a product at a retailer
type Candidate struct {
	ProductTitle string  `json:"productTitle"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Retailer     string  `json:"retailer"`
	URL          string  `json:"url"`
}

// Recommendation pairs a cart line with its cheapest alternative
type Recommendation struct {
	OriginalItem        CartItem  `json:"originalItem"`
	CheapestAlternative Candidate `json:"cheapestAlternative"`
}

// OptimizationResult is the response of an optimize-cart call
type OptimizationResult struct {
	OriginalTotal   float64          `json:"originalTotal"`
	OptimizedTotal  float64          `json:"optimizedTotal"`
	Currency        string           `json:"currency"`
	TotalSavings    float64          `json:"totalSavings"`
	Recommendations []Recommendation `json:"recommendations"`
}
