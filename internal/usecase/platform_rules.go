package usecase

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Platform identifies the page layout family a product page belongs to
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
	PlatformGrocery  Platform = "grocery"
	PlatformFood     Platform = "food_delivery"
	PlatformGeneric  Platform = "generic"
)

// selector is one CSS selector; when attr is set its value is read instead of the text
type selector struct {
	css  string
	attr string
}

// fieldRules holds the ordered selector list for each product field.
// The first selector yielding non-empty text wins.
type fieldRules struct {
	name         []selector
	brand        []selector
	price        []selector
	sku          []selector
	category     []selector
	availability []selector
}

// platformDetector recognises a platform from page identifiers or DOM markers
type platformDetector struct {
	platform    Platform
	identifiers []string
	markers     []string
}

var platformDetectors = []platformDetector{
	{
		platform:    PlatformAmazon,
		identifiers: []string{"amazon.in", "amazon.com", "amazon.co"},
		markers:     []string{"#productTitle", "#dp-container", "#centerCol"},
	},
	{
		platform:    PlatformFlipkart,
		identifiers: []string{"flipkart.com", "flipkart"},
		markers:     []string{"span.VU-ZEz", "span.B_NuCI", "div.Nx9bqj"},
	},
	{
		platform:    PlatformGrocery,
		identifiers: []string{"bigbasket.com", "bigbasket", "blinkit.com"},
		markers:     []string{`h1[class*="Description___StyledH"]`, `[qa="pd-name"]`},
	},
	{
		platform:    PlatformFood,
		identifiers: []string{"swiggy.com", "zomato.com", "swiggy", "zomato"},
		markers:     []string{`[data-testid="item-name"]`, `[class*="styles_itemName"]`},
	},
}

var platformRules = map[Platform]fieldRules{
	PlatformAmazon: {
		name: []selector{
			{css: "#productTitle"},
			{css: "#title span"},
			{css: "h1#title"},
		},
		brand: []selector{
			{css: "#bylineInfo"},
			{css: "a#brand"},
			{css: "tr.po-brand td.po-break-word"},
		},
		price: []selector{
			{css: "#corePrice_feature_div .a-price .a-offscreen"},
			{css: "#corePriceDisplay_desktop_feature_div .a-price .a-offscreen"},
			{css: "#priceblock_dealprice"},
			{css: "#priceblock_ourprice"},
			{css: ".a-price .a-offscreen"},
			{css: "span.a-price-whole"},
		},
		sku: []selector{
			{css: "input#ASIN", attr: "value"},
			{css: "[data-asin]", attr: "data-asin"},
		},
		category: []selector{
			{css: "#wayfinding-breadcrumbs_feature_div li:last-child a"},
		},
		availability: []selector{
			{css: "#availability span"},
			{css: "#availability"},
		},
	},
	PlatformFlipkart: {
		name: []selector{
			{css: "span.VU-ZEz"},
			{css: "span.B_NuCI"},
			{css: "h1.yhB1nd span"},
		},
		brand: []selector{
			{css: "span.mEh187"},
			{css: "span.G6XhRU"},
		},
		price: []selector{
			{css: "div.Nx9bqj.CxhGGd"},
			{css: "div.Nx9bqj"},
			{css: "div._30jeq3._16Jk6d"},
			{css: "div._30jeq3"},
		},
		category: []selector{
			{css: "div._7dPnhA a.R0cyWM:last-child"},
		},
		availability: []selector{
			{css: "div.Z8JjpR"},
			{css: "div._16FRp0"},
		},
	},
	PlatformGrocery: {
		name: []selector{
			{css: `h1[class*="Description___StyledH"]`},
			{css: `[qa="pd-name"]`},
			{css: "h1"},
		},
		brand: []selector{
			{css: `a[class*="Description___StyledLink"]`},
			{css: `[qa="pd-brand"]`},
		},
		price: []selector{
			{css: `td[class*="Description___StyledTd"]`},
			{css: `[qa="pd-price"]`},
			{css: `[class*="Pricing___StyledLabel"]`},
		},
		category: []selector{
			{css: `[class*="Breadcrumb"] a:last-child`},
		},
		availability: []selector{
			{css: `[class*="NotifyMe"]`},
			{css: `[qa="pd-stock"]`},
		},
	},
	PlatformFood: {
		name: []selector{
			{css: `[data-testid="item-name"]`},
			{css: `[class*="styles_itemName"]`},
			{css: ".itemNameText"},
		},
		brand: []selector{
			{css: `[data-testid="restaurant-name"]`},
			{css: `[class*="RestaurantName"]`},
			{css: "h1"},
		},
		price: []selector{
			{css: `[data-testid="item-price"]`},
			{css: `[class*="styles_itemPrice"]`},
			{css: `[class*="rupee"]`},
			{css: ".price"},
		},
		category: []selector{
			{css: `[data-testid="item-category"]`},
			{css: `[class*="styles_categoryName"]`},
		},
		availability: []selector{
			{css: `[data-testid="item-availability"]`},
		},
	},
}

// detectPlatform checks page identifiers first, then DOM markers
func detectPlatform(rawHTML string, doc *goquery.Document) Platform {
	lower := strings.ToLower(rawHTML)
	for _, d := range platformDetectors {
		for _, id := range d.identifiers {
			if strings.Contains(lower, id) {
				return d.platform
			}
		}
	}

	for _, d := range platformDetectors {
		for _, marker := range d.markers {
			if doc.Find(marker).Length() > 0 {
				return d.platform
			}
		}
	}

	return PlatformGeneric
}

// applyRules evaluates every field's selector list against the document
func applyRules(doc *goquery.Document, rules fieldRules) (name, brand, priceText, sku, category, availability string) {
	return firstMatch(doc, rules.name),
		cleanBrand(firstMatch(doc, rules.brand)),
		firstMatch(doc, rules.price),
		firstMatch(doc, rules.sku),
		firstMatch(doc, rules.category),
		firstMatch(doc, rules.availability)
}

// firstMatch returns the first non-empty value produced by the selector list
func firstMatch(doc *goquery.Document, selectors []selector) string {
	for _, sel := range selectors {
		var value string
		doc.Find(sel.css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if sel.attr != "" {
				value, _ = s.Attr(sel.attr)
			} else {
				value = s.Text()
			}
			value = collapseWhitespace(value)
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// cleanBrand strips storefront phrasing such as "Visit the Sony Store" or "Brand: Sony"
func cleanBrand(brand string) string {
	b := strings.TrimSpace(brand)
	lower := strings.ToLower(b)
	if strings.HasPrefix(lower, "visit the ") && strings.HasSuffix(lower, " store") {
		b = b[len("visit the ") : len(b)-len(" store")]
	}
	if strings.HasPrefix(strings.ToLower(b), "brand:") {
		b = b[len("brand:"):]
	}
	return strings.TrimSpace(b)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
