package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

var priceTokenRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParsePrice turns display text such as "₹25,999.00" or "$1,299" into a number.
// Thousands separators are stripped and the first decimal token is parsed.
// Text without a number yields 0.
func ParsePrice(text string) float64 {
	if text == "" {
		return 0
	}

	cleaned := strings.ReplaceAll(text, ",", "")
	token := priceTokenRegex.FindString(cleaned)
	if token == "" {
		return 0
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return value
}

// formatPrice renders a price for agent-facing summaries
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
