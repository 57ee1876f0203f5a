package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/logger"
)

// TitleNormalizer strips listing noise from retail product titles so that the
// same product sold under slightly different titles tokenizes the same way
type TitleNormalizer struct {
	log *zap.Logger
}

var (
	// Matches bracketed variant details like "(Aqua Surge, 8GB RAM, 128GB Storage)" or "[Pack of 2]"
	bracketedDetailPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)

	// Matches memory/storage specs like "8GB RAM", "128 GB", "1TB SSD", "5000mAh"
	capacityPattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(gb|tb|mb|mah)\b(\s*(ram|rom|storage|ssd|hdd))?`)

	// Matches size/quantity patterns like "500 g", "1.5 L", "250ml", "2 kg", "6.1 inch"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(kg|g|gm|gms|grams?|mg|ml|l|ltr|litres?|liters?|oz|lbs?|inch(es)?|in|cm|mm)\b`)

	// Matches pack/count patterns like "pack of 6", "6-pack", "24 count", "2 pcs"
	packCountPattern = regexp.MustCompile(`(?i)\bpack\s*of\s*\d+\b|\b\d+[-\s]*(pack|pk|count|ct|pcs|pieces?|units?)\b|\bset\s*of\s*\d+\b`)

	// Matches standalone numbers with no unit at the start or end
	standaloneNumberPattern = regexp.MustCompile(`[,\-|]\s*\d+(\.\d+)?\s*$|^\d+(\.\d+)?\s*[,\-|]`)

	multiSpacePattern = regexp.MustCompile(`\s+`)

	loneSeparatorPattern     = regexp.MustCompile(`\s+[,\-;:|/]+\s+`)
	trailingSeparatorPattern = regexp.MustCompile(`\s*[,\-;:|/]+\s*$`)
	leadingSeparatorPattern  = regexp.MustCompile(`^\s*[,\-;:|/]+\s*`)
)

// titleNoiseWords are marketing and listing terms that do not identify a product
var titleNoiseWords = map[string]bool{
	// Marketing terms
	"new":        true,
	"latest":     true,
	"bestseller": true,
	"offer":      true,
	"combo":      true,
	"deal":       true,
	"sale":       true,
	"premium":    true,
	"original":   true,
	"genuine":    true,
	"official":   true,
	"exclusive":  true,
	"edition":    true,

	// Listing terms
	"with":     true,
	"for":      true,
	"men":      true,
	"women":    true,
	"unisex":   true,
	"warranty": true,
	"free":     true,
	"delivery": true,

	// Packaging terms
	"pack":   true,
	"box":    true,
	"bag":    true,
	"bottle": true,
	"jar":    true,
	"pouch":  true,
	"carton": true,
}

// NewTitleNormalizer creates a new title normalizer
func NewTitleNormalizer(log *zap.Logger) *TitleNormalizer {
	return &TitleNormalizer{log: logger.OrNop(log)}
}

// Normalize removes variant details, capacities, sizes, pack counts and marketing
// words from a product title. The brand is prepended when it is not already present.
func (n *TitleNormalizer) Normalize(title, brand string) string {
	if strings.TrimSpace(title) == "" {
		return strings.TrimSpace(brand)
	}

	cleaned := normalizeTitleText(title)

	if brand != "" {
		if !strings.Contains(strings.ToLower(cleaned), strings.ToLower(brand)) {
			cleaned = strings.TrimSpace(brand + " " + cleaned)
		}
	}

	n.log.Debug("normalized title", zap.String("input", title), zap.String("output", cleaned))
	return cleaned
}

// normalizeTitleText is the brand-independent part of Normalize
func normalizeTitleText(title string) string {
	cleaned := bracketedDetailPattern.ReplaceAllString(title, " ")
	cleaned = capacityPattern.ReplaceAllString(cleaned, " ")
	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")
	cleaned = packCountPattern.ReplaceAllString(cleaned, " ")
	cleaned = standaloneNumberPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = cleanOrphanedPunctuation(cleaned)
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// removeNoiseWords drops marketing and listing terms, keeping original casing of the rest
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))

	for _, word := range words {
		cleanWord := strings.ToLower(strings.Trim(word, ",.!?;:-'\"|"))
		if !titleNoiseWords[cleanWord] {
			kept = append(kept, word)
		}
	}

	return strings.Join(kept, " ")
}

// cleanOrphanedPunctuation removes separators left alone after the other passes
func cleanOrphanedPunctuation(s string) string {
	result := loneSeparatorPattern.ReplaceAllString(s, " ")
	result = trailingSeparatorPattern.ReplaceAllString(result, "")
	result = leadingSeparatorPattern.ReplaceAllString(result, "")
	return result
}
