package usecase

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
)

var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]`)

// Token weight categories for scoring
const (
	weightModel       = 2.0 // Model identifiers mixing letters and digits (xm5, a15, s24)
	weightDefault     = 1.0 // Everything else
	fuzzyWeightFactor = 0.8 // Fuzzy matches get 80% of normal weight
)

// Scoring bonuses
const (
	brandMatchBonus     = 15.0 // Brand appears in the other title
	substringMatchBonus = 10.0 // One title contains the other
)

// stopWords are English stop words plus unit tokens left over after normalization
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true, "to": true,
	"by": true, "from": true, "is": true, "it": true, "as": true,
	"gb": true, "tb": true, "ram": true, "rom": true, "storage": true,
	"kg": true, "ml": true, "ltr": true, "pcs": true,
}

// MatchConfig holds configuration for the title matcher
type MatchConfig struct {
	MinConfidenceThreshold float64
	EnableFuzzyMatching    bool
	FuzzyEditDistance      int
}

// TitleMatcher scores how likely two retail titles name the same product.
// It annotates similarity hits for the research agent and re-anchors
// recommendations to the submitted cart lines.
type TitleMatcher struct {
	minConfidenceThreshold float64
	enableFuzzyMatching    bool
	fuzzyEditDistance      int
	log                    *zap.Logger
}

// NewTitleMatcher creates a new title matcher with the given configuration
func NewTitleMatcher(config MatchConfig, log *zap.Logger) *TitleMatcher {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = 40.0
	}

	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1
	}

	return &TitleMatcher{
		minConfidenceThreshold: threshold,
		enableFuzzyMatching:    config.EnableFuzzyMatching,
		fuzzyEditDistance:      fuzzyDist,
		log:                    logger.OrNop(log),
	}
}

// FindBestMatch returns the candidate title that best matches title.
// The best match is returned together with ErrLowConfidence when it scores below the threshold.
func (m *TitleMatcher) FindBestMatch(ctx context.Context, title, brand string, candidates []string) (*domain.MatchResult, error) {
	if strings.TrimSpace(title) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoMatch
	}

	var bestMatch *domain.MatchResult
	highestScore := -1.0

	for _, candidate := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		score, matchedTokens := m.calculateMatchScore(title, brand, candidate)
		m.log.Debug("title match",
			zap.String("title", title),
			zap.String("candidate", candidate),
			zap.Float64("score", score),
			zap.Strings("matched", matchedTokens))

		if score > highestScore {
			highestScore = score
			bestMatch = &domain.MatchResult{
				Title:         candidate,
				MatchScore:    score,
				MatchedTokens: matchedTokens,
			}
		}
	}

	if bestMatch.MatchScore < m.minConfidenceThreshold {
		return bestMatch, domain.ErrLowConfidence
	}
	return bestMatch, nil
}

// Score returns the 0-100 match score of two titles
func (m *TitleMatcher) Score(title, brand, other string) float64 {
	score, _ := m.calculateMatchScore(title, brand, other)
	return score
}

// calculateMatchScore combines:
//   - weighted coverage of the title's tokens by the other title (60%)
//   - coverage of the other title's tokens by the title (20%)
//   - Jaccard similarity (20%)
//
// plus brand and substring bonuses, capped at 100.
func (m *TitleMatcher) calculateMatchScore(title, brand, other string) (float64, []string) {
	cleanedTitle := normalizeTitleText(title)
	cleanedOther := normalizeTitleText(other)
	titleTokens := tokenize(cleanedTitle)
	otherTokens := tokenize(cleanedOther)

	if len(titleTokens) == 0 || len(otherTokens) == 0 {
		return 0, nil
	}

	titleCoverage, matchedTokens := m.weightedCoverage(titleTokens, otherTokens)
	otherCoverage, _ := m.weightedCoverage(otherTokens, titleTokens)

	exact, _ := findIntersection(titleTokens, otherTokens)
	jaccard := float64(exact) / float64(findUnion(titleTokens, otherTokens))

	score := (titleCoverage*0.60 + otherCoverage*0.20 + jaccard*0.20) * 100

	titleLower := strings.ToLower(cleanedTitle)
	otherLower := strings.ToLower(cleanedOther)

	if brand != "" && strings.Contains(otherLower, strings.ToLower(brand)) {
		score += brandMatchBonus
	}

	if len(titleLower) > 3 && (strings.Contains(otherLower, titleLower) || strings.Contains(titleLower, otherLower)) {
		score += substringMatchBonus
	}

	if score > 100 {
		score = 100
	}
	return score, matchedTokens
}

// weightedCoverage returns the weighted fraction of tokens found in against,
// counting fuzzy hits at a reduced weight when fuzzy matching is enabled
func (m *TitleMatcher) weightedCoverage(tokens, against []string) (float64, []string) {
	set := make(map[string]bool, len(against))
	for _, t := range against {
		set[t] = true
	}

	var total, hit float64
	var matched []string
	for _, token := range tokens {
		w := tokenWeight(token)
		total += w

		if set[token] {
			hit += w
			matched = append(matched, token)
			continue
		}

		if !m.enableFuzzyMatching {
			continue
		}
		for _, candidate := range against {
			if fuzzyTokenMatch(token, candidate, m.fuzzyEditDistance) {
				hit += w * fuzzyWeightFactor
				matched = append(matched, token)
				break
			}
		}
	}

	if total == 0 {
		return 0, nil
	}
	return hit / total, matched
}

// tokenWeight weights model identifiers above ordinary words
func tokenWeight(token string) float64 {
	var hasLetter, hasDigit bool
	for _, r := range token {
		if unicode.IsDigit(r) {
			hasDigit = true
		} else if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	if hasLetter && hasDigit {
		return weightModel
	}
	return weightDefault
}

// tokenize splits a string into normalized lowercase tokens.
// Removes punctuation, stop words and single-character tokens.
// Pure numbers are kept because model numbers ("Nord CE 3", "iPhone 15") identify products.
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) <= 1 && !isNumeric(word) {
			continue
		}
		if stopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Short tokens and numbers must match exactly
	if len(token1) < 4 || len(token2) < 4 || isNumeric(token1) || isNumeric(token2) {
		return false
	}

	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	m := len(r1)
	n := len(r2)

	// Two rows instead of the full matrix
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// findIntersection returns the count of common tokens and the list of matched tokens
func findIntersection(tokens1, tokens2 []string) (int, []string) {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range tokens2 {
		if set[t] && !seen[t] {
			matched = append(matched, t)
			seen[t] = true
		}
	}

	return len(matched), matched
}

// findUnion returns the count of unique tokens across both sets
func findUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
