package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/metrics"
)

// CartOptimizer coordinates the research and analysis stages for one cart
// and turns the final output into an OptimizationResult
type CartOptimizer struct {
	engine        domain.ReasoningEngine
	researchTools []domain.Tool
	matcher       *TitleMatcher
	log           *zap.Logger
}

// NewCartOptimizer creates the coordinator. researchTools are given to the research agent.
func NewCartOptimizer(engine domain.ReasoningEngine, researchTools []domain.Tool, matcher *TitleMatcher, log *zap.Logger) *CartOptimizer {
	if matcher == nil {
		matcher = NewTitleMatcher(MatchConfig{EnableFuzzyMatching: true}, log)
	}
	return &CartOptimizer{
		engine:        engine,
		researchTools: researchTools,
		matcher:       matcher,
		log:           logger.OrNop(log),
	}
}

// Optimize runs the pipeline for a validated cart.
// Errors wrap ErrPipelineFailed or ErrMalformedOutput.
func (o *CartOptimizer) Optimize(ctx context.Context, cart *domain.Cart) (*domain.OptimizationResult, error) {
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	start := time.Now()
	defer func() {
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	cartContext, err := buildCartContext(cart)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrPipelineFailed, err)
	}

	crew := NewCrew(o.engine, o.log,
		NewResearchTask(NewResearchAgent(o.researchTools...), cartContext),
		NewAnalysisTask(NewAnalysisAgent(), cartContext),
	)

	o.log.Info("optimizing cart",
		zap.String("sourceRetailer", cart.SourceRetailer),
		zap.String("country", cart.UserContext.Country),
		zap.Int("items", len(cart.Items)))

	output, err := crew.Kickoff(ctx)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrPipelineFailed, err)
	}

	parsed, err := ParseOptimizationResult(output)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("malformed").Inc()
		o.log.Warn("analysis output is not a valid result", zap.Error(err), zap.String("output", truncate(output, 500)))
		return nil, err
	}

	result := o.reconcile(ctx, cart, parsed)
	metrics.PipelineRuns.WithLabelValues("success").Inc()
	o.log.Info("cart optimized",
		zap.Float64("originalTotal", result.OriginalTotal),
		zap.Float64("totalSavings", result.TotalSavings),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// buildCartContext renders the request context shared by both tasks
func buildCartContext(cart *domain.Cart) (string, error) {
	userContext, err := json.Marshal(cart.UserContext)
	if err != nil {
		return "", err
	}
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("User Context: %s\nSource Retailer: %s\nCart Items: %s",
		userContext, cart.SourceRetailer, items), nil
}

// reconcile anchors each recommendation to the submitted cart line it refers to,
// keeps only strictly cheaper same-currency alternatives (the cheapest per line),
// and recomputes the totals from the cart. The result currency is that of the
// first cart line; lines in another currency are excluded from the totals.
func (o *CartOptimizer) reconcile(ctx context.Context, cart *domain.Cart, parsed *domain.OptimizationResult) *domain.OptimizationResult {
	currency := cart.Items[0].Currency

	best := make(map[int]domain.Candidate)
	for _, rec := range parsed.Recommendations {
		idx := o.matchCartItem(ctx, cart, rec.OriginalItem, best)
		if idx < 0 {
			o.log.Warn("dropping recommendation for unknown cart item", zap.String("title", rec.OriginalItem.ProductTitle))
			continue
		}
		item := cart.Items[idx]

		alt := rec.CheapestAlternative
		alt.Currency = strings.ToUpper(strings.TrimSpace(alt.Currency))
		if alt.Currency == "" {
			alt.Currency = item.Currency
		}
		if alt.Currency != item.Currency {
			o.log.Warn("dropping recommendation in another currency",
				zap.String("title", item.ProductTitle),
				zap.String("currency", alt.Currency))
			continue
		}
		if alt.Price <= 0 || alt.Price >= item.Price {
			o.log.Debug("dropping recommendation that is not cheaper",
				zap.String("title", item.ProductTitle),
				zap.Float64("price", item.Price),
				zap.Float64("alternative", alt.Price))
			continue
		}
		if prev, ok := best[idx]; ok && prev.Price <= alt.Price {
			continue
		}
		best[idx] = alt
	}

	result := &domain.OptimizationResult{
		Currency:        currency,
		Recommendations: []domain.Recommendation{},
	}

	var original, optimized float64
	for i, item := range cart.Items {
		if item.Currency != currency {
			o.log.Warn("cart item currency differs from cart currency, excluded from totals",
				zap.String("title", item.ProductTitle),
				zap.String("currency", item.Currency))
			continue
		}

		original += item.Subtotal()
		alt, ok := best[i]
		if !ok {
			optimized += item.Subtotal()
			continue
		}
		optimized += alt.Price * float64(item.Quantity)
		result.Recommendations = append(result.Recommendations, domain.Recommendation{
			OriginalItem:        item,
			CheapestAlternative: alt,
		})
	}

	result.OriginalTotal = roundCents(original)
	result.OptimizedTotal = roundCents(optimized)
	result.TotalSavings = roundCents(original - optimized)
	return result
}

// matchCartItem returns the index of the cart line ref refers to, or -1.
// Exact title matches take precedence over fuzzy ones.
func (o *CartOptimizer) matchCartItem(ctx context.Context, cart *domain.Cart, ref domain.CartItem, claimed map[int]domain.Candidate) int {
	title := strings.TrimSpace(ref.ProductTitle)
	if title == "" {
		return -1
	}

	var lines []int
	titles := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		titles[i] = item.ProductTitle
		if strings.EqualFold(strings.TrimSpace(item.ProductTitle), title) {
			lines = append(lines, i)
		}
	}

	if len(lines) == 0 {
		match, err := o.matcher.FindBestMatch(ctx, title, "", titles)
		if err != nil {
			if !errors.Is(err, domain.ErrLowConfidence) {
				o.log.Debug("title matching failed", zap.Error(err))
			}
			return -1
		}
		for i, t := range titles {
			if t == match.Title {
				lines = append(lines, i)
			}
		}
	}
	return pickCartLine(cart, lines, ref, claimed)
}

// pickCartLine chooses among lines sharing a title: agreeing price counts most,
// then agreeing quantity, then not yet holding a recommendation. Ties go to the
// earliest line.
func pickCartLine(cart *domain.Cart, lines []int, ref domain.CartItem, claimed map[int]domain.Candidate) int {
	best, bestScore := -1, -1
	for _, i := range lines {
		item := cart.Items[i]
		score := 0
		if ref.Price > 0 && math.Abs(item.Price-ref.Price) < 0.005 {
			score += 4
		}
		if ref.Quantity > 0 && item.Quantity == ref.Quantity {
			score += 2
		}
		if _, taken := claimed[i]; !taken {
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "..."
}
