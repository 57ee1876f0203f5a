package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cartgenie/backend/config"
	"github.com/cartgenie/backend/internal/app"
	httpDelivery "github.com/cartgenie/backend/internal/delivery/http"
	"github.com/cartgenie/backend/internal/domain"
	"github.com/cartgenie/backend/internal/infrastructure/llm"
	"github.com/cartgenie/backend/internal/infrastructure/webpage"
	"github.com/cartgenie/backend/internal/infrastructure/zyte"
	"github.com/cartgenie/backend/internal/logger"
	"github.com/cartgenie/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Server.Environment, cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	zlog.Info("starting CartGenie backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cacheType", cfg.Cache.Type))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Infrastructure
	embeddingCache, err := app.NewCache(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer embeddingCache.Close()

	vectorIndex := app.NewVectorIndex(cfg, zlog)
	graphStore := app.NewGraphStore(cfg, zlog)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := graphStore.Close(closeCtx); err != nil {
			zlog.Warn("closing graph store", zap.Error(err))
		}
	}()

	scraper := zyte.NewClient(cfg.Zyte.APIKey, cfg.Zyte.BaseURL, cfg.Zyte.Timeout, cfg.RateLimit.Zyte, zlog)
	fetcher := webpage.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, zlog)

	engine := llm.NewEngine(llm.EngineConfig{
		APIKey:            cfg.OpenAI.APIKey,
		BaseURL:           cfg.OpenAI.BaseURL,
		Model:             cfg.OpenAI.Model,
		Temperature:       cfg.OpenAI.Temperature,
		MaxIterations:     cfg.OpenAI.MaxIterations,
		RequestsPerMinute: cfg.OpenAI.RequestsPerMinute,
	}, zlog)

	logServiceStatus(cfg, zlog)

	// Usecases
	matcher := usecase.NewTitleMatcher(usecase.MatchConfig{
		MinConfidenceThreshold: cfg.Matching.MinConfidenceThreshold,
		EnableFuzzyMatching:    cfg.Matching.EnableFuzzyMatching,
	}, zlog.Named("matching"))
	embedder := app.NewEmbeddingGenerator(cfg, embeddingCache, zlog)
	extractor := usecase.NewProductExtractor(app.NewStructuredExtractor(cfg, zlog), zlog.Named("extraction"))

	tools := []domain.Tool{
		usecase.NewSimilaritySearchTool(embedder, vectorIndex, matcher, zlog.Named("tools")),
		usecase.NewPageFetchTool(scraper, fetcher, extractor, zlog.Named("tools")),
		usecase.NewPriceGraphTool(graphStore, zlog.Named("tools")),
	}
	optimizer := usecase.NewCartOptimizer(engine, tools, matcher, zlog.Named("optimizer"))

	// Delivery
	handler := httpDelivery.NewHandler(optimizer, zlog)
	router := httpDelivery.SetupRouter(cfg, handler, zlog)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// logServiceStatus reports which optional collaborators are configured
func logServiceStatus(cfg *config.Config, zlog *zap.Logger) {
	status := func(ok bool) string {
		if ok {
			return "configured"
		}
		return "NOT CONFIGURED"
	}
	zlog.Info("collaborators",
		zap.String("openai", status(cfg.OpenAI.APIKey != "")),
		zap.String("qdrant", status(cfg.Qdrant.Host != "")),
		zap.String("neo4j", status(cfg.Neo4j.URI != "" && cfg.Neo4j.User != "" && cfg.Neo4j.Password != "")),
		zap.String("zyte", status(cfg.Zyte.APIKey != "")),
		zap.Bool("aiExtraction", cfg.OpenAI.ExtractionEnabled && cfg.OpenAI.APIKey != ""))

	if cfg.OpenAI.APIKey == "" {
		zlog.Warn("OpenAI API key not set: cart optimization requests will fail")
	}
}
