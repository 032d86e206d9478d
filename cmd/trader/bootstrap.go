package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"orb-news-trader/internal/broker/alpaca"
	"orb-news-trader/internal/broker/brokerobs"
	"orb-news-trader/internal/engine"
	"orb-news-trader/internal/engine/engineobs"
	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/news"
	"orb-news-trader/internal/queue"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/trace"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Initialize tracer
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("TRADER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeBroker initializes and returns the broker instance with observability
func initializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	brk := alpaca.New(alpaca.Params{
		Mode:      cfg.Mode,
		APIKey:    os.Getenv("APCA_API_KEY_ID"),
		SecretKey: os.Getenv("APCA_API_SECRET_KEY"),
		BaseURL:   os.Getenv("APCA_API_BASE_URL"),
		DataURL:   os.Getenv("APCA_DATA_BASE_URL"),
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	// Wrap with observability middleware
	return brokerobs.Wrap(brk)
}

// initializePriceSource selects the quote or delayed-bar price source
func initializePriceSource(ctx context.Context, cfg *store.Config, brk interfaces.Broker) interfaces.PriceSource {
	if cfg.PriceSource == "DELAYED" {
		logger.Info(ctx, "Using delayed minute-bar prices")
		return &alpaca.DelayedPriceSource{Broker: brk}
	}
	logger.Info(ctx, "Using real-time quote midpoint prices")
	return &alpaca.QuotePriceSource{Broker: brk}
}

// initializeFeed returns the news feed: the API feed with scraper fallback
// when a key is configured, the scraper alone otherwise
func initializeFeed(ctx context.Context, cfg *store.Config) interfaces.NewsFeed {
	scraper := news.NewScraper(15 * time.Second)

	apiKey := os.Getenv("NEWS_API_KEY")
	if apiKey == "" {
		logger.Warn(ctx, "NEWS_API_KEY not set - falling back to headline scraping only")
		return scraper
	}

	return &news.FallbackFeed{
		Primary:   news.NewAPIFeed(apiKey, os.Getenv("NEWS_API_BASE_URL"), 15*time.Second),
		Secondary: scraper,
	}
}

// buildTrader wires the full engine stack and returns it wrapped with
// observability
func buildTrader(cfg *store.Config, brk interfaces.Broker, prices interfaces.PriceSource, feed interfaces.NewsFeed, docs store.DocumentStore) interfaces.Engine {
	classifier := news.NewLLMClassifier(cfg)

	ranges := engine.NewRangeCalculator(brk, prices, docs, cfg)
	sentiment := engine.NewSentimentAggregator(feed, classifier, docs, cfg)
	executor := engine.NewExecutor(brk, prices, docs, cfg)

	tracked := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		tracked[s] = true
	}
	tq := queue.New(docs)
	processor := queue.NewProcessor(tq, brk, feed, classifier, executor, func(companies []string) []string {
		return engine.MatchSymbols(companies, tracked)
	})

	trader := engine.NewTrader(brk, ranges, sentiment, executor, tq, processor, cfg)

	// Wrap with observability middleware
	return engineobs.Wrap(trader)
}
