// One-shot trade queue flush: revalidates and executes pending trades if
// the market is open, then exits. Useful from cron right after the open.
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
	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/news"
	"orb-news-trader/internal/queue"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/trace"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "tracer init: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = trace.Shutdown(sctx)
		_ = logger.Shutdown(sctx)
	}()

	path := os.Getenv("TRADER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		os.Exit(1)
	}

	docs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open state store", err, "dir", cfg.DataDir)
		os.Exit(1)
	}

	var brk interfaces.Broker = brokerobs.Wrap(alpaca.New(alpaca.Params{
		Mode:      cfg.Mode,
		APIKey:    os.Getenv("APCA_API_KEY_ID"),
		SecretKey: os.Getenv("APCA_API_SECRET_KEY"),
		BaseURL:   os.Getenv("APCA_API_BASE_URL"),
		DataURL:   os.Getenv("APCA_DATA_BASE_URL"),
	}))

	var prices interfaces.PriceSource
	if cfg.PriceSource == "DELAYED" {
		prices = &alpaca.DelayedPriceSource{Broker: brk}
	} else {
		prices = &alpaca.QuotePriceSource{Broker: brk}
	}

	var feed interfaces.NewsFeed = news.NewScraper(15 * time.Second)
	if apiKey := os.Getenv("NEWS_API_KEY"); apiKey != "" {
		feed = &news.FallbackFeed{
			Primary:   news.NewAPIFeed(apiKey, os.Getenv("NEWS_API_BASE_URL"), 15*time.Second),
			Secondary: feed,
		}
	}

	classifier := news.NewLLMClassifier(cfg)
	executor := engine.NewExecutor(brk, prices, docs, cfg)

	tracked := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		tracked[s] = true
	}
	tq := queue.New(docs)
	processor := queue.NewProcessor(tq, brk, feed, classifier, executor, func(companies []string) []string {
		return engine.MatchSymbols(companies, tracked)
	})

	results, err := processor.Flush(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Queue flush failed", err)
		os.Exit(1)
	}

	for _, r := range results {
		logger.Info(ctx, "Queue flush result",
			"symbol", r.Symbol,
			"action", r.Action,
			"executed", r.Executed,
			"message", r.Message,
		)
	}
	logger.Info(ctx, "Queue flush completed", "processed", len(results))
}
