package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orb-news-trader/internal/eod"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/metrics"
	"orb-news-trader/internal/sched"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	docs, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open state store", err, "dir", cfg.DataDir)
		os.Exit(1)
	}

	brk := initializeBroker(ctx, cfg)
	prices := initializePriceSource(ctx, cfg, brk)
	feed := initializeFeed(ctx, cfg)
	trader := buildTrader(cfg, brk, prices, feed, docs)

	if cfg.Metrics.Enabled {
		go metrics.Serve(ctx, cfg.Metrics.Addr)
	}

	scheduler := sched.New(trader, docs, cfg)
	schedDone := make(chan error, 1)
	go func() {
		schedDone <- scheduler.Run(ctx)
	}()

	eodTick := time.NewTicker(60 * time.Second)
	defer eodTick.Stop()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	logger.Info(ctx, "Trader started", "mode", cfg.Mode, "symbols", cfg.Symbols)

	for {
		select {
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(cfg.DataDir); ok {
				if p, err := eod.SummarizeToday(docs, cfg.DataDir); err == nil && p != "" {
					logger.Info(ctx, "EOD summary written", "path", p)
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			if p, err := eod.SummarizeToday(docs, cfg.DataDir); err == nil && p != "" {
				logger.Info(ctx, "EOD summary written", "path", p)
			}
			cancel()
			<-schedDone
			shutdown()
			return
		case err := <-schedDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.ErrorWithErr(ctx, "Scheduler exited", err)
			}
			shutdown()
			return
		}
	}
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
	_ = logger.Shutdown(ctx)
}
