package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orb-news-trader/internal/logger"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_cycles_total",
		Help: "Trading cycles started.",
	})

	CycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_cycle_failures_total",
		Help: "Trading cycles that ended in error.",
	})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_decisions_total",
		Help: "Fused decisions by action.",
	}, []string{"action"})

	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_orders_submitted_total",
		Help: "Orders submitted to the broker by side.",
	}, []string{"side"})

	TradesQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_trades_queued_total",
		Help: "Decisions deferred to the trade queue.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trader_queue_depth",
		Help: "Pending trades in the queue.",
	})

	SentimentAverage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trader_sentiment_average",
		Help: "Recency-weighted sentiment average per symbol.",
	}, []string{"symbol"})
)

// Serve exposes /metrics on addr until ctx is canceled. Call in a
// goroutine.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics listener started", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorWithErr(ctx, "Metrics listener failed", err, "addr", addr)
	}
}
