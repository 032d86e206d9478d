package engine

import (
	"context"
	"errors"
	"fmt"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/metrics"
	"orb-news-trader/internal/queue"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

// Trader runs the full decision cycle: flush the overnight queue when the
// market opens, refresh sentiment, then decide and act per symbol. A
// failure on one symbol never blocks the others.
type Trader struct {
	broker    interfaces.Broker
	ranges    *RangeCalculator
	sentiment *SentimentAggregator
	executor  *Executor
	queue     *queue.TradeQueue
	processor *queue.Processor
	cfg       *store.Config
}

var _ interfaces.Engine = (*Trader)(nil)

func NewTrader(
	broker interfaces.Broker,
	ranges *RangeCalculator,
	sentiment *SentimentAggregator,
	executor *Executor,
	tq *queue.TradeQueue,
	processor *queue.Processor,
	cfg *store.Config,
) *Trader {
	return &Trader{
		broker:    broker,
		ranges:    ranges,
		sentiment: sentiment,
		executor:  executor,
		queue:     tq,
		processor: processor,
		cfg:       cfg,
	}
}

// RunCycle executes one trading cycle across all configured symbols.
func (t *Trader) RunCycle(ctx context.Context) ([]types.ExecutionResult, error) {
	timer := logger.StartOperation(ctx, "trading_cycle", "symbols", len(t.cfg.Symbols))
	ctx = timer.GetContext()
	metrics.CyclesTotal.Inc()

	clock, err := t.broker.GetClock(ctx)
	if err != nil {
		metrics.CycleFailures.Inc()
		timer.EndWithError(err)
		return nil, fmt.Errorf("market clock: %w", err)
	}

	results := []types.ExecutionResult{}

	if clock.IsOpen {
		flushed, err := t.processor.Flush(ctx)
		if err != nil {
			// Queue problems shouldn't stop the live cycle.
			logger.ErrorWithErr(ctx, "Queue flush failed", err)
		}
		results = append(results, flushed...)
	}

	if _, err := t.sentiment.Refresh(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Sentiment refresh failed, deciding on existing history", err)
	}

	for _, symbol := range t.cfg.Symbols {
		results = append(results, t.stepSymbol(ctx, symbol, clock.IsOpen))
	}

	if depth, err := t.queue.Len(); err == nil {
		metrics.QueueDepth.Set(float64(depth))
	}

	timer.End("results", len(results))
	return results, nil
}

// stepSymbol decides and acts for one symbol. Errors are folded into the
// result so the cycle continues.
func (t *Trader) stepSymbol(ctx context.Context, symbol string, marketOpen bool) types.ExecutionResult {
	sig, err := t.ranges.Signal(ctx, symbol)
	var sigPtr *types.Signal
	switch {
	case err == nil:
		sigPtr = &sig
	case errors.Is(err, types.ErrDataUnavailable):
		logger.Warn(ctx, "No breakout signal, deciding on sentiment only", "symbol", symbol)
	default:
		logger.ErrorWithErr(ctx, "Breakout signal failed", err, "symbol", symbol)
		return types.ExecutionResult{
			Symbol:  symbol,
			Action:  types.ActionHold,
			Message: fmt.Sprintf("signal error: %v", err),
		}
	}

	action, avg, label, ok, err := t.sentiment.Direction(symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Sentiment read failed", err, "symbol", symbol)
		ok = false
	}

	d := Fuse(symbol, sigPtr, SentimentView{
		Action:      action,
		Average:     avg,
		LatestLabel: label,
		Available:   ok,
	})

	logger.Decision(ctx, d.Symbol, d.Action, d.Confidence, d.Rationale,
		"orb", d.ORBSignal, "sentiment", d.SentimentSignal)
	metrics.DecisionsTotal.WithLabelValues(d.Action).Inc()
	if ok {
		metrics.SentimentAverage.WithLabelValues(symbol).Set(avg)
	}

	if marketOpen {
		result, err := t.executor.Execute(ctx, d)
		if err != nil {
			logger.ErrorWithErr(ctx, "Execution failed", err, "symbol", symbol, "action", d.Action)
			return types.ExecutionResult{
				Symbol:    symbol,
				Action:    d.Action,
				Message:   fmt.Sprintf("execution error: %v", err),
				Rationale: d.Rationale,
			}
		}
		if result.Executed {
			metrics.OrdersSubmitted.WithLabelValues(sideForAction(d.Action)).Inc()
		}
		return result
	}

	// Market closed: defer the decision instead of acting on it.
	qt := types.QueuedTrade{
		Symbol:    symbol,
		Action:    d.Action,
		Sentiment: d.SentimentLabel,
	}
	if entries, err := t.sentiment.History(symbol); err == nil && len(entries) > 0 {
		qt.NewsTitle = entries[len(entries)-1].ArticleTitle
	}
	if err := t.queue.Enqueue(ctx, qt); err != nil {
		logger.ErrorWithErr(ctx, "Failed to queue trade", err, "symbol", symbol)
		return types.ExecutionResult{
			Symbol:    symbol,
			Action:    d.Action,
			Message:   fmt.Sprintf("queueing failed: %v", err),
			Rationale: d.Rationale,
		}
	}
	metrics.TradesQueued.Inc()
	return types.ExecutionResult{
		Symbol:    symbol,
		Action:    d.Action,
		Queued:    true,
		Message:   "market closed, decision queued",
		Rationale: d.Rationale,
	}
}

func sideForAction(action string) string {
	if action == types.ActionSell {
		return "sell"
	}
	return "buy"
}
