package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"orb-news-trader/internal/queue"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

func newTestTrader(t *testing.T, brk *fakeBroker, prices *fakePriceSource) (*Trader, *queue.TradeQueue, *store.FileStore) {
	t.Helper()
	cfg := testConfig(t)
	cfg.Symbols = []string{"AAPL", "MSFT"}
	docs := testStore(t)

	feed := &fakeFeed{}
	classifier := &fakeClassifier{}

	ranges := NewRangeCalculator(brk, prices, docs, cfg)
	sentiment := NewSentimentAggregator(feed, classifier, docs, cfg)
	executor := NewExecutor(brk, prices, docs, cfg)

	tracked := map[string]bool{"AAPL": true, "MSFT": true}
	tq := queue.New(docs)
	processor := queue.NewProcessor(tq, brk, feed, classifier, executor, func(companies []string) []string {
		return MatchSymbols(companies, tracked)
	})

	return NewTrader(brk, ranges, sentiment, executor, tq, processor, cfg), tq, docs
}

func flatRangeBroker(open bool) *fakeBroker {
	brk := &fakeBroker{}
	brk.clockFn = func(ctx context.Context) (types.Clock, error) {
		return types.Clock{IsOpen: open}, nil
	}
	brk.barsFn = func(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error) {
		return []types.Bar{{High: 100, Low: 99}}, nil
	}
	brk.accountFn = func(ctx context.Context) (types.Account, error) {
		return types.Account{Cash: 10000, PortfolioValue: 10000}, nil
	}
	return brk
}

func TestRunCycleQueuesWhenClosed(t *testing.T) {
	brk := flatRangeBroker(false)
	// Price above the breakout band: raw BUY signal.
	trader, tq, _ := newTestTrader(t, brk, &fakePriceSource{price: 101})

	results, err := trader.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Queued || r.Executed {
			t.Errorf("Expected queued result for %s, got %+v", r.Symbol, r)
		}
		if r.Action != types.ActionBuy {
			t.Errorf("Expected BUY decision for %s, got %s", r.Symbol, r.Action)
		}
	}
	if n, _ := tq.Len(); n != 2 {
		t.Errorf("Expected 2 queued trades, got %d", n)
	}
	if len(brk.submitCalls) != 0 {
		t.Error("Expected no orders while market closed")
	}
}

func TestRunCycleExecutesWhenOpen(t *testing.T) {
	brk := flatRangeBroker(true)
	trader, tq, _ := newTestTrader(t, brk, &fakePriceSource{price: 101})

	results, err := trader.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	executed := 0
	for _, r := range results {
		if r.Executed {
			executed++
		}
		if r.Queued {
			t.Errorf("Nothing should queue while market open, got %+v", r)
		}
	}
	if executed != 2 {
		t.Errorf("Expected 2 executions, got %d", executed)
	}
	if n, _ := tq.Len(); n != 0 {
		t.Errorf("Expected empty queue, got %d", n)
	}
}

func TestRunCycleIsolatesSymbolFailures(t *testing.T) {
	brk := flatRangeBroker(true)
	brk.barsFn = func(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error) {
		if symbol == "MSFT" {
			return nil, fmt.Errorf("bars for %s: %w", symbol, types.ErrTransientIO)
		}
		return []types.Bar{{High: 100, Low: 99}}, nil
	}
	trader, _, _ := newTestTrader(t, brk, &fakePriceSource{price: 101})

	results, err := trader.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results despite one failure, got %d", len(results))
	}

	bySymbol := map[string]types.ExecutionResult{}
	for _, r := range results {
		bySymbol[r.Symbol] = r
	}
	if !bySymbol["AAPL"].Executed {
		t.Errorf("Expected AAPL executed, got %+v", bySymbol["AAPL"])
	}
	if bySymbol["MSFT"].Executed || bySymbol["MSFT"].Message == "" {
		t.Errorf("Expected MSFT failure folded into result, got %+v", bySymbol["MSFT"])
	}
}

func TestRunCycleFlushesQueueOnOpen(t *testing.T) {
	brk := flatRangeBroker(true)
	trader, tq, _ := newTestTrader(t, brk, &fakePriceSource{price: 99.5})

	// Pending buy from overnight, price now inside the band (raw HOLD).
	if err := tq.Enqueue(context.Background(), types.QueuedTrade{
		Symbol: "AAPL", Action: types.ActionBuy, Sentiment: types.SentimentBullish,
	}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	results, err := trader.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	// One flush result plus two live decisions.
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if !results[0].Executed {
		t.Errorf("Expected flushed queue trade executed, got %+v", results[0])
	}
	if n, _ := tq.Len(); n != 0 {
		t.Errorf("Expected queue drained, got %d", n)
	}
}
