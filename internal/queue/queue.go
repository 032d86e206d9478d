package queue

import (
	"context"
	"sync"
	"time"

	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

// TradeQueue holds decisions made while the market was closed, durably, one
// entry per symbol. A newer decision for a queued symbol replaces the old
// one in place.
type TradeQueue struct {
	docs store.DocumentStore

	mu      sync.Mutex
	entries []types.QueuedTrade
	loaded  bool
}

func New(docs store.DocumentStore) *TradeQueue {
	return &TradeQueue{docs: docs}
}

func (q *TradeQueue) ensureLoaded() error {
	if q.loaded {
		return nil
	}
	if err := q.docs.Load(store.DocTradeQueue, &q.entries); err != nil {
		return err
	}
	q.loaded = true
	return nil
}

// Enqueue adds or replaces the symbol's pending trade and persists the
// queue before returning.
func (q *TradeQueue) Enqueue(ctx context.Context, trade types.QueuedTrade) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(); err != nil {
		return err
	}

	now := time.Now().UTC()
	trade.UpdatedAt = now

	replaced := false
	for i := range q.entries {
		if q.entries[i].Symbol == trade.Symbol {
			trade.QueuedAt = q.entries[i].QueuedAt
			q.entries[i] = trade
			replaced = true
			break
		}
	}
	if !replaced {
		trade.QueuedAt = now
		q.entries = append(q.entries, trade)
	}

	if err := q.docs.Save(store.DocTradeQueue, q.entries); err != nil {
		return err
	}

	event := "queued"
	if replaced {
		event = "replaced"
	}
	logger.Queue(ctx, trade.Symbol, event, "action", trade.Action, "sentiment", trade.Sentiment)
	return nil
}

// Entries returns a copy of the pending trades in queue order.
func (q *TradeQueue) Entries() ([]types.QueuedTrade, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make([]types.QueuedTrade, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

// Len reports the number of pending trades.
func (q *TradeQueue) Len() (int, error) {
	entries, err := q.Entries()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Clear removes all pending trades and persists the empty queue.
func (q *TradeQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.ensureLoaded(); err != nil {
		return err
	}
	n := len(q.entries)
	q.entries = nil
	if err := q.docs.Save(store.DocTradeQueue, []types.QueuedTrade{}); err != nil {
		return err
	}
	if n > 0 {
		logger.Debug(ctx, "Trade queue cleared", "removed", n)
	}
	return nil
}
