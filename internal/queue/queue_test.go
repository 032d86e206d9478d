package queue

import (
	"context"
	"testing"

	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

func testStore(t *testing.T) *store.FileStore {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func TestEnqueueAppends(t *testing.T) {
	q := New(testStore(t))
	ctx := context.Background()

	trades := []types.QueuedTrade{
		{Symbol: "AAPL", Action: types.ActionBuy, Sentiment: types.SentimentBullish},
		{Symbol: "MSFT", Action: types.ActionSell, Sentiment: types.SentimentBearish},
	}
	for _, tr := range trades {
		if err := q.Enqueue(ctx, tr); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	entries, err := q.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].QueuedAt.IsZero() || entries[0].UpdatedAt.IsZero() {
		t.Error("Expected timestamps set on enqueue")
	}
}

func TestEnqueueReplacesSameSymbol(t *testing.T) {
	q := New(testStore(t))
	ctx := context.Background()

	if err := q.Enqueue(ctx, types.QueuedTrade{Symbol: "AAPL", Action: types.ActionBuy, Sentiment: types.SentimentBullish}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	first, _ := q.Entries()

	if err := q.Enqueue(ctx, types.QueuedTrade{Symbol: "AAPL", Action: types.ActionSell, Sentiment: types.SentimentBearish, NewsTitle: "guidance cut"}); err != nil {
		t.Fatalf("Enqueue replace: %v", err)
	}

	entries, err := q.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected replacement, got %d entries", len(entries))
	}
	got := entries[0]
	if got.Action != types.ActionSell || got.Sentiment != types.SentimentBearish || got.NewsTitle != "guidance cut" {
		t.Errorf("Expected updated fields, got %+v", got)
	}
	if !got.QueuedAt.Equal(first[0].QueuedAt) {
		t.Error("Expected original QueuedAt preserved on replacement")
	}
	if !got.UpdatedAt.After(got.QueuedAt) && !got.UpdatedAt.Equal(got.QueuedAt) {
		t.Error("Expected UpdatedAt at or after QueuedAt")
	}
}

func TestQueuePersistsAcrossInstances(t *testing.T) {
	docs := testStore(t)
	ctx := context.Background()

	q := New(docs)
	if err := q.Enqueue(ctx, types.QueuedTrade{Symbol: "NVDA", Action: types.ActionBuy, Sentiment: types.SentimentBullish}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	reloaded := New(docs)
	entries, err := reloaded.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "NVDA" {
		t.Errorf("Expected durable queue entry, got %+v", entries)
	}
}

func TestClearEmptiesQueue(t *testing.T) {
	docs := testStore(t)
	ctx := context.Background()

	q := New(docs)
	_ = q.Enqueue(ctx, types.QueuedTrade{Symbol: "AAPL", Action: types.ActionBuy})
	_ = q.Enqueue(ctx, types.QueuedTrade{Symbol: "MSFT", Action: types.ActionSell})

	if err := q.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected empty queue, got %d", n)
	}

	// Durable too.
	if n, _ := New(docs).Len(); n != 0 {
		t.Errorf("Expected empty queue after reload, got %d", n)
	}
}
