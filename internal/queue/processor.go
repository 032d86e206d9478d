package queue

import (
	"context"
	"errors"
	"fmt"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/trace"
	"orb-news-trader/internal/types"
)

// Fresh-article budget per queued symbol during a flush.
const revalidationArticles = 3

// Executor is the slice of the order executor the processor needs.
type Executor interface {
	Execute(ctx context.Context, d types.Decision) (types.ExecutionResult, error)
}

// SymbolMatcher maps classifier company names to the tracked ticker set.
type SymbolMatcher func(companies []string) []string

// Processor drains the trade queue once the market opens. Each queued
// trade is re-validated against fresh news before execution; trades whose
// sentiment has shifted against them are dropped. Every entry leaves the
// queue after a flush, executed or not.
type Processor struct {
	queue      *TradeQueue
	broker     interfaces.Broker
	feed       interfaces.NewsFeed
	classifier interfaces.Classifier
	executor   Executor
	match      SymbolMatcher
}

func NewProcessor(q *TradeQueue, broker interfaces.Broker, feed interfaces.NewsFeed, classifier interfaces.Classifier, executor Executor, match SymbolMatcher) *Processor {
	return &Processor{
		queue:      q,
		broker:     broker,
		feed:       feed,
		classifier: classifier,
		executor:   executor,
		match:      match,
	}
}

// Flush processes all queued trades. A closed market is a no-op, not an
// error.
func (p *Processor) Flush(ctx context.Context) ([]types.ExecutionResult, error) {
	ctx, span := trace.StartSpan(ctx, "queue.Flush")
	defer span.End()

	clock, err := p.broker.GetClock(ctx)
	if err != nil {
		return nil, err
	}
	if !clock.IsOpen {
		logger.Debug(ctx, "Market closed, queue flush skipped")
		return nil, nil
	}

	entries, err := p.queue.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	logger.Info(ctx, "Flushing trade queue", "pending", len(entries))

	results := make([]types.ExecutionResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, p.processEntry(ctx, entry))
	}

	if err := p.queue.Clear(ctx); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Processor) processEntry(ctx context.Context, entry types.QueuedTrade) types.ExecutionResult {
	fresh, hasFresh := p.freshSentiment(ctx, entry.Symbol)

	if hasFresh && !compatible(entry.Action, fresh) {
		logger.Queue(ctx, entry.Symbol, "dropped",
			"queued_action", entry.Action,
			"queued_sentiment", entry.Sentiment,
			"fresh_sentiment", fresh,
		)
		return types.ExecutionResult{
			Symbol:  entry.Symbol,
			Action:  entry.Action,
			Message: fmt.Sprintf("dropped: sentiment shifted to %s since queueing", fresh),
		}
	}

	if entry.Action == types.ActionHold {
		return types.ExecutionResult{
			Symbol:  entry.Symbol,
			Action:  types.ActionHold,
			Message: "queued hold, nothing to execute",
		}
	}

	decision := types.Decision{
		Symbol:         entry.Symbol,
		Action:         entry.Action,
		Confidence:     queuedConfidence(entry.Sentiment),
		Rationale:      fmt.Sprintf("queued while market closed: %s", entry.NewsTitle),
		SentimentLabel: entry.Sentiment,
	}

	result, err := p.executor.Execute(ctx, decision)
	if err != nil {
		logger.ErrorWithErr(ctx, "Queued trade execution failed", err,
			"symbol", entry.Symbol, "action", entry.Action)
		return types.ExecutionResult{
			Symbol:  entry.Symbol,
			Action:  entry.Action,
			Message: fmt.Sprintf("execution failed: %v", err),
		}
	}
	return result
}

// freshSentiment re-checks the symbol against a handful of just-published
// articles. Returns ok=false when nothing relevant was found, which lets
// the queued trade proceed unchallenged.
func (p *Processor) freshSentiment(ctx context.Context, symbol string) (string, bool) {
	articles, err := p.feed.FetchArticles(ctx, symbol, revalidationArticles)
	if err != nil {
		logger.Warn(ctx, "Fresh news fetch failed, keeping queued trade", "symbol", symbol, "error", err.Error())
		return "", false
	}

	counts := map[string]int{}
	for _, article := range articles {
		text := article.Title
		if article.Content != "" {
			text += "\n\n" + article.Content
		}
		cls, err := p.classifier.Classify(ctx, text)
		if err != nil && !errors.Is(err, types.ErrClassificationFailure) {
			logger.Warn(ctx, "Fresh classification failed", "symbol", symbol, "error", err.Error())
			continue
		}
		// Only articles actually about this symbol count.
		relevant := false
		for _, matched := range p.match(cls.RelatedCompanies) {
			if matched == symbol {
				relevant = true
				break
			}
		}
		if relevant {
			counts[cls.Sentiment]++
		}
	}

	if len(counts) == 0 {
		return "", false
	}
	return predominant(counts), true
}

// predominant picks the strictly most frequent label; ties are Neutral.
func predominant(counts map[string]int) string {
	bull, bear, neut := counts[types.SentimentBullish], counts[types.SentimentBearish], counts[types.SentimentNeutral]
	switch {
	case bull > bear && bull > neut:
		return types.SentimentBullish
	case bear > bull && bear > neut:
		return types.SentimentBearish
	default:
		return types.SentimentNeutral
	}
}

// compatible reports whether a queued action may still execute given the
// freshly observed sentiment. The check is directional: fresh news only
// blocks a trade it actively contradicts.
func compatible(queuedAction, freshSentiment string) bool {
	freshAction := types.ActionHold
	switch freshSentiment {
	case types.SentimentBullish:
		freshAction = types.ActionBuy
	case types.SentimentBearish:
		freshAction = types.ActionSell
	}

	switch {
	case queuedAction == freshAction:
		return true
	case queuedAction == types.ActionHold:
		return freshAction != types.ActionSell
	case queuedAction == types.ActionBuy:
		return freshAction == types.ActionHold
	default:
		return false
	}
}

// queuedConfidence sizes a flushed trade from the sentiment it was queued
// with, since no live breakout signal backed it.
func queuedConfidence(sentiment string) float64 {
	switch sentiment {
	case types.SentimentBullish:
		return 0.9
	case types.SentimentNeutral:
		return 0.6
	default:
		return 0.5
	}
}
