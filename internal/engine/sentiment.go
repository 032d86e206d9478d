package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

// companyAliases maps lowercase company-name fragments to tickers. The
// classifier returns free-text company names, so matching is substring
// containment against these fragments.
var companyAliases = map[string]string{
	"apple":                  "AAPL",
	"microsoft":              "MSFT",
	"amazon":                 "AMZN",
	"google":                 "GOOGL",
	"alphabet":               "GOOGL",
	"meta":                   "META",
	"facebook":               "META",
	"tesla":                  "TSLA",
	"nvidia":                 "NVDA",
	"advanced micro devices": "AMD",
	"amd":                    "AMD",
	"intel":                  "INTC",
	"international business machines": "IBM",
	"ibm":                             "IBM",
}

// MatchSymbols maps classifier company names to tickers, keeping only
// symbols present in the tracked set.
func MatchSymbols(companies []string, tracked map[string]bool) []string {
	seen := map[string]bool{}
	matched := []string{}
	for _, company := range companies {
		lower := strings.ToLower(company)
		for alias, symbol := range companyAliases {
			if !strings.Contains(lower, alias) {
				continue
			}
			if !tracked[symbol] || seen[symbol] {
				continue
			}
			seen[symbol] = true
			matched = append(matched, symbol)
		}
	}
	return matched
}

func sentimentScore(label string) float64 {
	switch label {
	case types.SentimentBullish:
		return 1.0
	case types.SentimentBearish:
		return 0.0
	default:
		return 0.5
	}
}

// SentimentAggregator keeps a bounded per-symbol history of classified
// article sentiment and derives a direction from its recency-weighted
// average.
type SentimentAggregator struct {
	feed       interfaces.NewsFeed
	classifier interfaces.Classifier
	docs       store.DocumentStore
	cfg        *store.Config
	tracked    map[string]bool

	mu      sync.Mutex
	history map[string][]types.SentimentEntry // oldest first
	loaded  bool
}

func NewSentimentAggregator(feed interfaces.NewsFeed, classifier interfaces.Classifier, docs store.DocumentStore, cfg *store.Config) *SentimentAggregator {
	tracked := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		tracked[s] = true
	}
	return &SentimentAggregator{
		feed:       feed,
		classifier: classifier,
		docs:       docs,
		cfg:        cfg,
		tracked:    tracked,
		history:    make(map[string][]types.SentimentEntry),
	}
}

func (sa *SentimentAggregator) ensureLoaded() error {
	if sa.loaded {
		return nil
	}
	if err := sa.docs.Load(store.DocSentimentHistory, &sa.history); err != nil {
		return err
	}
	if sa.history == nil {
		sa.history = make(map[string][]types.SentimentEntry)
	}
	sa.loaded = true
	return nil
}

// Refresh pulls fresh market news, classifies each article, and folds the
// results into per-symbol histories. Classification failures degrade the
// single article to Neutral and are not fatal to the refresh.
func (sa *SentimentAggregator) Refresh(ctx context.Context) ([]types.SymbolSentimentUpdate, error) {
	timer := logger.StartOperation(ctx, "sentiment_refresh")
	ctx = timer.GetContext()

	articles, err := sa.feed.FetchArticles(ctx, "stock market", sa.cfg.Sentiment.MaxArticles)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	updates := []types.SymbolSentimentUpdate{}
	for _, article := range articles {
		text := article.Title
		if article.Content != "" {
			text += "\n\n" + article.Content
		}

		cls, err := sa.classifier.Classify(ctx, text)
		if err != nil {
			if !errors.Is(err, types.ErrClassificationFailure) {
				timer.EndWithError(err)
				return updates, err
			}
			logger.Warn(ctx, "Article classification failed, treating as Neutral",
				"title", article.Title, "error", err.Error())
		}

		for _, symbol := range MatchSymbols(cls.RelatedCompanies, sa.tracked) {
			if err := sa.Record(types.SentimentEntry{
				Symbol:       symbol,
				Label:        cls.Sentiment,
				ArticleTitle: article.Title,
				ArticleURL:   article.URL,
				ObservedAt:   time.Now().UTC(),
			}); err != nil {
				timer.EndWithError(err)
				return updates, err
			}
			updates = append(updates, types.SymbolSentimentUpdate{
				Symbol:       symbol,
				Sentiment:    cls.Sentiment,
				ArticleTitle: article.Title,
			})
		}
	}

	timer.End("articles", len(articles), "matches", len(updates))
	return updates, nil
}

// Record appends one observation to the symbol's history, evicting the
// oldest entry when the window is full, and persists the histories.
func (sa *SentimentAggregator) Record(entry types.SentimentEntry) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if err := sa.ensureLoaded(); err != nil {
		return err
	}

	entries := append(sa.history[entry.Symbol], entry)
	if max := sa.cfg.Sentiment.HistorySize; len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	sa.history[entry.Symbol] = entries

	return sa.docs.Save(store.DocSentimentHistory, sa.history)
}

// History returns a copy of the symbol's stored entries, oldest first.
func (sa *SentimentAggregator) History(symbol string) ([]types.SentimentEntry, error) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if err := sa.ensureLoaded(); err != nil {
		return nil, err
	}
	entries := sa.history[symbol]
	out := make([]types.SentimentEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Average returns the recency-weighted sentiment average for the symbol in
// [0, 1], where entry i (oldest first) carries weight 1.0 + 0.2*i. ok is
// false when no history exists.
func (sa *SentimentAggregator) Average(symbol string) (avg float64, latestLabel string, ok bool, err error) {
	entries, err := sa.History(symbol)
	if err != nil {
		return 0, "", false, err
	}
	if len(entries) == 0 {
		return 0, "", false, nil
	}

	var weighted, total float64
	for i, e := range entries {
		w := 1.0 + 0.2*float64(i)
		weighted += w * sentimentScore(e.Label)
		total += w
	}
	return weighted / total, entries[len(entries)-1].Label, true, nil
}

// Direction maps the weighted average onto a trade direction using the
// configured thresholds.
func (sa *SentimentAggregator) Direction(symbol string) (action string, avg float64, latestLabel string, ok bool, err error) {
	avg, latestLabel, ok, err = sa.Average(symbol)
	if err != nil || !ok {
		return types.ActionHold, avg, latestLabel, ok, err
	}
	switch {
	case avg > sa.cfg.Sentiment.BullishThreshold:
		action = types.ActionBuy
	case avg < sa.cfg.Sentiment.BearishThreshold:
		action = types.ActionSell
	default:
		action = types.ActionHold
	}
	return action, avg, latestLabel, true, nil
}
