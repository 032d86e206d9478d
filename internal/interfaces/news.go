package interfaces

import (
	"context"

	"orb-news-trader/internal/types"
)

// NewsFeed returns recent articles matching a keyword query.
type NewsFeed interface {
	FetchArticles(ctx context.Context, query string, maxResults int) ([]types.NewsArticle, error)
}

// Classifier maps article text to a market sentiment label and the
// publicly traded companies the article concerns.
type Classifier interface {
	Classify(ctx context.Context, text string) (types.Classification, error)
}
