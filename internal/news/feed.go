package news

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/types"
)

const defaultFeedBaseURL = "https://newsapi.org"

// APIFeed fetches recent articles from a NewsAPI-compatible endpoint.
type APIFeed struct {
	client *resty.Client
	apiKey string
}

var _ interfaces.NewsFeed = (*APIFeed)(nil)

func NewAPIFeed(apiKey, baseURL string, timeout time.Duration) *APIFeed {
	if baseURL == "" {
		baseURL = defaultFeedBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &APIFeed{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		apiKey: apiKey,
	}
}

func (f *APIFeed) FetchArticles(ctx context.Context, query string, maxResults int) ([]types.NewsArticle, error) {
	if maxResults < 1 {
		maxResults = 1
	}

	var out struct {
		Status   string `json:"status"`
		Articles []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Content     string `json:"content"`
			Description string `json:"description"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}

	resp, err := f.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        query,
			"language": "en",
			"sortBy":   "publishedAt",
			"pageSize": strconv.Itoa(maxResults),
			"apiKey":   f.apiKey,
		}).
		SetResult(&out).
		Get("/v2/everything")
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w: %v", types.ErrTransientIO, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch articles: http %d: %s", resp.StatusCode(), resp.String())
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("fetch articles: feed status %q", out.Status)
	}

	articles := make([]types.NewsArticle, 0, len(out.Articles))
	for _, a := range out.Articles {
		content := a.Content
		if content == "" {
			content = a.Description
		}
		// Only the lede matters for classification, cap it.
		if len(content) > 500 {
			content = content[:500]
		}
		articles = append(articles, types.NewsArticle{
			Title:       a.Title,
			URL:         a.URL,
			Content:     content,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	logger.Debug(ctx, "Articles fetched", "query", query, "count", len(articles))
	return articles, nil
}
