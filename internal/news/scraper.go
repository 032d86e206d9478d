package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/types"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Scraper is the keyless fallback feed: it pulls headlines from the Google
// News search page when no API feed is configured or the feed errors out.
type Scraper struct {
	timeout time.Duration
	httpc   *http.Client
}

var _ interfaces.NewsFeed = (*Scraper)(nil)

func NewScraper(timeout time.Duration) *Scraper {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Scraper{
		timeout: timeout,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// FetchArticles searches Google News for the query and returns headline
// articles, enriched with body text where the article page is fetchable.
func (s *Scraper) FetchArticles(ctx context.Context, query string, maxResults int) ([]types.NewsArticle, error) {
	articles := []types.NewsArticle{}

	c := colly.NewCollector(
		colly.AllowedDomains("news.google.com", "www.google.com"),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", scraperUserAgent)
	})

	c.OnHTML("article", func(e *colly.HTMLElement) {
		if len(articles) >= maxResults {
			return
		}

		title := strings.TrimSpace(e.ChildText("h3, h4"))
		link := e.ChildAttr("a", "href")
		if title == "" || link == "" {
			return
		}

		// Google News links are relative redirects
		if strings.HasPrefix(link, "./articles/") {
			link = "https://news.google.com" + link[1:]
		}

		articles = append(articles, types.NewsArticle{
			Title:  title,
			URL:    link,
			Source: "GoogleNews",
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Scraping error", err, "url", r.Request.URL.String())
	})

	searchQuery := url.QueryEscape(query + " stock news")
	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en-US&gl=US&ceid=US:en", searchQuery)

	if err := c.Visit(searchURL); err != nil {
		return nil, fmt.Errorf("scrape news search: %w: %v", types.ErrTransientIO, err)
	}
	c.Wait()

	articles = s.enrichArticles(ctx, articles)

	logger.Debug(ctx, "News scraping completed", "query", query, "articles", len(articles))
	return articles, nil
}

// enrichArticles fetches body text for headlines that came back empty.
func (s *Scraper) enrichArticles(ctx context.Context, articles []types.NewsArticle) []types.NewsArticle {
	enriched := make([]types.NewsArticle, len(articles))
	copy(enriched, articles)

	for i := range enriched {
		if len(enriched[i].Content) >= 100 {
			continue
		}
		if content := s.fetchArticleContent(ctx, enriched[i].URL); content != "" {
			if len(content) > 500 {
				content = content[:500]
			}
			enriched[i].Content = content
		}
		// Don't hammer the article hosts.
		time.Sleep(500 * time.Millisecond)
	}

	return enriched
}

func (s *Scraper) fetchArticleContent(ctx context.Context, articleURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := s.httpc.Do(req)
	if err != nil {
		logger.Debug(ctx, "Article fetch failed", "url", articleURL, "error", err.Error())
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	paragraphs := []string{}
	doc.Find("article p, div.article-body p, div.content-body p, div.story-content p").
		Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})

	return strings.Join(paragraphs, "\n\n")
}

// FallbackFeed tries a primary feed first and falls back to a secondary one
// when the primary errors or returns nothing.
type FallbackFeed struct {
	Primary   interfaces.NewsFeed
	Secondary interfaces.NewsFeed
}

var _ interfaces.NewsFeed = (*FallbackFeed)(nil)

func (f *FallbackFeed) FetchArticles(ctx context.Context, query string, maxResults int) ([]types.NewsArticle, error) {
	articles, err := f.Primary.FetchArticles(ctx, query, maxResults)
	if err == nil && len(articles) > 0 {
		return articles, nil
	}
	if err != nil {
		logger.Warn(ctx, "Primary news feed failed, falling back", "query", query, "error", err.Error())
	}
	return f.Secondary.FetchArticles(ctx, query, maxResults)
}
