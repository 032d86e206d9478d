package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/trace"
	"orb-news-trader/internal/types"
)

const classifierSystemPrompt = "You are a financial news analyst. " +
	"Classify the sentiment of news articles for stock trading and identify which publicly traded companies they concern. " +
	"Respond ONLY with compact JSON, no prose."

// LLMClassifier classifies article sentiment through an OpenAI-compatible
// chat completions endpoint.
type LLMClassifier struct {
	cfg *store.Config
}

var _ interfaces.Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(cfg *store.Config) *LLMClassifier {
	return &LLMClassifier{cfg: cfg}
}

// Classify returns the article's sentiment label and the companies it
// mentions. Any failure degrades to a Neutral classification alongside an
// error wrapping types.ErrClassificationFailure, so callers can log and
// continue.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (types.Classification, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	neutral := types.Classification{Sentiment: types.SentimentNeutral}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return neutral, fmt.Errorf("%w: OPENAI_API_KEY missing", types.ErrClassificationFailure)
	}

	if len(text) > 1000 {
		text = text[:1000]
	}

	prompt := fmt.Sprintf(`Analyze this news article:

%s

Respond ONLY with JSON of the form:
{"sentiment": "Bullish" | "Bearish" | "Neutral", "related_companies": ["Company Name", ...]}`, text)

	body := map[string]any{
		"model": c.cfg.LLM.Model,
		"messages": []map[string]string{
			{"role": "system", "content": classifierSystemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": c.cfg.LLM.Temperature,
		"max_tokens":  c.cfg.LLM.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(bb))
	if err != nil {
		return neutral, fmt.Errorf("%w: %v", types.ErrClassificationFailure, err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return neutral, fmt.Errorf("%w: %v", types.ErrClassificationFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return neutral, fmt.Errorf("%w: http %d", types.ErrClassificationFailure, resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return neutral, fmt.Errorf("%w: decode response: %v", types.ErrClassificationFailure, err)
	}
	if len(r.Choices) == 0 {
		return neutral, fmt.Errorf("%w: no choices", types.ErrClassificationFailure)
	}

	out, err := parseClassification(r.Choices[0].Message.Content)
	if err != nil {
		return neutral, fmt.Errorf("%w: %v", types.ErrClassificationFailure, err)
	}
	return out, nil
}

// parseClassification extracts the JSON object from a model reply that may
// wrap it in markdown fences or prose.
func parseClassification(content string) (types.Classification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return types.Classification{}, errors.New("no JSON object in reply")
	}

	var raw struct {
		Sentiment        string   `json:"sentiment"`
		RelatedCompanies []string `json:"related_companies"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return types.Classification{}, fmt.Errorf("invalid JSON in reply: %v", err)
	}

	sentiment := normalizeSentiment(raw.Sentiment)
	if sentiment == "" {
		return types.Classification{}, fmt.Errorf("unknown sentiment label %q", raw.Sentiment)
	}

	// At most three companies per article; the model occasionally rambles.
	companies := raw.RelatedCompanies
	if len(companies) > 3 {
		companies = companies[:3]
	}

	return types.Classification{
		Sentiment:        sentiment,
		RelatedCompanies: companies,
	}, nil
}

func normalizeSentiment(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish":
		return types.SentimentBullish
	case "bearish":
		return types.SentimentBearish
	case "neutral":
		return types.SentimentNeutral
	default:
		return ""
	}
}
