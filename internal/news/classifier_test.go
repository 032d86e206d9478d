package news

import (
	"testing"

	"orb-news-trader/internal/types"
)

func TestParseClassificationPlainJSON(t *testing.T) {
	cls, err := parseClassification(`{"sentiment": "Bullish", "related_companies": ["Apple", "NVIDIA"]}`)
	if err != nil {
		t.Fatalf("parseClassification: %v", err)
	}
	if cls.Sentiment != types.SentimentBullish {
		t.Errorf("Expected Bullish, got %s", cls.Sentiment)
	}
	if len(cls.RelatedCompanies) != 2 || cls.RelatedCompanies[0] != "Apple" {
		t.Errorf("Expected companies carried through, got %v", cls.RelatedCompanies)
	}
}

func TestParseClassificationFencedReply(t *testing.T) {
	reply := "Here is the analysis:\n```json\n{\"sentiment\": \"bearish\", \"related_companies\": [\"Tesla\"]}\n```\nLet me know if you need more."
	cls, err := parseClassification(reply)
	if err != nil {
		t.Fatalf("parseClassification: %v", err)
	}
	if cls.Sentiment != types.SentimentBearish {
		t.Errorf("Expected Bearish from lowercase label, got %s", cls.Sentiment)
	}
}

func TestParseClassificationNoJSON(t *testing.T) {
	if _, err := parseClassification("I cannot classify this article."); err == nil {
		t.Fatal("Expected error for reply without JSON")
	}
}

func TestParseClassificationUnknownLabel(t *testing.T) {
	if _, err := parseClassification(`{"sentiment": "Mixed", "related_companies": []}`); err == nil {
		t.Fatal("Expected error for unknown sentiment label")
	}
}

func TestNormalizeSentiment(t *testing.T) {
	cases := map[string]string{
		"Bullish":  types.SentimentBullish,
		"BEARISH":  types.SentimentBearish,
		" neutral": types.SentimentNeutral,
		"positive": "",
		"":         "",
	}
	for in, want := range cases {
		if got := normalizeSentiment(in); got != want {
			t.Errorf("normalizeSentiment(%q) = %q, want %q", in, got, want)
		}
	}
}
