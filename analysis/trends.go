package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cbarlow/newsbrief/llm"
	"github.com/cbarlow/newsbrief/models"
)

const trendsSystemPrompt = `You are a technology analyst. Given today's article summaries, identify what they add up to. Respond with JSON only:
{
  "key_trends": ["three to five short trend statements"],
  "notable_companies": ["companies appearing across articles"],
  "emerging_technologies": ["technologies gaining momentum"],
  "overall_sentiment": "positive, negative, or mixed, with a short reason"
}`

// TrendAnalyzer produces the digest's executive summary. Failure is soft:
// the caller renders the digest without a trends section.
type TrendAnalyzer struct {
	completer llm.Completer
}

func NewTrendAnalyzer(completer llm.Completer) *TrendAnalyzer {
	return &TrendAnalyzer{completer: completer}
}

func (t *TrendAnalyzer) Analyze(ctx context.Context, articles []*models.Article) (*models.TrendAnalysis, error) {
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles to analyze")
	}

	text, err := t.completer.Complete(ctx, llm.Request{
		System:      trendsSystemPrompt,
		User:        trendsPrompt(articles),
		JSONMode:    true,
		MaxTokens:   600,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, err
	}

	payload := llm.ExtractJSONObject(llm.CleanFences(text))
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var analysis models.TrendAnalysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse trend analysis: %w", err)
	}
	if analysis.Empty() {
		return nil, fmt.Errorf("model returned an empty analysis")
	}

	log.Printf("INFO (TrendAnalyzer): %d trends, %d companies, %d technologies",
		len(analysis.KeyTrends), len(analysis.NotableCompanies), len(analysis.EmergingTechnologies))
	return &analysis, nil
}

func trendsPrompt(articles []*models.Article) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, a.Title, a.Summary)
	}
	return b.String()
}
