package analysis

import (
	"context"
	"errors"
	"testing"
)

const trendsResponse = `{
  "key_trends": ["Agents move into production", "Inference costs keep falling"],
  "notable_companies": ["Acme AI", "ExampleCorp"],
  "emerging_technologies": ["speculative decoding"],
  "overall_sentiment": "positive, driven by cost reductions"
}`

func TestAnalyzeParsesResponse(t *testing.T) {
	fake := &fakeCompleter{responses: []string{trendsResponse}}

	analysis, err := NewTrendAnalyzer(fake).Analyze(context.Background(), makeArticles(3))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.KeyTrends) != 2 {
		t.Errorf("key trends = %v", analysis.KeyTrends)
	}
	if len(analysis.NotableCompanies) != 2 || analysis.NotableCompanies[0] != "Acme AI" {
		t.Errorf("companies = %v", analysis.NotableCompanies)
	}
	if analysis.OverallSentiment == "" {
		t.Error("sentiment missing")
	}
	if !fake.calls[0].JSONMode {
		t.Error("trend analysis should request JSON mode")
	}
}

func TestAnalyzeAcceptsFencedResponse(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"```json\n" + trendsResponse + "\n```"}}

	analysis, err := NewTrendAnalyzer(fake).Analyze(context.Background(), makeArticles(2))
	if err != nil {
		t.Fatalf("Analyze failed on fenced response: %v", err)
	}
	if len(analysis.KeyTrends) == 0 {
		t.Error("fenced response not parsed")
	}
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCompleter
	}{
		{"model error", &fakeCompleter{err: errors.New("model down")}},
		{"not json", &fakeCompleter{responses: []string{"no structure here"}}},
		{"empty analysis", &fakeCompleter{responses: []string{`{}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTrendAnalyzer(tt.fake).Analyze(context.Background(), makeArticles(2)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAnalyzeRejectsEmptyInput(t *testing.T) {
	fake := &fakeCompleter{}
	if _, err := NewTrendAnalyzer(fake).Analyze(context.Background(), nil); err == nil {
		t.Error("expected an error for zero articles")
	}
	if len(fake.calls) != 0 {
		t.Error("empty input should not reach the model")
	}
}
