package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/cbarlow/newsbrief/models"
)

func TestFilterExcludesListedArticles(t *testing.T) {
	articles := makeArticles(4)
	fake := &fakeCompleter{responses: []string{`{"exclude": [2, 4]}`}}
	stats := models.NewRunStats()

	kept := NewQualityFilter(fake).Filter(context.Background(), articles, stats)

	if len(kept) != 2 {
		t.Fatalf("expected 2 kept articles, got %d", len(kept))
	}
	if kept[0].Title != "Article 1" || kept[1].Title != "Article 3" {
		t.Errorf("wrong articles kept: %q, %q", kept[0].Title, kept[1].Title)
	}
	if stats.FilterFailed {
		t.Error("successful filter marked as failed")
	}
	if got := stats.ForSource("Test").Kept; got != 2 {
		t.Errorf("kept counter = %d, want 2", got)
	}
}

func TestFilterKeepsOrderAndAll(t *testing.T) {
	articles := makeArticles(3)
	fake := &fakeCompleter{responses: []string{`{"exclude": []}`}}
	stats := models.NewRunStats()

	kept := NewQualityFilter(fake).Filter(context.Background(), articles, stats)

	if len(kept) != 3 {
		t.Fatalf("expected all 3 kept, got %d", len(kept))
	}
	for i, a := range kept {
		if a != articles[i] {
			t.Errorf("order changed at position %d", i)
		}
	}
}

func TestFilterFailsOpen(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeCompleter
	}{
		{"model error", &fakeCompleter{err: errors.New("model down")}},
		{"not json", &fakeCompleter{responses: []string{"I would remove the second one."}}},
		{"out of range index", &fakeCompleter{responses: []string{`{"exclude": [9]}`}}},
		{"excludes everything", &fakeCompleter{responses: []string{`{"exclude": [1, 2, 3]}`}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			articles := makeArticles(3)
			stats := models.NewRunStats()

			kept := NewQualityFilter(tt.fake).Filter(context.Background(), articles, stats)

			if len(kept) != 3 {
				t.Fatalf("fail-open should keep all 3 articles, got %d", len(kept))
			}
			if !stats.FilterFailed {
				t.Error("degraded filter not recorded in stats")
			}
			if got := stats.ForSource("Test").Kept; got != 3 {
				t.Errorf("kept counter = %d, want 3", got)
			}
		})
	}
}

func TestFilterAcceptsFencedResponse(t *testing.T) {
	articles := makeArticles(2)
	fake := &fakeCompleter{responses: []string{"```json\n{\"exclude\": [1]}\n```"}}
	stats := models.NewRunStats()

	kept := NewQualityFilter(fake).Filter(context.Background(), articles, stats)

	if len(kept) != 1 || kept[0].Title != "Article 2" {
		t.Fatalf("fenced response not honored: %v", kept)
	}
	if stats.FilterFailed {
		t.Error("fenced but valid response marked as failure")
	}
}

func TestFilterSkipsEmptyInput(t *testing.T) {
	fake := &fakeCompleter{}
	kept := NewQualityFilter(fake).Filter(context.Background(), nil, models.NewRunStats())

	if len(kept) != 0 {
		t.Fatalf("expected empty result, got %d", len(kept))
	}
	if len(fake.calls) != 0 {
		t.Error("empty input should not reach the model")
	}
}
