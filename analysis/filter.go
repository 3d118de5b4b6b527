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

const filterSystemPrompt = `You are a news editor pruning a digest. Identify articles that are low-value for a technical reader: press releases, product promotions, listicles, rumor roundups, or near-duplicates of other articles in the list. Respond with JSON only, in the form {"exclude": [2, 5]} using the article numbers given. If every article is worth reading, respond {"exclude": []}.`

// QualityFilter asks the model which articles to drop. It fails open: any
// problem with the call or the response keeps every article.
type QualityFilter struct {
	completer llm.Completer
}

func NewQualityFilter(completer llm.Completer) *QualityFilter {
	return &QualityFilter{completer: completer}
}

// Filter returns the articles worth keeping, in their original order.
func (f *QualityFilter) Filter(ctx context.Context, articles []*models.Article, stats *models.RunStats) []*models.Article {
	if len(articles) == 0 {
		return articles
	}

	text, err := f.completer.Complete(ctx, llm.Request{
		System:      filterSystemPrompt,
		User:        filterPrompt(articles),
		JSONMode:    true,
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		log.Printf("WARNING (QualityFilter): filter call failed, keeping all %d articles: %v", len(articles), err)
		stats.FilterFailed = true
		return keepAll(articles, stats)
	}

	excluded, err := parseExclusions(text, len(articles))
	if err != nil {
		log.Printf("WARNING (QualityFilter): unusable filter response, keeping all %d articles: %v", len(articles), err)
		stats.FilterFailed = true
		return keepAll(articles, stats)
	}
	if len(excluded) == len(articles) {
		// A response that empties the digest looks like the model
		// answering the wrong question.
		log.Printf("WARNING (QualityFilter): response excluded every article, keeping all %d", len(articles))
		stats.FilterFailed = true
		return keepAll(articles, stats)
	}

	kept := make([]*models.Article, 0, len(articles))
	for i, a := range articles {
		if excluded[i+1] {
			log.Printf("INFO (QualityFilter): excluded %q (%s)", a.Title, a.Source)
			continue
		}
		kept = append(kept, a)
		stats.ForSource(a.Source).Kept++
	}
	log.Printf("INFO (QualityFilter): kept %d of %d articles", len(kept), len(articles))
	return kept
}

func keepAll(articles []*models.Article, stats *models.RunStats) []*models.Article {
	for _, a := range articles {
		stats.ForSource(a.Source).Kept++
	}
	return articles
}

func filterPrompt(articles []*models.Article) string {
	var b strings.Builder
	for i, a := range articles {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, a.Source, a.Title, a.Summary)
	}
	return b.String()
}

// parseExclusions reads the model's {"exclude": [...]} response. An index
// outside 1..n rejects the whole response rather than being skipped, since
// it means the model was not answering about this list.
func parseExclusions(text string, n int) (map[int]bool, error) {
	payload := llm.ExtractJSONObject(llm.CleanFences(text))
	if payload == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed struct {
		Exclude []int `json:"exclude"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, err
	}

	excluded := make(map[int]bool, len(parsed.Exclude))
	for _, idx := range parsed.Exclude {
		if idx < 1 || idx > n {
			return nil, fmt.Errorf("article number %d out of range 1..%d", idx, n)
		}
		excluded[idx] = true
	}
	return excluded, nil
}
