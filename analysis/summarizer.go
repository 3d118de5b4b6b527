package analysis

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cbarlow/newsbrief/datastore"
	"github.com/cbarlow/newsbrief/llm"
	"github.com/cbarlow/newsbrief/models"
)

const (
	defaultBatchSize = 5

	// promptContentRunes bounds how much article content goes into a
	// batch prompt.
	promptContentRunes = 1500
)

const summarizeSystemPrompt = `You are a news editor writing for a technical audience. Summarize each article below in 2-3 sentences, keeping concrete facts (companies, numbers, product names) and dropping hype. Respond with exactly one numbered line per article, in the order given:
1. <summary of article 1>
2. <summary of article 2>
Do not add headers or commentary.`

// Summarizer turns article content into short summaries, batching model
// calls and reusing cached results.
type Summarizer struct {
	completer llm.Completer
	cache     *datastore.SummaryCache
	batchSize int
}

func NewSummarizer(completer llm.Completer, cache *datastore.SummaryCache, batchSize int) *Summarizer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Summarizer{completer: completer, cache: cache, batchSize: batchSize}
}

// SummarizeAll fills in Summary for every article. Cached summaries are
// reused; the rest go to the model in batches. A batch that fails outright
// falls back to local summaries, so every article comes back with
// something.
func (s *Summarizer) SummarizeAll(ctx context.Context, articles []*models.Article, stats *models.RunStats) {
	pending := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		if summary, ok := s.cache.Get(a.Key()); ok {
			a.Summary = summary
			stats.ForSource(a.Source).FromCache++
			continue
		}
		pending = append(pending, a)
	}
	log.Printf("INFO (Summarizer): %d from cache, %d to summarize", len(articles)-len(pending), len(pending))

	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		s.summarizeBatch(ctx, pending[start:end], stats)

		// Flush after every batch so a crash loses at most one batch of
		// model work.
		if err := s.cache.Flush(); err != nil {
			log.Printf("ERROR (Summarizer): cache flush failed: %v", err)
		}
	}
}

func (s *Summarizer) summarizeBatch(ctx context.Context, batch []*models.Article, stats *models.RunStats) {
	text, err := s.completer.Complete(ctx, llm.Request{
		System:      summarizeSystemPrompt,
		User:        batchPrompt(batch),
		MaxTokens:   250 * len(batch),
		Temperature: 0.3,
	})
	if err != nil {
		log.Printf("WARNING (Summarizer): batch of %d failed, using local summaries: %v", len(batch), err)
		for _, a := range batch {
			a.Summary = LocalSummary(a)
			stats.ForSource(a.Source).Fallbacks++
		}
		return
	}

	parsed := parseBatchResponse(text)
	if parsed.summaries == nil {
		log.Printf("WARNING (Summarizer): unparseable batch response, using local summaries: %.120q", parsed.raw)
	}
	for i, a := range batch {
		summary, ok := parsed.summaries[i+1]
		if !ok || summary == "" {
			a.Summary = LocalSummary(a)
			stats.ForSource(a.Source).Fallbacks++
			continue
		}
		a.Summary = summary
		stats.ForSource(a.Source).Summarized++
		// Only model output is cached; a local fallback should be
		// retried on the next run.
		s.cache.Put(a.Key(), summary)
	}
}

// batchPrompt lays articles out as the numbered blocks the response format
// refers back to.
func batchPrompt(batch []*models.Article) string {
	var b strings.Builder
	for i, a := range batch {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Article %d:\nTitle: %s\nContent: %s", i+1, a.Title, promptContent(a))
	}
	return b.String()
}

func promptContent(a *models.Article) string {
	text := a.Content
	if text == "" {
		text = a.Description
	}
	if utf8.RuneCountInString(text) <= promptContentRunes {
		return text
	}
	return string([]rune(text)[:promptContentRunes])
}

// batchResponse distinguishes "no numbered lines at all" (summaries nil)
// from "some articles missing" (partial map).
type batchResponse struct {
	summaries map[int]string
	raw       string
}

var numberedLine = regexp.MustCompile(`^\s*(?:Article\s+)?(\d+)[.:)\-]\s*(.*)$`)

// parseBatchResponse reads numbered summary lines. Unnumbered lines extend
// the previous summary, so answers spread over several lines survive.
func parseBatchResponse(text string) batchResponse {
	resp := batchResponse{raw: text}

	current := 0
	partial := make(map[int]string)
	for _, line := range strings.Split(llm.CleanFences(text), "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				current = n
				partial[n] = strings.TrimSpace(m[2])
				continue
			}
		}
		if current > 0 {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				partial[current] = strings.TrimSpace(partial[current] + " " + trimmed)
			}
		}
	}
	if len(partial) == 0 {
		return resp
	}
	resp.summaries = partial
	return resp
}
