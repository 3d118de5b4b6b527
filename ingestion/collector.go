package ingestion

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cbarlow/newsbrief/models"
	"github.com/mmcdole/gofeed"
)

const (
	feedFetchTimeout = 15 * time.Second
	collectorAgent   = "newsbrief/1.0 (+https://github.com/cbarlow/newsbrief)"
)

// FeedError records a source whose feed could not be fetched or parsed.
// One broken feed never aborts a collection run.
type FeedError struct {
	Source string
	URL    string
	Err    error
}

func (e FeedError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Source, e.URL, e.Err)
}

// Collector fetches RSS/Atom feeds concurrently and turns fresh entries
// into articles. A single parser instance is shared across goroutines.
type Collector struct {
	parser       *gofeed.Parser
	window       time.Duration
	maxPerSource int
}

// NewCollector returns a Collector that keeps entries published within
// window and takes at most maxPerSource entries from each feed.
func NewCollector(window time.Duration, maxPerSource int) *Collector {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: feedFetchTimeout}
	parser.UserAgent = collectorAgent
	return &Collector{
		parser:       parser,
		window:       window,
		maxPerSource: maxPerSource,
	}
}

// Collect fetches every source in parallel and merges the results. Articles
// come back sorted newest first. Failed sources are reported alongside the
// successes, never instead of them.
func (c *Collector) Collect(ctx context.Context, sources []models.Source) ([]*models.Article, []FeedError) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		articles []*models.Article
		failures []FeedError
	)

	for _, src := range sources {
		wg.Add(1)
		go func(src models.Source) {
			defer wg.Done()

			fetched, err := c.collectSource(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, FeedError{Source: src.Name, URL: src.URL, Err: err})
				return
			}
			articles = append(articles, fetched...)
		}(src)
	}
	wg.Wait()

	sort.SliceStable(articles, func(i, j int) bool {
		if !articles[i].Published.Equal(articles[j].Published) {
			return articles[i].Published.After(articles[j].Published)
		}
		return articles[i].Title < articles[j].Title
	})

	log.Printf("INFO (Collector): collected %d articles from %d sources (%d failed)",
		len(articles), len(sources), len(failures))
	return articles, failures
}

// collectSource fetches one source, walking its fallback URLs in order when
// the primary fails. The last error wins if every URL fails.
func (c *Collector) collectSource(ctx context.Context, src models.Source) ([]*models.Article, error) {
	urls := append([]string{src.URL}, src.FallbackURLs...)

	var lastErr error
	for i, url := range urls {
		feed, err := c.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if i > 0 {
			log.Printf("WARNING (Collector): %s primary feed failed, using fallback %s", src.Name, url)
		}
		return c.keepFresh(src, feed), nil
	}
	return nil, lastErr
}

// keepFresh converts feed items to articles, dropping anything outside the
// recency window and capping the per-source count. Items are assumed to
// arrive newest first, so the cap takes the head of the list.
func (c *Collector) keepFresh(src models.Source, feed *gofeed.Feed) []*models.Article {
	cutoff := time.Now().UTC().Add(-c.window)

	kept := make([]*models.Article, 0, c.maxPerSource)
	for _, item := range feed.Items {
		if len(kept) >= c.maxPerSource {
			break
		}
		if item.Link == "" {
			continue
		}

		published, ok := publishedTime(item)
		if !ok {
			// An undated entry could be years old and the recency
			// window would never catch it.
			log.Printf("WARNING (Collector): %s dropped undated entry %q", src.Name, item.Title)
			continue
		}
		if published.Before(cutoff) {
			continue
		}

		kept = append(kept, &models.Article{
			Source:      src.Name,
			Title:       item.Title,
			URL:         item.Link,
			Published:   published,
			Category:    src.Category,
			Description: itemDescription(item),
		})
	}
	return kept
}

// publishedTime resolves an item's publish date, preferring the publish
// timestamp over the update timestamp and parsed values over raw strings.
func publishedTime(item *gofeed.Item) (time.Time, bool) {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC(), true
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC(), true
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// itemDescription picks the richer of the item's two body fields. Feeds
// that carry full content in content:encoded often leave only a stub in
// the description.
func itemDescription(item *gofeed.Item) string {
	if len(item.Content) > len(item.Description) {
		return item.Content
	}
	return item.Description
}
