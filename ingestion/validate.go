package ingestion

import (
	"context"
	"fmt"
	"strings"
)

// ValidationResult describes what a candidate feed URL yielded.
type ValidationResult struct {
	URL       string `json:"url"`
	Valid     bool   `json:"valid"`
	FeedTitle string `json:"feed_title,omitempty"`
	ItemCount int    `json:"item_count"`
	Error     string `json:"error,omitempty"`
}

// ValidateFeed checks that a URL serves a parseable feed with at least one
// entry. It never returns an error; problems land in the result so the
// caller can hand it straight back to an API client.
func (c *Collector) ValidateFeed(ctx context.Context, url string) ValidationResult {
	result := ValidationResult{URL: url}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		result.Error = "url must start with http:// or https://"
		return result
	}

	feed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		result.Error = fmt.Sprintf("fetch or parse failed: %v", err)
		return result
	}
	if len(feed.Items) == 0 {
		result.FeedTitle = feed.Title
		result.Error = "feed parsed but contains no entries"
		return result
	}

	result.Valid = true
	result.FeedTitle = feed.Title
	result.ItemCount = len(feed.Items)
	return result
}
