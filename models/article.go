package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article is a single feed entry moving through the digest pipeline.
// The Collector creates it, the Extractor fills Content, the Summarizer
// fills Summary; after rendering it is read-only.
type Article struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Published   time.Time `json:"published"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"-"`
	Summary     string    `json:"summary,omitempty"`
}

// Key returns the article's cache/ledger key.
func (a *Article) Key() string {
	return ArticleKey(a.URL)
}

// ArticleKey derives the stable identifier for an article URL: the hex
// SHA-256 of the URL. The URL is the unique key for deduplication; the
// hash keeps cache and ledger files free of unbounded raw URLs.
func ArticleKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
