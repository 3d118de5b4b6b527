package models

// Source is one catalog entry: a named RSS feed with a category and a
// selection priority (lower is more important). FallbackURLs are tried in
// order when the primary feed URL fails.
type Source struct {
	Name         string   `json:"name" yaml:"name"`
	URL          string   `json:"url" yaml:"url"`
	Category     string   `json:"category" yaml:"category"`
	Priority     int      `json:"priority" yaml:"priority"`
	FallbackURLs []string `json:"fallback_urls,omitempty" yaml:"fallback_urls,omitempty"`
}
