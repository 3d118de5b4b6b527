package ingestion

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"

	"github.com/cbarlow/newsbrief/models"
)

const (
	pageFetchTimeout = 10 * time.Second
	maxPageBytes     = 2 << 20

	// minDescriptionRunes is the point at which a feed description is rich
	// enough to summarize without fetching the article page.
	minDescriptionRunes = 150

	// minExtractedRunes is the point below which page extraction is judged
	// to have grabbed navigation chrome rather than the article body.
	minExtractedRunes = 200

	// maxContentRunes caps stored content so prompts stay bounded.
	maxContentRunes = 2000
)

// boilerplatePhrases mark feed descriptions that are teasers for the full
// article rather than usable content.
var boilerplatePhrases = []string{
	"read more",
	"continue reading",
	"click here",
	"full story",
	"learn more",
}

// Extractor resolves the text to summarize for each article: the feed
// description when it is substantial, the fetched article page otherwise.
type Extractor struct {
	client *http.Client
	policy *bluemonday.Policy
}

func NewExtractor() *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: pageFetchTimeout},
		policy: bluemonday.UGCPolicy(),
	}
}

// ExtractAll populates Content for every article, fetching pages in
// parallel. Each article ends up with something to summarize even when its
// page is unreachable.
func (e *Extractor) ExtractAll(ctx context.Context, articles []*models.Article) {
	var wg sync.WaitGroup
	for _, article := range articles {
		wg.Add(1)
		go func(a *models.Article) {
			defer wg.Done()
			e.Extract(ctx, a)
		}(article)
	}
	wg.Wait()
}

// Extract sets a.Content. A substantial, non-teaser description is used as
// is; otherwise the article page is fetched and the body extracted. When
// both fail the description is used however short it is.
func (e *Extractor) Extract(ctx context.Context, a *models.Article) {
	description := normalizeDescription(a.Description)

	if utf8.RuneCountInString(description) > minDescriptionRunes && !containsBoilerplate(description) {
		a.Content = truncateRunes(description, maxContentRunes)
		return
	}

	extracted, err := e.fetchAndExtract(ctx, a.URL)
	if err != nil {
		log.Printf("WARNING (Extractor): %s: page fetch failed, falling back to description: %v", a.URL, err)
		a.Content = truncateRunes(description, maxContentRunes)
		return
	}
	if utf8.RuneCountInString(extracted) <= minExtractedRunes {
		a.Content = truncateRunes(description, maxContentRunes)
		return
	}
	a.Content = truncateRunes(extracted, maxContentRunes)
}

// fetchAndExtract pulls the article page and extracts its body text,
// trying readability first and a plain paragraph join second.
func (e *Extractor) fetchAndExtract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", collectorAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	sanitized := e.policy.Sanitize(string(body))

	if text := readableText(sanitized, pageURL); text != "" {
		return text, nil
	}
	if text := paragraphText(sanitized); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("no article body found")
}

// readableText runs readability extraction over sanitized HTML. An empty
// string means extraction found nothing usable.
func readableText(sanitized, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(sanitized), parsed)
	if err != nil {
		return ""
	}
	return collapseWhitespace(article.TextContent)
}

// paragraphText joins the text of every <p> element, the crude fallback for
// pages readability cannot score.
func paragraphText(sanitized string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitized))
	if err != nil {
		return ""
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// normalizeDescription strips the markup feeds routinely embed in
// description fields.
func normalizeDescription(description string) string {
	if description == "" {
		return ""
	}
	text, err := html2text.FromString(description, html2text.Options{TextOnly: true})
	if err != nil {
		return collapseWhitespace(description)
	}
	return collapseWhitespace(text)
}

func containsBoilerplate(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes shortens s to at most max runes, cutting at a word boundary
// when one is close enough.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
