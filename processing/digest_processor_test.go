package processing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cbarlow/newsbrief/analysis"
	"github.com/cbarlow/newsbrief/datastore"
	"github.com/cbarlow/newsbrief/delivery"
	"github.com/cbarlow/newsbrief/ingestion"
	"github.com/cbarlow/newsbrief/llm"
	"github.com/cbarlow/newsbrief/models"
)

const testTrendsJSON = `{"key_trends":["trend"],"notable_companies":["Acme"],"emerging_technologies":["x"],"overall_sentiment":"positive"}`

// scriptedCompleter answers the three call shapes a run makes by
// inspecting the system prompt.
type scriptedCompleter struct {
	filterResponse string
	trendsResponse string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	switch {
	case strings.Contains(req.System, "pruning"):
		if s.filterResponse != "" {
			return s.filterResponse, nil
		}
		return `{"exclude": []}`, nil
	case strings.Contains(req.System, "analyst"):
		if s.trendsResponse != "" {
			return s.trendsResponse, nil
		}
		return testTrendsJSON, nil
	default:
		var b strings.Builder
		for i := 1; i <= 10; i++ {
			fmt.Fprintf(&b, "%d. Model summary %d.\n", i, i)
		}
		return b.String(), nil
	}
}

func serveDigestFeed(t *testing.T, count int) *httptest.Server {
	t.Helper()

	filler := strings.Repeat("A detailed paragraph about the announcement and its context. ", 4)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Feed</title><link>https://example.com</link><description>d</description>`)
	for i := 1; i <= count; i++ {
		fmt.Fprintf(&b, "<item><title>Item %d</title><link>https://example.com/item-%d</link><description>Item %d. %s</description><pubDate>%s</pubDate></item>",
			i, i, i, filler, time.Now().UTC().Add(-time.Duration(i)*time.Hour).Format(time.RFC1123Z))
	}
	b.WriteString("</channel></rss>")
	doc := b.String()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, doc)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProcessor(t *testing.T, feedURL, reportsDir string) (*DigestProcessor, *scriptedCompleter) {
	t.Helper()

	cache := datastore.NewSummaryCache(datastore.NewMemoryBackend(), 7*24*time.Hour)
	if err := cache.Load(); err != nil {
		t.Fatal(err)
	}
	ledger := datastore.NewSentLedger(datastore.NewMemoryBackend(), 30*24*time.Hour)
	if err := ledger.Load(); err != nil {
		t.Fatal(err)
	}

	completer := &scriptedCompleter{}
	proc := &DigestProcessor{
		Config: RunConfig{
			DigestTitle:     "Test Digest",
			ReportRetention: 7 * 24 * time.Hour,
			RunTimeout:      time.Minute,
			Formats:         []models.ReportFormat{models.ReportFormatHTML, models.ReportFormatCSV},
		},
		Catalog:    ingestion.NewCatalog([]models.Source{{Name: "Test", URL: feedURL, Category: "General", Priority: 1}}),
		Collector:  ingestion.NewCollector(7*24*time.Hour, 10),
		Extractor:  ingestion.NewExtractor(),
		Summarizer: analysis.NewSummarizer(completer, cache, 5),
		Filter:     analysis.NewQualityFilter(completer),
		Trends:     analysis.NewTrendAnalyzer(completer),
		Cache:      cache,
		Ledger:     ledger,
		Reports:    datastore.NewReportRepository(reportsDir),
		Delivery:   delivery.NewService(),
		Status:     NewRunStatus(),
	}
	return proc, completer
}

func waitForRun(t *testing.T, status *RunStatus) Snapshot {
	t.Helper()
	deadline := time.After(15 * time.Second)
	for {
		snap := status.Snapshot()
		if !snap.Running && (snap.Progress == "complete" || snap.Progress == "failed") {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("run did not finish, last status: %+v", snap)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunProducesReportsAndMarksLedger(t *testing.T) {
	feed := serveDigestFeed(t, 3)
	dir := t.TempDir()
	proc, _ := newTestProcessor(t, feed.URL, dir)

	runID, err := proc.Start(nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run ID")
	}

	snap := waitForRun(t, proc.Status)
	if snap.Error != "" {
		t.Fatalf("run errored: %s", snap.Error)
	}
	if snap.ArticlesProcessed != 3 {
		t.Errorf("articles processed = %d, want 3", snap.ArticlesProcessed)
	}
	if !strings.HasSuffix(snap.LastReport, ".html") {
		t.Errorf("last report = %q, want an html file", snap.LastReport)
	}

	// Two rendered formats plus the raw trends JSON.
	files, err := proc.Reports.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 report files, got %d: %v", len(files), files)
	}
	trendsSaved := false
	for _, f := range files {
		if strings.HasPrefix(f.Name, "trends_") && strings.HasSuffix(f.Name, ".json") {
			trendsSaved = true
		}
	}
	if !trendsSaved {
		t.Error("trend analysis was not saved alongside the reports")
	}
	for _, a := range []string{"item-1", "item-2", "item-3"} {
		key := models.ArticleKey("https://example.com/" + a)
		if !proc.Ledger.Contains(key) {
			t.Errorf("article %s not marked sent", a)
		}
	}

	// A second run sees nothing new and completes cleanly without
	// writing more reports.
	if _, err := proc.Start(nil); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	snap = waitForRun(t, proc.Status)
	if snap.Error != "" {
		t.Fatalf("second run errored: %s", snap.Error)
	}
	if snap.ArticlesProcessed != 0 {
		t.Errorf("second run processed %d articles, want 0", snap.ArticlesProcessed)
	}
	files, _ = proc.Reports.List()
	if len(files) != 3 {
		t.Errorf("second run wrote reports for already-sent articles: %d files", len(files))
	}
}

func TestStartRejectsConcurrentRun(t *testing.T) {
	feed := serveDigestFeed(t, 1)
	proc, _ := newTestProcessor(t, feed.URL, t.TempDir())

	if !proc.Status.Begin("held") {
		t.Fatal("could not claim run slot")
	}
	if _, err := proc.Start(nil); err != ErrRunInProgress {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	proc.Status.Complete("")
	if _, err := proc.Start(nil); err != nil {
		t.Fatalf("Start after completion failed: %v", err)
	}
	waitForRun(t, proc.Status)
}

func TestRunFailsWhenReportsCannotBeWritten(t *testing.T) {
	feed := serveDigestFeed(t, 2)

	// A regular file where the reports directory should be.
	blocked := filepath.Join(t.TempDir(), "reports")
	if err := os.WriteFile(blocked, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	proc, _ := newTestProcessor(t, feed.URL, blocked)
	if _, err := proc.Start(nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := waitForRun(t, proc.Status)
	if snap.Error == "" {
		t.Fatal("run should have failed")
	}
	if snap.Progress != "failed" {
		t.Errorf("progress = %q, want failed", snap.Progress)
	}
	// Nothing was delivered, so nothing may be marked sent.
	if proc.Ledger.Contains(models.ArticleKey("https://example.com/item-1")) {
		t.Error("failed run marked articles as sent")
	}
}

func TestRunContinuesWhenTrendAnalysisFails(t *testing.T) {
	feed := serveDigestFeed(t, 2)
	dir := t.TempDir()
	proc, completer := newTestProcessor(t, feed.URL, dir)
	completer.trendsResponse = "not a json object at all"

	if _, err := proc.Start(nil); err != nil {
		t.Fatal(err)
	}
	snap := waitForRun(t, proc.Status)
	if snap.Error != "" {
		t.Fatalf("trend failure should not fail the run: %s", snap.Error)
	}

	path, err := proc.Reports.Resolve(snap.LastReport)
	if err != nil {
		t.Fatal(err)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(html), "Today at a Glance") {
		t.Error("report rendered a trends section from a failed analysis")
	}
}

type recordingProvider struct {
	subject     string
	htmlBody    string
	attachments []delivery.Attachment
	calls       int
}

func (r *recordingProvider) Type() string { return "email" }

func (r *recordingProvider) Deliver(ctx context.Context, subject, htmlBody string, attachments []delivery.Attachment) error {
	r.calls++
	r.subject = subject
	r.htmlBody = htmlBody
	r.attachments = append([]delivery.Attachment(nil), attachments...)
	return nil
}

func TestRunDeliversThroughRegisteredProvider(t *testing.T) {
	feed := serveDigestFeed(t, 2)
	proc, _ := newTestProcessor(t, feed.URL, t.TempDir())

	provider := &recordingProvider{}
	proc.Delivery = delivery.NewService(provider)

	if _, err := proc.Start(nil); err != nil {
		t.Fatal(err)
	}
	snap := waitForRun(t, proc.Status)
	if snap.Error != "" {
		t.Fatalf("run errored: %s", snap.Error)
	}

	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
	if !strings.HasPrefix(provider.subject, "Test Digest for ") {
		t.Errorf("subject = %q", provider.subject)
	}
	if !strings.Contains(provider.htmlBody, "Test Digest") {
		t.Error("html body missing digest content")
	}
	if len(provider.attachments) != 1 || !strings.HasSuffix(provider.attachments[0].FileName, ".csv") {
		t.Errorf("expected one csv attachment, got %v", provider.attachments)
	}
}
