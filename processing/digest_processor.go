package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cbarlow/newsbrief/analysis"
	"github.com/cbarlow/newsbrief/datastore"
	"github.com/cbarlow/newsbrief/delivery"
	"github.com/cbarlow/newsbrief/ingestion"
	"github.com/cbarlow/newsbrief/models"
	"github.com/cbarlow/newsbrief/report"
)

// ErrRunInProgress is returned when a digest run is requested while
// another still holds the run slot.
var ErrRunInProgress = errors.New("a digest run is already in progress")

// RunConfig carries the processor's tunables.
type RunConfig struct {
	DigestTitle     string
	ReportRetention time.Duration
	RunTimeout      time.Duration
	Formats         []models.ReportFormat
}

// DigestProcessor drives one digest run end to end: collect, extract,
// summarize, filter, analyze, render, deliver. All fields must be set
// before the first Start.
type DigestProcessor struct {
	Config RunConfig

	Catalog    *ingestion.Catalog
	Collector  *ingestion.Collector
	Extractor  *ingestion.Extractor
	Summarizer *analysis.Summarizer
	Filter     *analysis.QualityFilter
	Trends     *analysis.TrendAnalyzer
	Cache      *datastore.SummaryCache
	Ledger     *datastore.SentLedger
	Reports    *datastore.ReportRepository
	Delivery   *delivery.Service
	Status     *RunStatus
}

// Start launches a digest run in the background and returns its run ID.
// The Status gate guarantees at most one run in flight.
func (p *DigestProcessor) Start(sourceNames []string) (string, error) {
	runID := uuid.NewString()
	if !p.Status.Begin(runID) {
		return "", ErrRunInProgress
	}

	go p.run(runID, sourceNames)
	return runID, nil
}

func (p *DigestProcessor) run(runID string, sourceNames []string) {
	timeout := p.Config.RunTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	log.Printf("INFO (DigestProcessor): run %s started", runID)

	result, err := p.execute(ctx, sourceNames)
	if err != nil {
		log.Printf("ERROR (DigestProcessor): run %s failed after %s: %v",
			runID, time.Since(started).Round(time.Millisecond), err)
		p.Status.Fail(err)
		return
	}

	p.Status.Complete(result.lastReport)
	log.Printf("INFO (DigestProcessor): run %s completed in %s: %s",
		runID, time.Since(started).Round(time.Millisecond), result.note)
}

type runResult struct {
	lastReport string
	note       string
}

type renderedFile struct {
	format models.ReportFormat
	name   string
	data   []byte
}

func (p *DigestProcessor) execute(ctx context.Context, sourceNames []string) (runResult, error) {
	stats := models.NewRunStats()
	now := time.Now().UTC()

	// 1. Resolve the source selection against the catalog.
	p.Status.SetProgress("selecting sources")
	sources, err := p.Catalog.Select(sourceNames)
	if err != nil {
		return runResult{}, err
	}

	// 2. Expire stale store entries before collecting.
	if n := p.Cache.PurgeExpired(); n > 0 {
		log.Printf("INFO (DigestProcessor): purged %d expired cache entries", n)
	}
	if n := p.Ledger.PurgeExpired(); n > 0 {
		log.Printf("INFO (DigestProcessor): purged %d expired ledger entries", n)
	}

	// 3. Collect feeds.
	p.Status.SetProgress("collecting feeds")
	articles, feedErrors := p.Collector.Collect(ctx, sources)
	for _, fe := range feedErrors {
		stats.FeedErrors = append(stats.FeedErrors, fe.Error())
	}
	for _, a := range articles {
		stats.ForSource(a.Source).Fetched++
	}

	// 4. Drop articles already delivered in an earlier digest.
	fresh := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		if p.Ledger.Contains(a.Key()) {
			continue
		}
		fresh = append(fresh, a)
	}
	log.Printf("INFO (DigestProcessor): %d new articles (%d already sent)", len(fresh), len(articles)-len(fresh))

	// A quiet day is a clean completion, not an error.
	if len(fresh) == 0 {
		p.Status.SetArticles(0)
		return runResult{note: "no new articles found"}, nil
	}
	p.Status.SetArticles(len(fresh))

	// 5. Extract the text to summarize.
	p.Status.SetProgress("extracting content")
	p.Extractor.ExtractAll(ctx, fresh)

	// 6. Summarize, reusing cached summaries.
	p.Status.SetProgress("summarizing")
	p.Summarizer.SummarizeAll(ctx, fresh, stats)

	// 7. Prune low-value articles. The filter fails open, so a non-empty
	// input always yields a non-empty digest.
	p.Status.SetProgress("filtering")
	kept := p.Filter.Filter(ctx, fresh, stats)

	// 8. Trend analysis is fail-soft; the digest renders without it.
	p.Status.SetProgress("analyzing trends")
	trends, err := p.Trends.Analyze(ctx, kept)
	if err != nil {
		log.Printf("WARNING (DigestProcessor): trend analysis failed, continuing without it: %v", err)
		stats.TrendsFailed = true
		trends = nil
	}

	digest := models.Digest{
		Title:       p.Config.DigestTitle,
		GeneratedAt: now,
		Articles:    kept,
		Trends:      trends,
	}

	// 9. Render and persist every format. No reports on disk means the
	// run failed.
	p.Status.SetProgress("rendering reports")
	files, err := p.renderAll(digest, now)
	if err != nil {
		return runResult{}, err
	}

	// 10. Persist the raw trend analysis alongside the reports.
	if trends != nil {
		if data, err := json.MarshalIndent(trends, "", "  "); err == nil {
			if _, err := p.Reports.Save(report.TrendsFileName(now), data); err != nil {
				log.Printf("WARNING (DigestProcessor): failed to save trends file: %v", err)
			}
		}
	}

	// 11. Mark articles sent only now that their reports exist on disk.
	keys := make([]string, len(kept))
	for i, a := range kept {
		keys[i] = a.Key()
	}
	p.Ledger.MarkSent(keys...)
	if err := p.Ledger.Flush(); err != nil {
		log.Printf("ERROR (DigestProcessor): ledger flush failed: %v", err)
	}

	// 12. Sweep reports past retention.
	if n, err := p.Reports.SweepOlderThan(p.Config.ReportRetention); err != nil {
		log.Printf("WARNING (DigestProcessor): report sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("INFO (DigestProcessor): swept %d old report files", n)
	}

	// 13. Deliver. Reports are already safe on disk, so a delivery
	// failure degrades the run instead of failing it.
	if p.Delivery.Enabled() {
		p.Status.SetProgress("delivering")
		p.deliver(ctx, digest, files)
	}

	log.Printf("INFO (DigestProcessor): run summary\n%s", report.RunSummaryTable(stats))
	if stats.Degraded() {
		log.Printf("WARNING (DigestProcessor): run degraded: %d feed errors, filter failed: %t, trends failed: %t",
			len(stats.FeedErrors), stats.FilterFailed, stats.TrendsFailed)
	}

	return runResult{
		lastReport: lastReportName(files),
		note:       fmt.Sprintf("%d articles across %d report files", len(kept), len(files)),
	}, nil
}

func (p *DigestProcessor) renderAll(digest models.Digest, at time.Time) ([]renderedFile, error) {
	formats := p.Config.Formats
	if len(formats) == 0 {
		formats = report.DefaultFormats
	}

	files := make([]renderedFile, 0, len(formats))
	for _, format := range formats {
		data, err := report.Render(format, digest)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s report: %w", format, err)
		}
		name := report.FileName(at, format)
		if _, err := p.Reports.Save(name, data); err != nil {
			return nil, fmt.Errorf("failed to save %s report: %w", format, err)
		}
		files = append(files, renderedFile{format: format, name: name, data: data})
	}
	return files, nil
}

// lastReportName prefers the HTML file, the format the dashboard links to.
func lastReportName(files []renderedFile) string {
	for _, f := range files {
		if f.format == models.ReportFormatHTML {
			return f.name
		}
	}
	if len(files) > 0 {
		return files[0].name
	}
	return ""
}

func (p *DigestProcessor) deliver(ctx context.Context, digest models.Digest, files []renderedFile) {
	htmlBody := ""
	attachments := make([]delivery.Attachment, 0, len(files))
	for _, f := range files {
		if f.format == models.ReportFormatHTML {
			htmlBody = string(f.data)
			continue
		}
		attachments = append(attachments, delivery.AttachmentFor(f.name, f.data))
	}
	if htmlBody == "" {
		htmlBody = "<p>Your news digest is attached.</p>"
	}

	subject := fmt.Sprintf("%s for %s", digest.Title, digest.GeneratedAt.Format("Jan 2, 2006"))
	if err := p.Delivery.DeliverAll(ctx, subject, htmlBody, attachments); err != nil {
		log.Printf("ERROR (DigestProcessor): delivery failed, reports remain on disk: %v", err)
	}
}
