package report

import (
	"time"

	"github.com/cbarlow/newsbrief/models"
)

const baseNamePrefix = "news_digest_"

// BaseName returns the shared stem for one run's report files, so all
// formats from a run sort and group together.
func BaseName(t time.Time) string {
	return baseNamePrefix + t.Format("20060102_150405")
}

// FileName returns the on-disk name for one format of a run's report.
func FileName(t time.Time, format models.ReportFormat) string {
	return BaseName(t) + "." + string(format)
}

// TrendsFileName returns the name of the raw trend-analysis JSON written
// alongside a run's reports.
func TrendsFileName(t time.Time) string {
	return "trends_" + t.Format("20060102_150405") + ".json"
}
