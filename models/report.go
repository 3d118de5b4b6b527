package models

import "time"

// ReportFormat defines the set of output formats a digest run can produce.
type ReportFormat string

const (
	ReportFormatHTML ReportFormat = "html"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatEPUB ReportFormat = "epub"
)

// ReportFile is the metadata for one generated report on disk.
// Files are immutable once written; they disappear only via the delete
// endpoint or the age-based sweep.
type ReportFile struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Digest is the finished article set handed to the renderers, together
// with everything they need to lay a report out. Renderers are pure
// functions of this value.
type Digest struct {
	Title       string
	GeneratedAt time.Time
	Articles    []*Article
	Trends      *TrendAnalysis
}
