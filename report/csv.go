package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/cbarlow/newsbrief/models"
)

// csvHeader is a stable contract for downstream spreadsheet imports; do
// not reorder.
var csvHeader = []string{"source", "title", "url", "summary", "published"}

// RenderCSV renders the digest as one row per article.
func RenderCSV(d models.Digest) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, a := range d.Articles {
		row := []string{a.Source, a.Title, a.URL, a.Summary, a.Published.Format(time.RFC3339)}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render csv report: %w", err)
	}
	return buf.Bytes(), nil
}
