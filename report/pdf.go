package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/cbarlow/newsbrief/models"
)

// RenderPDF renders the digest as an A4 document with a page-numbered
// footer. Text goes through the cp1252 translator, so characters outside
// that set degrade rather than corrupt the output.
func RenderPDF(d models.Digest) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(d.Title, true)
	pdf.SetAuthor("newsbrief", true)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 10, tr(d.Title), "", "L", false)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	meta := fmt.Sprintf("Generated %s | %d articles", d.GeneratedAt.Format("Jan 2, 2006 15:04 MST"), len(d.Articles))
	pdf.CellFormat(0, 6, tr(meta), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if !d.Trends.Empty() {
		writeTrends(pdf, tr, d.Trends)
	}

	for _, group := range groupByCategory(d.Articles) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(20, 20, 20)
		pdf.CellFormat(0, 9, tr(group.Name), "B", 1, "L", false, 0, "")
		pdf.Ln(2)

		for _, a := range group.Articles {
			writeArticle(pdf, tr, a)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTrends(pdf *fpdf.Fpdf, tr func(string) string, trends *models.TrendAnalysis) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 8, "Today at a Glance", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(40, 40, 40)
	for _, trend := range trends.KeyTrends {
		pdf.MultiCell(0, 5, tr("- "+trend), "", "L", false)
	}
	if len(trends.NotableCompanies) > 0 {
		pdf.MultiCell(0, 5, tr("Companies: "+strings.Join(trends.NotableCompanies, ", ")), "", "L", false)
	}
	if len(trends.EmergingTechnologies) > 0 {
		pdf.MultiCell(0, 5, tr("Technologies: "+strings.Join(trends.EmergingTechnologies, ", ")), "", "L", false)
	}
	if trends.OverallSentiment != "" {
		pdf.MultiCell(0, 5, tr("Sentiment: "+trends.OverallSentiment), "", "L", false)
	}
	pdf.Ln(2)
}

func writeArticle(pdf *fpdf.Fpdf, tr func(string) string, a *models.Article) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 6, tr(a.Title), "", "L", false)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(130, 130, 130)
	pdf.CellFormat(0, 4, tr(a.Source+" | "+a.Published.Format("Jan 2, 2006")), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(40, 40, 40)
	pdf.MultiCell(0, 5, tr(a.Summary), "", "L", false)

	pdf.SetFont("Helvetica", "U", 8)
	pdf.SetTextColor(30, 60, 160)
	pdf.WriteLinkString(4, a.URL, a.URL)
	pdf.Ln(8)
}
