package report

import (
	"fmt"

	"github.com/cbarlow/newsbrief/models"
)

// DefaultFormats is the full set of outputs a digest run produces.
var DefaultFormats = []models.ReportFormat{
	models.ReportFormatHTML,
	models.ReportFormatCSV,
	models.ReportFormatPDF,
	models.ReportFormatEPUB,
}

// Render produces the report bytes for one format. Renderers are pure
// functions of the digest; writing files is the caller's business.
func Render(format models.ReportFormat, d models.Digest) ([]byte, error) {
	switch format {
	case models.ReportFormatHTML:
		return RenderHTML(d)
	case models.ReportFormatCSV:
		return RenderCSV(d)
	case models.ReportFormatPDF:
		return RenderPDF(d)
	case models.ReportFormatEPUB:
		return RenderEPUB(d)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

type categoryGroup struct {
	Name     string
	Articles []*models.Article
}

// groupByCategory splits articles into category groups, categories in
// first-seen order. Articles arrive newest first, so each group leads
// with its freshest story.
func groupByCategory(articles []*models.Article) []categoryGroup {
	index := make(map[string]int)
	var groups []categoryGroup
	for _, a := range articles {
		name := a.Category
		if name == "" {
			name = "General"
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, categoryGroup{Name: name})
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}
	return groups
}

func distinctSources(articles []*models.Article) int {
	seen := make(map[string]bool)
	for _, a := range articles {
		seen[a.Source] = true
	}
	return len(seen)
}
