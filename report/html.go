package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/cbarlow/newsbrief/models"
)

// digestTemplate uses inline styles throughout because the HTML report
// doubles as the email body, and mail clients ignore stylesheets.
const digestTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body style="margin:0;padding:0;background:#f4f4f4;font-family:Georgia,serif;color:#1a1a1a;">
<div style="max-width:720px;margin:0 auto;padding:24px;background:#ffffff;">
<h1 style="margin:0 0 4px 0;font-size:26px;">{{.Title}}</h1>
<p style="margin:0 0 20px 0;color:#777777;font-size:13px;">Generated {{formatDateTime .GeneratedAt}} &middot; {{len .Articles}} articles from {{.SourceCount}} sources</p>
{{if not .Trends.Empty}}
<div style="background:#f7f5ef;border-left:4px solid #b8a47e;padding:12px 16px;margin:0 0 24px 0;">
<h2 style="margin:0 0 8px 0;font-size:16px;">Today at a Glance</h2>
{{if .Trends.KeyTrends}}
<ul style="margin:0 0 8px 0;padding-left:20px;font-size:14px;">
{{range .Trends.KeyTrends}}<li style="margin-bottom:4px;">{{.}}</li>
{{end}}</ul>
{{end}}
{{if .Trends.NotableCompanies}}<p style="margin:0 0 4px 0;font-size:13px;color:#555555;"><strong>Companies:</strong> {{join .Trends.NotableCompanies}}</p>{{end}}
{{if .Trends.EmergingTechnologies}}<p style="margin:0 0 4px 0;font-size:13px;color:#555555;"><strong>Technologies:</strong> {{join .Trends.EmergingTechnologies}}</p>{{end}}
{{if .Trends.OverallSentiment}}<p style="margin:0;font-size:13px;color:#555555;"><strong>Sentiment:</strong> {{.Trends.OverallSentiment}}</p>{{end}}
</div>
{{end}}
{{range .Groups}}
<h2 style="margin:24px 0 12px 0;font-size:18px;border-bottom:1px solid #dddddd;padding-bottom:4px;">{{.Name}}</h2>
{{range .Articles}}
<div style="margin:0 0 20px 0;">
<h3 style="margin:0 0 2px 0;font-size:15px;"><a href="{{.URL}}" style="color:#1a3c6e;text-decoration:none;">{{.Title}}</a></h3>
<p style="margin:0 0 6px 0;color:#999999;font-size:12px;">{{.Source}} &middot; {{formatDate .Published}}</p>
<p style="margin:0;font-size:14px;line-height:1.5;">{{.Summary}}</p>
</div>
{{end}}
{{end}}
<p style="margin:32px 0 0 0;padding-top:12px;border-top:1px solid #dddddd;color:#aaaaaa;font-size:11px;">newsbrief &middot; generated automatically</p>
</div>
</body>
</html>
`

var digestTmpl = template.Must(template.New("digest").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"formatDateTime": func(t time.Time) string {
		return t.Format("Jan 2, 2006 15:04 MST")
	},
	"join": func(items []string) string {
		return strings.Join(items, ", ")
	},
}).Parse(digestTemplate))

type digestView struct {
	Title       string
	GeneratedAt time.Time
	Articles    []*models.Article
	Trends      *models.TrendAnalysis
	Groups      []categoryGroup
	SourceCount int
}

// RenderHTML renders the digest as a standalone HTML page.
func RenderHTML(d models.Digest) ([]byte, error) {
	view := digestView{
		Title:       d.Title,
		GeneratedAt: d.GeneratedAt,
		Articles:    d.Articles,
		Trends:      d.Trends,
		Groups:      groupByCategory(d.Articles),
		SourceCount: distinctSources(d.Articles),
	}

	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}
	return buf.Bytes(), nil
}
