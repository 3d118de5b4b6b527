package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	epub "github.com/go-shiori/go-epub"
	"github.com/microcosm-cc/bluemonday"

	"github.com/cbarlow/newsbrief/models"
)

var imgSrcRegex = regexp.MustCompile(`<img([^>]*)\ssrc=["']([^"']+)["']([^>]*)>`)

var epubPolicy = bluemonday.UGCPolicy()

var epubImageClient = &http.Client{Timeout: 10 * time.Second}

// RenderEPUB renders the digest as an ebook: an overview chapter followed
// by one chapter per article. Remote images in article descriptions are
// downloaded, converted to grayscale for e-ink screens, and embedded so
// the file reads fully offline.
func RenderEPUB(d models.Digest) ([]byte, error) {
	e, err := epub.NewEpub(d.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to create epub: %w", err)
	}
	e.SetAuthor("newsbrief")
	e.SetLang("en")

	if _, err := e.AddSection(overviewSection(d), "Overview", "", ""); err != nil {
		return nil, fmt.Errorf("failed to add overview section: %w", err)
	}
	for i, a := range d.Articles {
		body := embedImages(e, articleSection(a), i+1)
		if _, err := e.AddSection(body, a.Title, "", ""); err != nil {
			return nil, fmt.Errorf("failed to add section for %q: %w", a.Title, err)
		}
	}

	var buf bytes.Buffer
	if _, err := e.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write epub: %w", err)
	}
	return buf.Bytes(), nil
}

func overviewSection(d models.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(d.Title))
	fmt.Fprintf(&b, "<p>Generated %s</p>", d.GeneratedAt.Format("Jan 2, 2006 15:04 MST"))

	if !d.Trends.Empty() {
		b.WriteString("<h2>Today at a Glance</h2>")
		if len(d.Trends.KeyTrends) > 0 {
			b.WriteString("<ul>")
			for _, trend := range d.Trends.KeyTrends {
				fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(trend))
			}
			b.WriteString("</ul>")
		}
		if len(d.Trends.NotableCompanies) > 0 {
			fmt.Fprintf(&b, "<p><strong>Companies:</strong> %s</p>",
				html.EscapeString(strings.Join(d.Trends.NotableCompanies, ", ")))
		}
		if len(d.Trends.EmergingTechnologies) > 0 {
			fmt.Fprintf(&b, "<p><strong>Technologies:</strong> %s</p>",
				html.EscapeString(strings.Join(d.Trends.EmergingTechnologies, ", ")))
		}
		if d.Trends.OverallSentiment != "" {
			fmt.Fprintf(&b, "<p><strong>Sentiment:</strong> %s</p>", html.EscapeString(d.Trends.OverallSentiment))
		}
	}

	b.WriteString("<h2>Contents</h2><ol>")
	for _, a := range d.Articles {
		fmt.Fprintf(&b, "<li>%s (%s)</li>", html.EscapeString(a.Title), html.EscapeString(a.Source))
	}
	b.WriteString("</ol>")
	return b.String()
}

// articleSection lays out one article chapter: summary first, then the
// sanitized feed description as the longer reading view.
func articleSection(a *models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(a.Title))
	fmt.Fprintf(&b, "<p><em>%s, %s</em></p>", html.EscapeString(a.Source), a.Published.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "<p><strong>%s</strong></p>", html.EscapeString(a.Summary))

	if desc := strings.TrimSpace(epubPolicy.Sanitize(a.Description)); desc != "" {
		b.WriteString("<hr/>")
		b.WriteString(desc)
	}
	fmt.Fprintf(&b, `<p><a href="%s">Read the original</a></p>`, html.EscapeString(a.URL))
	return b.String()
}

// embedImages downloads each remote <img> in a section body and repoints
// its src at an embedded grayscale copy. An image that cannot be fetched
// keeps its original URL.
func embedImages(e *epub.Epub, body string, section int) string {
	count := 0
	return imgSrcRegex.ReplaceAllStringFunc(body, func(match string) string {
		submatches := imgSrcRegex.FindStringSubmatch(match)
		if len(submatches) < 4 {
			return match
		}

		srcURL := submatches[2]
		if !strings.HasPrefix(srcURL, "http://") && !strings.HasPrefix(srcURL, "https://") {
			return match
		}

		count++
		internalName := fmt.Sprintf("image-%02d-%02d", section, count)
		embeddedPath, err := addGrayscaleImage(e, srcURL, internalName)
		if err != nil {
			log.Printf("WARNING (Report): failed to embed image %s: %v", srcURL, err)
			return match
		}
		return fmt.Sprintf(`<img%s src="%s"%s>`, submatches[1], embeddedPath, submatches[3])
	})
}

// addGrayscaleImage downloads an image, converts it to grayscale, and
// hands it to the epub as a data URL so no temp files outlive the render.
func addGrayscaleImage(e *epub.Epub, srcURL, internalName string) (string, error) {
	resp, err := epubImageClient.Get(srcURL)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	src, format, err := image.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}

	var buf bytes.Buffer
	mediaType, fileName := "image/png", internalName+".png"
	switch format {
	case "jpeg":
		mediaType, fileName = "image/jpeg", internalName+".jpg"
		err = jpeg.Encode(&buf, gray, &jpeg.Options{Quality: 85})
	default:
		err = png.Encode(&buf, gray)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode grayscale image: %w", err)
	}

	dataURL := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	return e.AddImage(dataURL, fileName)
}
