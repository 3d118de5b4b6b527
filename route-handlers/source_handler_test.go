package routehandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cbarlow/newsbrief/ingestion"
	"github.com/cbarlow/newsbrief/models"
	"github.com/cbarlow/newsbrief/webutil"
)

func TestGetSourcesGroupsByCategory(t *testing.T) {
	h := NewSourceHandler(testCatalog(t), ingestion.NewCollector(time.Hour, 5))

	rec := httptest.NewRecorder()
	webutil.MakeHandler(h.HandleGetSources)(rec, httptest.NewRequest(http.MethodGet, "/api/sources", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Total      int                        `json:"total"`
		Categories map[string][]models.Source `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 2 {
		t.Errorf("total = %d, want 2", body.Total)
	}
	research := body.Categories["Research"]
	if len(research) != 1 || research[0].Name != "Alpha" {
		t.Errorf("Research category = %v", research)
	}
}

func TestValidateSource(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Probe</title><link>https://example.com</link><description>d</description><item><title>One</title><link>https://example.com/1</link></item></channel></rss>`)
	}))
	defer feed.Close()

	h := NewSourceHandler(testCatalog(t), ingestion.NewCollector(time.Hour, 5))
	handler := webutil.MakeHandler(h.HandleValidateSource)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/sources/validate",
		strings.NewReader(fmt.Sprintf(`{"url": %q}`, feed.URL))))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var result ingestion.ValidationResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.Valid || result.FeedTitle != "Probe" || result.ItemCount != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestValidateSourceReportsUnreachableFeed(t *testing.T) {
	h := NewSourceHandler(testCatalog(t), ingestion.NewCollector(time.Hour, 5))

	rec := httptest.NewRecorder()
	webutil.MakeHandler(h.HandleValidateSource)(rec, httptest.NewRequest(http.MethodPost, "/api/sources/validate",
		strings.NewReader(`{"url": "http://127.0.0.1:1/feed"}`)))

	// An unreachable feed is still a 200: the probe answered the question.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result ingestion.ValidationResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Valid || result.Error == "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestValidateSourceRejectsBadRequests(t *testing.T) {
	h := NewSourceHandler(testCatalog(t), ingestion.NewCollector(time.Hour, 5))
	handler := webutil.MakeHandler(h.HandleValidateSource)

	for _, body := range []string{`{}`, `{"url": ""}`, `not json`, `{"link": "https://x.example.com"}`} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/api/sources/validate", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}
