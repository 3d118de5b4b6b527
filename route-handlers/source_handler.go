package routehandlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/cbarlow/newsbrief/ingestion"
	"github.com/cbarlow/newsbrief/webutil"
)

type SourceHandler struct {
	Catalog   *ingestion.Catalog
	Collector *ingestion.Collector
}

func NewSourceHandler(catalog *ingestion.Catalog, collector *ingestion.Collector) *SourceHandler {
	return &SourceHandler{Catalog: catalog, Collector: collector}
}

// HandleGetSources lists the configured feed catalog grouped by
// category.
func (h *SourceHandler) HandleGetSources(w http.ResponseWriter, r *http.Request) error {
	webutil.RespondWithJSON(w, http.StatusOK, map[string]any{
		"total":      len(h.Catalog.All()),
		"categories": h.Catalog.ByCategory(),
	})
	return nil
}

type validateSourceRequest struct {
	URL string `json:"url"`
}

// HandleValidateSource probes a feed URL and reports whether it parses.
// The probe result is a payload, not an error: an unreachable feed is a
// valid answer to the question being asked.
func (h *SourceHandler) HandleValidateSource(w http.ResponseWriter, r *http.Request) error {
	var req validateSourceRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if req.URL == "" {
		return webutil.ErrBadRequest("Missing required field (url)")
	}
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return webutil.ErrBadRequest("Invalid url format")
	}

	result := h.Collector.ValidateFeed(r.Context(), req.URL)
	webutil.RespondWithJSON(w, http.StatusOK, result)
	return nil
}
