package routehandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"

	"github.com/cbarlow/newsbrief/datastore"
	"github.com/cbarlow/newsbrief/ingestion"
	"github.com/cbarlow/newsbrief/processing"
	"github.com/cbarlow/newsbrief/webutil"
	"github.com/go-chi/chi/v5"
)

// RunStarter starts a digest run. *processing.DigestProcessor
// satisfies it.
type RunStarter interface {
	Start(sourceNames []string) (string, error)
}

type ReportHandler struct {
	Starter RunStarter
	Repo    *datastore.ReportRepository
	Catalog *ingestion.Catalog
}

func NewReportHandler(starter RunStarter, repo *datastore.ReportRepository, catalog *ingestion.Catalog) *ReportHandler {
	return &ReportHandler{Starter: starter, Repo: repo, Catalog: catalog}
}

type triggerRunRequest struct {
	Sources []string `json:"sources"`
}

// HandleTriggerRun starts a digest run in the background. An empty or
// absent body means all catalog sources.
func (h *ReportHandler) HandleTriggerRun(w http.ResponseWriter, r *http.Request) error {
	var req triggerRunRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil && err != io.EOF {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	// Reject unknown source names here so the caller gets a 400 instead
	// of a run that fails in the background.
	if _, err := h.Catalog.Select(req.Sources); err != nil {
		return webutil.ErrBadRequest(err.Error())
	}

	runID, err := h.Starter.Start(req.Sources)
	if err != nil {
		if errors.Is(err, processing.ErrRunInProgress) {
			return webutil.ErrConflict("A digest run is already in progress")
		}
		return webutil.ErrInternalServerWrap("Failed to start digest run", err)
	}

	log.Printf("INFO: Digest run %s triggered via API (%d sources requested)", runID, len(req.Sources))
	webutil.RespondWithJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
	return nil
}

func (h *ReportHandler) HandleListReports(w http.ResponseWriter, r *http.Request) error {
	files, err := h.Repo.List()
	if err != nil {
		return webutil.ErrInternalServerWrap("Failed to list reports", err)
	}
	webutil.RespondWithJSON(w, http.StatusOK, files)
	return nil
}

// HandleDownloadReport serves one report file as an attachment.
func (h *ReportHandler) HandleDownloadReport(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	path, err := h.Repo.Resolve(name)
	if err != nil {
		if errors.Is(err, datastore.ErrInvalidReportName) {
			return webutil.ErrBadRequest("Invalid report name")
		}
		if errors.Is(err, fs.ErrNotExist) {
			return webutil.ErrNotFound("Report not found")
		}
		return webutil.ErrInternalServerWrap("Failed to resolve report", err)
	}

	w.Header().Set(webutil.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
	return nil
}

func (h *ReportHandler) HandleDeleteReport(w http.ResponseWriter, r *http.Request) error {
	name := chi.URLParam(r, "name")

	if err := h.Repo.Delete(name); err != nil {
		if errors.Is(err, datastore.ErrInvalidReportName) {
			return webutil.ErrBadRequest("Invalid report name")
		}
		if errors.Is(err, fs.ErrNotExist) {
			return webutil.ErrNotFound("Report not found")
		}
		return webutil.ErrInternalServerWrap("Failed to delete report", err)
	}

	log.Printf("INFO: Report deleted: %s", name)
	w.WriteHeader(http.StatusNoContent)
	return nil
}
