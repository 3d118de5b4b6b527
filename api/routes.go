package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/cbarlow/newsbrief/route-handlers"
	"github.com/cbarlow/newsbrief/scheduler"
	"github.com/cbarlow/newsbrief/webutil"
)

const (
	apiBasePath     = "/api"
	statusBasePath  = "/status"
	reportsBasePath = "/reports"
	sourcesBasePath = "/sources"

	schedulerTickPath = "/scheduler/tick"
)

const (
	downloadSubPath = "/download"
	validateSubPath = "/validate"
)

const (
	paramName = "name" // Report file name parameter
)

func SetupRoutes(
	statusHandler *rh.StatusHandler,
	reportHandler *rh.ReportHandler,
	sourceHandler *rh.SourceHandler,
	sched *scheduler.Scheduler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log every request
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set a timeout context for requests

	r.Route(apiBasePath, func(r chi.Router) {
		configureStatusRoutes(r, statusHandler)
		configureReportRoutes(r, reportHandler)
		configureSourceRoutes(r, sourceHandler)
	})

	// Scheduler tick for cron use; a plain handler outside the JSON API.
	r.Post(schedulerTickPath, sched.HandleTick)

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Run Status Routes ---
func configureStatusRoutes(r chi.Router, handler *rh.StatusHandler) {
	r.Get(statusBasePath, webutil.MakeHandler(handler.HandleGetStatus))
}

// --- Report Routes ---
func configureReportRoutes(r chi.Router, handler *rh.ReportHandler) {
	specificReportPath := pathWithParam("", paramName) // e.g., "/{name}"

	r.Route(reportsBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleListReports))
		r.Post("/", webutil.MakeHandler(handler.HandleTriggerRun)) // Start a digest run
		r.Route(specificReportPath, func(r chi.Router) {
			r.Get(downloadSubPath, webutil.MakeHandler(handler.HandleDownloadReport)) // GET /reports/{name}/download
			r.Delete("/", webutil.MakeHandler(handler.HandleDeleteReport))
		})
	})
}

// --- Source Catalog Routes ---
func configureSourceRoutes(r chi.Router, handler *rh.SourceHandler) {
	r.Route(sourcesBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleGetSources))
		r.Post(validateSubPath, webutil.MakeHandler(handler.HandleValidateSource)) // Probe a candidate feed URL
	})
}

// --- Utility Functions ---

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
