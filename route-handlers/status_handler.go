package routehandlers

import (
	"net/http"

	"github.com/cbarlow/newsbrief/processing"
	"github.com/cbarlow/newsbrief/webutil"
)

type StatusHandler struct {
	Status *processing.RunStatus
}

func NewStatusHandler(status *processing.RunStatus) *StatusHandler {
	return &StatusHandler{Status: status}
}

// HandleGetStatus reports the current or most recent run. Dashboards
// poll this endpoint, so it never blocks on run state.
func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) error {
	webutil.RespondWithJSON(w, http.StatusOK, h.Status.Snapshot())
	return nil
}
