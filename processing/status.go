package processing

import (
	"sync"
	"time"
)

// Snapshot is the status payload the API serves while a run is in flight
// and after it finishes.
type Snapshot struct {
	Running           bool       `json:"running"`
	RunID             string     `json:"run_id,omitempty"`
	Progress          string     `json:"progress,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	DurationSeconds   float64    `json:"duration_seconds"`
	ArticlesProcessed int        `json:"articles_processed"`
	Error             string     `json:"error,omitempty"`
	LastReport        string     `json:"last_report,omitempty"`
}

// RunStatus tracks the digest run lifecycle. One instance lives for the
// process lifetime; all methods are safe for concurrent use. Begin is the
// mutual-exclusion gate that keeps runs from overlapping.
type RunStatus struct {
	mu         sync.Mutex
	running    bool
	runID      string
	progress   string
	startedAt  time.Time
	finishedAt time.Time
	articles   int
	lastError  string
	lastReport string
}

func NewRunStatus() *RunStatus {
	return &RunStatus{}
}

// Begin claims the run slot. It returns false when a run already holds it.
func (s *RunStatus) Begin(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.runID = runID
	s.progress = "starting"
	s.startedAt = time.Now().UTC()
	s.finishedAt = time.Time{}
	s.articles = 0
	s.lastError = ""
	return true
}

func (s *RunStatus) SetProgress(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = stage
}

func (s *RunStatus) SetArticles(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles = n
}

// Complete releases the run slot after a successful run.
func (s *RunStatus) Complete(lastReport string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.progress = "complete"
	s.finishedAt = time.Now().UTC()
	if lastReport != "" {
		s.lastReport = lastReport
	}
}

// Fail releases the run slot after a failed run, recording the error for
// the status API.
func (s *RunStatus) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.progress = "failed"
	s.finishedAt = time.Now().UTC()
	if err != nil {
		s.lastError = err.Error()
	}
}

// Snapshot returns a point-in-time copy for the status API. Duration runs
// up to now while the run is live, and freezes at completion afterwards.
func (s *RunStatus) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Running:           s.running,
		RunID:             s.runID,
		Progress:          s.progress,
		ArticlesProcessed: s.articles,
		Error:             s.lastError,
		LastReport:        s.lastReport,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		snap.StartedAt = &started

		end := s.finishedAt
		if s.running || end.IsZero() {
			end = time.Now().UTC()
		}
		snap.DurationSeconds = end.Sub(s.startedAt).Seconds()
	}
	return snap
}
