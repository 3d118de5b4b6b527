package scheduler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cbarlow/newsbrief/processing"
)

const defaultInterval = 24 * time.Hour

// RunStarter starts a digest run. *processing.DigestProcessor
// satisfies it.
type RunStarter interface {
	Start(sourceNames []string) (string, error)
}

// Scheduler starts a digest run whenever enough time has passed since
// the previous one. It keeps no timer of its own; an external cron
// hits the tick endpoint and the scheduler decides whether to fire.
type Scheduler struct {
	starter  RunStarter
	interval time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

// New creates a Scheduler that fires at most once per interval.
func New(starter RunStarter, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{starter: starter, interval: interval}
}

// HandleTick is an HTTP handler that triggers a scheduler tick.
// Used by cron or manual curl requests.
func (s *Scheduler) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Scheduler): Tick triggered via HTTP")

	started, err := s.Tick(r.Context())
	if err != nil {
		log.Printf("ERROR (Scheduler): Tick failed: %v", err)
		http.Error(w, "scheduler tick failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if started {
		fmt.Fprint(w, "OK: run started")
	} else {
		fmt.Fprint(w, "OK: no run due")
	}
}

// Tick runs a single scheduler cycle. It starts a run when the
// interval has elapsed since the last one and no run is active,
// and reports whether it did.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if !s.lastRun.IsZero() && now.Sub(s.lastRun) < s.interval {
		log.Printf("INFO (Scheduler): Next run not due until %s", s.lastRun.Add(s.interval).Format(time.RFC3339))
		return false, nil
	}

	runID, err := s.starter.Start(nil)
	if err == processing.ErrRunInProgress {
		// The active run already covers this tick's articles.
		log.Println("INFO (Scheduler): Skipping tick, a run is already active")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to start scheduled run: %w", err)
	}

	s.lastRun = now
	log.Printf("INFO (Scheduler): Started run %s", runID)
	return true, nil
}
