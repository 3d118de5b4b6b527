package models

// SourceStats counts what happened to one source's articles during a run.
type SourceStats struct {
	Fetched    int
	Summarized int
	FromCache  int
	Fallbacks  int
	Kept       int
}

// RunStats accumulates per-source counters and degradation notes for a
// single digest run. Operators read it (via the run summary table and the
// logs) to judge how complete a digest is.
type RunStats struct {
	Sources      map[string]*SourceStats
	FeedErrors   []string
	FilterFailed bool
	TrendsFailed bool
}

func NewRunStats() *RunStats {
	return &RunStats{Sources: make(map[string]*SourceStats)}
}

// ForSource returns the counter bucket for a source, creating it on first
// use.
func (s *RunStats) ForSource(name string) *SourceStats {
	if s.Sources == nil {
		s.Sources = make(map[string]*SourceStats)
	}
	st, ok := s.Sources[name]
	if !ok {
		st = &SourceStats{}
		s.Sources[name] = st
	}
	return st
}

// TotalKept sums the kept counters across sources.
func (s *RunStats) TotalKept() int {
	total := 0
	for _, st := range s.Sources {
		total += st.Kept
	}
	return total
}

// Degraded reports whether any part of the run fell back or failed short
// of aborting.
func (s *RunStats) Degraded() bool {
	if len(s.FeedErrors) > 0 || s.FilterFailed || s.TrendsFailed {
		return true
	}
	for _, st := range s.Sources {
		if st.Fallbacks > 0 {
			return true
		}
	}
	return false
}
