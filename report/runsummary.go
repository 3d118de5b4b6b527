package report

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/cbarlow/newsbrief/models"
)

// RunSummaryTable renders per-source run counters as an ASCII table for
// the logs, one row per source plus a totals footer.
func RunSummaryTable(stats *models.RunStats) string {
	names := make([]string, 0, len(stats.Sources))
	for name := range stats.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	var totals models.SourceStats
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Source", "Fetched", "Cached", "Summarized", "Fallback", "Kept"})

	for _, name := range names {
		st := stats.Sources[name]
		table.Append([]string{
			name,
			strconv.Itoa(st.Fetched),
			strconv.Itoa(st.FromCache),
			strconv.Itoa(st.Summarized),
			strconv.Itoa(st.Fallbacks),
			strconv.Itoa(st.Kept),
		})
		totals.Fetched += st.Fetched
		totals.FromCache += st.FromCache
		totals.Summarized += st.Summarized
		totals.Fallbacks += st.Fallbacks
		totals.Kept += st.Kept
	}

	table.SetFooter([]string{
		"Total",
		strconv.Itoa(totals.Fetched),
		strconv.Itoa(totals.FromCache),
		strconv.Itoa(totals.Summarized),
		strconv.Itoa(totals.Fallbacks),
		strconv.Itoa(totals.Kept),
	})
	table.Render()
	return buf.String()
}
