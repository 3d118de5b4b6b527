package analysis

import (
	"strings"
	"unicode/utf8"

	"github.com/cbarlow/newsbrief/models"
)

const localSummaryRunes = 220

// LocalSummary builds a summary without the model: the lead of the
// article's content, cut at a word boundary. Deterministic, so a degraded
// run still produces a stable digest.
func LocalSummary(a *models.Article) string {
	text := strings.TrimSpace(a.Content)
	if text == "" {
		text = strings.TrimSpace(a.Description)
	}
	if text == "" {
		return a.Title
	}
	if utf8.RuneCountInString(text) <= localSummaryRunes {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:localSummaryRunes])
	if idx := strings.LastIndex(cut, " "); idx > localSummaryRunes/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
