package models

// TrendAnalysis is the cross-article analysis produced once per run and
// used as the executive summary of the digest. All fields come straight
// from the model's JSON response.
type TrendAnalysis struct {
	KeyTrends            []string `json:"key_trends"`
	NotableCompanies     []string `json:"notable_companies"`
	EmergingTechnologies []string `json:"emerging_technologies"`
	OverallSentiment     string   `json:"overall_sentiment"`
}

// Empty reports whether the analysis carries no content at all.
func (t *TrendAnalysis) Empty() bool {
	return t == nil ||
		(len(t.KeyTrends) == 0 && len(t.NotableCompanies) == 0 &&
			len(t.EmergingTechnologies) == 0 && t.OverallSentiment == "")
}
