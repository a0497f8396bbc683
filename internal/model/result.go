package model

// Source is a citation returned by a provider
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ProviderResult is one provider's verification outcome.
// If Error is set the result is excluded from voting but kept for audit.
type ProviderResult struct {
	ProviderID   string   `json:"provider_id"`
	ProviderName string   `json:"provider_name"`
	Verdict      Verdict  `json:"verdict"`
	Confidence   int      `json:"confidence"` // 0-100
	Explanation  string   `json:"explanation"`
	Sources      []Source `json:"sources"`
	Error        string   `json:"error,omitempty"`
}

// Failed reports whether the provider call errored.
func (r ProviderResult) Failed() bool {
	return r.Error != ""
}

// AggregatedSource is a deduplicated citation annotated with the
// providers that cited it.
type AggregatedSource struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Providers []string `json:"providers"`
}

// Consensus summarizes how many providers agreed with the final verdict
type Consensus struct {
	Total               int `json:"total"`                // Non-error providers that completed
	Agreeing            int `json:"agreeing"`             // Providers matching the final verdict
	PercentageAgreement int `json:"percentage_agreement"` // 0-100
}

// VerdictGroup is one bloc of providers sharing a verdict
type VerdictGroup struct {
	Verdict    Verdict  `json:"verdict"`
	Providers  []string `json:"providers"`
	Confidence int      `json:"confidence"` // Mean confidence of the bloc
}

// Disagreement describes conflicting verdicts across providers,
// largest bloc first.
type Disagreement struct {
	HasDisagreement     bool           `json:"has_disagreement"`
	ConflictingVerdicts []VerdictGroup `json:"conflicting_verdicts"`
}

// AggregatedResult is the pipeline's final output. Every path out of the
// pipeline, including early exits, produces one of these.
type AggregatedResult struct {
	Verdict         Verdict            `json:"verdict"`
	Confidence      int                `json:"confidence"` // Weighted average, 0-100
	Explanation     string             `json:"explanation"`
	Sources         []AggregatedSource `json:"sources"`
	ProviderResults []ProviderResult   `json:"provider_results"`
	Consensus       Consensus          `json:"consensus"`
	Disagreement    *Disagreement      `json:"disagreement,omitempty"`
	SourceDiversity *SourceDiversity   `json:"source_diversity,omitempty"`
}
