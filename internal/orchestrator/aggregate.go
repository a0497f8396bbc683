package orchestrator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/sources"
)

// conservativeOrder is the tie-break order for the weighted vote: at equal
// accumulated weight the less committal verdict wins.
var conservativeOrder = []model.Verdict{
	model.VerdictUnknown,
	model.VerdictFalse,
	model.VerdictTrue,
}

// Aggregate combines per-provider results into one answer using
// confidence-weighted plurality voting. Error-flagged results stay in the
// output for audit but never vote.
func Aggregate(results []model.ProviderResult, analyzer *sources.Analyzer) *model.AggregatedResult {
	voting := make([]model.ProviderResult, 0, len(results))
	for _, r := range results {
		if !r.Failed() {
			voting = append(voting, r)
		}
	}

	if len(voting) == 0 {
		return &model.AggregatedResult{
			Verdict:         model.VerdictUnknown,
			Confidence:      0,
			Explanation:     "All fact-checking providers failed. Please try again later.",
			Sources:         []model.AggregatedSource{},
			ProviderResults: results,
			Consensus:       model.Consensus{Total: len(results)},
		}
	}

	// Each provider adds its confidence to its verdict's bucket, so
	// verdicts with more, or more confident, backers accumulate weight.
	weights := make(map[model.Verdict]int)
	for _, r := range voting {
		weights[r.Verdict] += r.Confidence
	}

	final := model.VerdictUnknown
	bestWeight := -1
	for _, verdict := range conservativeOrder {
		weight, ok := weights[verdict]
		if !ok {
			continue
		}
		if weight > bestWeight {
			final = verdict
			bestWeight = weight
		}
	}

	var agreeing []model.ProviderResult
	confidenceSum := 0
	for _, r := range voting {
		if r.Verdict == final {
			agreeing = append(agreeing, r)
			confidenceSum += r.Confidence
		}
	}
	confidence := int(math.Round(float64(confidenceSum) / float64(len(agreeing))))

	consensus := model.Consensus{
		Total:               len(voting),
		Agreeing:            len(agreeing),
		PercentageAgreement: int(math.Round(float64(len(agreeing)) / float64(len(voting)) * 100)),
	}

	disagreement := detectDisagreement(voting)

	merged := mergeSources(voting)
	var diversity *model.SourceDiversity
	if len(merged) > 0 && analyzer != nil {
		diversity = analyzer.Analyze(merged)
	}

	return &model.AggregatedResult{
		Verdict:         final,
		Confidence:      confidence,
		Explanation:     composeExplanation(final, agreeing, disagreement),
		Sources:         merged,
		ProviderResults: results,
		Consensus:       consensus,
		Disagreement:    disagreement,
		SourceDiversity: diversity,
	}
}

// detectDisagreement groups voting results by verdict, largest bloc
// first. Equal-sized blocs keep first-seen order.
func detectDisagreement(voting []model.ProviderResult) *model.Disagreement {
	var order []model.Verdict
	members := make(map[model.Verdict][]model.ProviderResult)
	for _, r := range voting {
		if _, seen := members[r.Verdict]; !seen {
			order = append(order, r.Verdict)
		}
		members[r.Verdict] = append(members[r.Verdict], r)
	}

	groups := make([]model.VerdictGroup, 0, len(order))
	for _, verdict := range order {
		bloc := members[verdict]
		names := make([]string, 0, len(bloc))
		confidenceSum := 0
		for _, r := range bloc {
			names = append(names, r.ProviderName)
			confidenceSum += r.Confidence
		}
		groups = append(groups, model.VerdictGroup{
			Verdict:    verdict,
			Providers:  names,
			Confidence: int(math.Round(float64(confidenceSum) / float64(len(bloc)))),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Providers) > len(groups[j].Providers)
	})

	return &model.Disagreement{
		HasDisagreement:     len(groups) > 1,
		ConflictingVerdicts: groups,
	}
}

// composeExplanation builds the combined explanation from the agreeing
// bloc, flagging consensus and dissent.
func composeExplanation(final model.Verdict, agreeing []model.ProviderResult, disagreement *model.Disagreement) string {
	first := agreeing[0]

	var explanation string
	if len(agreeing) == 1 {
		explanation = first.Explanation
		if disagreement.HasDisagreement {
			explanation += " Note: other providers reached a different conclusion."
		}
	} else {
		names := make([]string, 0, len(agreeing))
		for _, r := range agreeing {
			names = append(names, r.ProviderName)
		}
		explanation = fmt.Sprintf("Multiple sources agree: %s (Confirmed by: %s)", first.Explanation, strings.Join(names, ", "))
	}

	if disagreement.HasDisagreement {
		var dissent []string
		for _, group := range disagreement.ConflictingVerdicts {
			if group.Verdict == final {
				continue
			}
			dissent = append(dissent, fmt.Sprintf("%s (%s)", group.Verdict, strings.Join(group.Providers, ", ")))
		}
		if len(agreeing) > 1 && len(dissent) > 0 {
			explanation += fmt.Sprintf(" Dissenting verdicts: %s.", strings.Join(dissent, "; "))
		}
	}

	return explanation
}

// mergeSources deduplicates citations by case-insensitive URL. The first
// occurrence fixes title and URL; later ones only add their provider.
func mergeSources(voting []model.ProviderResult) []model.AggregatedSource {
	merged := []model.AggregatedSource{}
	index := make(map[string]int)

	for _, r := range voting {
		for _, src := range r.Sources {
			key := strings.ToLower(src.URL)
			if i, ok := index[key]; ok {
				if !containsString(merged[i].Providers, r.ProviderName) {
					merged[i].Providers = append(merged[i].Providers, r.ProviderName)
				}
				continue
			}
			index[key] = len(merged)
			merged = append(merged, model.AggregatedSource{
				Title:     src.Title,
				URL:       src.URL,
				Providers: []string{r.ProviderName},
			})
		}
	}
	return merged
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
