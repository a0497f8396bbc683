// Package sources classifies citations into reliability categories,
// measures how diverse a result's source set is, and validates that
// cited links actually resolve.
package sources

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dkorolev/veridict/internal/model"
)

// trustedDomains holds well-known domains per category. Checked before the
// pattern fallback; a substring hit on any of these decides the category.
var trustedDomains = map[model.SourceCategory][]string{
	model.CategoryNewsOutlet: {
		"nytimes.com", "washingtonpost.com", "theguardian.com", "bbc.com",
		"reuters.com", "apnews.com", "bloomberg.com", "wsj.com", "npr.org",
		"economist.com",
	},
	model.CategoryAcademic: {
		"scholar.google.com", "pubmed.ncbi.nlm.nih.gov", "arxiv.org",
		"researchgate.net", "sciencedirect.com", "nature.com", "science.org",
	},
	model.CategoryGovernment: {
		"whitehouse.gov", "congress.gov", "state.gov", "cdc.gov", "fda.gov",
		"nih.gov", "nasa.gov",
	},
	model.CategoryFactChecker: {
		"factcheck.org", "snopes.com", "politifact.com", "fullfact.org",
		"factcheckni.org",
	},
	model.CategorySocialMedia: {
		"twitter.com", "x.com", "facebook.com", "linkedin.com", "reddit.com",
	},
	model.CategoryEncyclopedia: {
		"wikipedia.org", "britannica.com",
	},
}

// categoryPatterns is the regex fallback, matched against the combined
// lowercased url + title.
var categoryPatterns = map[model.SourceCategory][]string{
	model.CategoryNewsOutlet: {
		`\b(news|times|post|herald|tribune|journal|gazette|telegraph|guardian|bbc|cnn|reuters|ap|bloomberg|wsj)\b`,
		`\.(news|press|media)\.`,
	},
	model.CategoryAcademic: {
		`\.(edu|ac\.uk|ac\.\w+)/`,
		`\b(journal|scholar|research|university|college|academia|pubmed|arxiv|doi)\b`,
		`\bpmc\d+\b`,
	},
	model.CategoryGovernment: {
		`\.(gov|mil|gc\.ca)/`,
		`\b(senate|congress|parliament|whitehouse|state\.gov|legislation)\b`,
	},
	model.CategoryFactChecker: {
		`\b(factcheck|snopes|politifact|truthorfiction|leadstories|fullfact)\b`,
	},
	model.CategorySocialMedia: {
		`\b(twitter|facebook|instagram|linkedin|reddit|youtube|tiktok|x\.com)\b`,
	},
	model.CategoryEncyclopedia: {
		`\b(wikipedia|britannica|encyclopedia|wikimedia)\b`,
	},
}

// Analyzer categorizes citation URLs and computes diversity statistics
type Analyzer struct {
	patterns map[model.SourceCategory][]*regexp.Regexp
}

// NewAnalyzer creates an analyzer with the built-in category patterns
func NewAnalyzer() (*Analyzer, error) {
	compiled := make(map[model.SourceCategory][]*regexp.Regexp, len(categoryPatterns))
	for category, patterns := range categoryPatterns {
		for _, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("compile pattern for %s: %w", category, err)
			}
			compiled[category] = append(compiled[category], re)
		}
	}
	return &Analyzer{patterns: compiled}, nil
}

// Categorize classifies a single source by URL and title. The trusted
// domain sets are the fast path; patterns over url+title are the
// fallback; anything unmatched is "other".
func (a *Analyzer) Categorize(rawURL, title string) model.SourceCategory {
	urlLower := strings.ToLower(rawURL)
	combined := urlLower + " " + strings.ToLower(title)

	for _, category := range model.SourceCategories {
		for _, domain := range trustedDomains[category] {
			if strings.Contains(urlLower, domain) {
				return category
			}
		}
	}

	for _, category := range model.SourceCategories {
		for _, re := range a.patterns[category] {
			if re.MatchString(combined) {
				return category
			}
		}
	}

	return model.CategoryOther
}

// Analyze categorizes every source and summarizes category counts and
// distinct domains.
func (a *Analyzer) Analyze(sources []model.AggregatedSource) *model.SourceDiversity {
	categories := make(map[model.SourceCategory]int, len(model.SourceCategories)+1)
	for _, category := range model.SourceCategories {
		categories[category] = 0
	}
	categories[model.CategoryOther] = 0

	categorized := make([]model.CategorizedSource, 0, len(sources))
	domains := make(map[string]struct{})

	for _, src := range sources {
		category := a.Categorize(src.URL, src.Title)
		domain := ExtractDomain(src.URL)

		categories[category]++
		domains[domain] = struct{}{}
		categorized = append(categorized, model.CategorizedSource{
			Title:     src.Title,
			URL:       src.URL,
			Providers: src.Providers,
			Category:  category,
			Domain:    domain,
		})
	}

	return &model.SourceDiversity{
		Categories:         categories,
		UniqueDomains:      len(domains),
		TotalSources:       len(sources),
		CategorizedSources: categorized,
	}
}

// ExtractDomain returns the bare domain of a URL, without a leading www.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// DiversitySummary renders a short human-readable line, e.g.
// "2 news outlets, 1 fact-checker".
func DiversitySummary(diversity *model.SourceDiversity) string {
	var parts []string
	add := func(count int, singular, plural string) {
		if count == 1 {
			parts = append(parts, "1 "+singular)
		} else if count > 1 {
			parts = append(parts, fmt.Sprintf("%d %s", count, plural))
		}
	}

	add(diversity.Categories[model.CategoryNewsOutlet], "news outlet", "news outlets")
	add(diversity.Categories[model.CategoryAcademic], "academic source", "academic sources")
	add(diversity.Categories[model.CategoryGovernment], "government source", "government sources")
	add(diversity.Categories[model.CategoryFactChecker], "fact-checker", "fact-checkers")

	if len(parts) == 0 {
		if diversity.TotalSources == 1 {
			return "1 source"
		}
		return fmt.Sprintf("%d sources", diversity.TotalSources)
	}
	return strings.Join(parts, ", ")
}
