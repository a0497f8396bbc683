package model

// SourceCategory classifies a citation by the kind of outlet behind it
type SourceCategory string

const (
	CategoryNewsOutlet   SourceCategory = "news_outlet"
	CategoryAcademic     SourceCategory = "academic"
	CategoryGovernment   SourceCategory = "government"
	CategoryFactChecker  SourceCategory = "fact_checker"
	CategorySocialMedia  SourceCategory = "social_media"
	CategoryEncyclopedia SourceCategory = "encyclopedia"
	CategoryOther        SourceCategory = "other"
)

// SourceCategories lists every category in precedence order. When a URL
// matches the trusted-domain set of more than one category, the first
// match in this order wins.
var SourceCategories = []SourceCategory{
	CategoryNewsOutlet,
	CategoryAcademic,
	CategoryGovernment,
	CategoryFactChecker,
	CategorySocialMedia,
	CategoryEncyclopedia,
}

// CategorizedSource is a citation with its derived category and bare domain
type CategorizedSource struct {
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Providers []string       `json:"providers"`
	Category  SourceCategory `json:"category"`
	Domain    string         `json:"domain"`
}

// SourceDiversity summarizes the spread of citations across categories
// and distinct domains.
type SourceDiversity struct {
	Categories         map[SourceCategory]int `json:"categories"`
	UniqueDomains      int                    `json:"unique_domains"`
	TotalSources       int                    `json:"total_sources"`
	CategorizedSources []CategorizedSource    `json:"categorized_sources"`
}
