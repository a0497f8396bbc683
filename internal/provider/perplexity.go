package provider

const perplexityBaseURL = "https://api.perplexity.ai"

// NewPerplexity creates the Perplexity provider. Sonar models carry
// built-in real-time search, so the same family serves both stages.
func NewPerplexity(cfg Config) Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = perplexityBaseURL
	}
	return &chatProvider{
		id:          "perplexity",
		displayName: "Perplexity",
		baseURL:     baseURL,
		detectModel: "sonar",
		verifyModel: "sonar-pro",
		httpClient:  newChatHTTPClient(cfg),
	}
}
