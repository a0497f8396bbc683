package provider

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroq creates the Groq provider. This is the free tier that normally
// runs on the pooled credential, which is why its calls pass through the
// shared daily quota guard.
func NewGroq(cfg Config) Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	return &chatProvider{
		id:          "groq",
		displayName: "Groq (free)",
		baseURL:     baseURL,
		detectModel: "llama-3.3-70b-versatile",
		verifyModel: "llama-3.3-70b-versatile",
		jsonMode:    true,
		httpClient:  newChatHTTPClient(cfg),
	}
}
