package provider

import openai "github.com/sashabaranov/go-openai"

// NewOpenAI creates the OpenAI provider. Detection runs on the cheap
// model; verification on the strong one.
func NewOpenAI(cfg Config) Provider {
	return &chatProvider{
		id:          "openai",
		displayName: "OpenAI",
		baseURL:     cfg.BaseURL,
		detectModel: openai.GPT4oMini,
		verifyModel: openai.GPT4o,
		jsonMode:    true,
		httpClient:  newChatHTTPClient(cfg),
	}
}
