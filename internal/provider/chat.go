package provider

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dkorolev/veridict/internal/util"
)

// chatProvider implements Provider over any OpenAI-compatible chat
// completions API. OpenAI, Perplexity and Groq all speak this dialect;
// only endpoint, models and JSON-mode support differ.
type chatProvider struct {
	id          string
	displayName string
	baseURL     string
	detectModel string
	verifyModel string
	jsonMode    bool // Whether the backend honors response_format json_object
	httpClient  *http.Client
}

func newChatHTTPClient(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}
}

// client builds a per-call client so the credential never outlives the call
func (p *chatProvider) client(apiKey string) *openai.Client {
	clientConfig := openai.DefaultConfig(credential(apiKey))
	if p.baseURL != "" {
		clientConfig.BaseURL = p.baseURL
	}
	if p.httpClient != nil {
		clientConfig.HTTPClient = p.httpClient
	}
	return openai.NewClientWithConfig(clientConfig)
}

// ID returns the provider identifier
func (p *chatProvider) ID() string { return p.id }

// DisplayName returns the human-readable provider name
func (p *chatProvider) DisplayName() string { return p.displayName }

// TestCredential checks the key with a lightweight model-list call
func (p *chatProvider) TestCredential(ctx context.Context, apiKey string) error {
	if credential(apiKey) == "" {
		return fmt.Errorf("%s: API key is required", p.displayName)
	}
	if _, err := p.client(apiKey).ListModels(ctx); err != nil {
		return fmt.Errorf("%s: credential rejected: %w", p.displayName, err)
	}
	return nil
}

// DetectClaims runs the stage-1 classification
func (p *chatProvider) DetectClaims(ctx context.Context, text, apiKey string) (*Detection, error) {
	content, err := p.complete(ctx, apiKey, p.detectModel, detectSystemPrompt, detectUserPrompt(text), 0.3)
	if err != nil {
		return nil, err
	}
	det, err := parseDetection(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.displayName, err)
	}
	return det, nil
}

// VerifyClaim runs the stage-2 verification
func (p *chatProvider) VerifyClaim(ctx context.Context, claim, apiKey string) (*Verification, error) {
	content, err := p.complete(ctx, apiKey, p.verifyModel, verifySystemPrompt, verifyUserPrompt(claim), 0.5)
	if err != nil {
		return nil, err
	}
	ver, err := parseVerification(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.displayName, err)
	}
	return ver, nil
}

func (p *chatProvider) complete(ctx context.Context, apiKey, chatModel, system, user string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	}
	if p.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client(apiKey).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", p.displayName, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", p.displayName)
	}
	return resp.Choices[0].Message.Content, nil
}
