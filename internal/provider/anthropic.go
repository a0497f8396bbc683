package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dkorolev/veridict/internal/util"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicVersion      = "2023-06-01"
	anthropicDetectModel  = "claude-3-5-haiku-20241022"
	anthropicVerifyModel  = "claude-3-5-sonnet-20241022"
	anthropicMaxTokens    = 1000
	anthropicProbeTokens  = 10
)

// AnthropicProvider implements Provider against the Anthropic Messages API
type AnthropicProvider struct {
	baseURL    string
	httpClient *http.Client
}

// Anthropic API structures
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropic creates the Anthropic provider
func NewAnthropic(cfg Config) Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
	}
}

// ID returns the provider identifier
func (p *AnthropicProvider) ID() string { return "anthropic" }

// DisplayName returns the human-readable provider name
func (p *AnthropicProvider) DisplayName() string { return "Anthropic" }

// TestCredential checks the key with a minimal completion
func (p *AnthropicProvider) TestCredential(ctx context.Context, apiKey string) error {
	if credential(apiKey) == "" {
		return fmt.Errorf("Anthropic: API key is required")
	}
	_, err := p.makeRequest(ctx, apiKey, anthropicRequest{
		Model:     anthropicDetectModel,
		MaxTokens: anthropicProbeTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: "Hi"}},
	})
	if err != nil {
		return fmt.Errorf("Anthropic: credential rejected: %w", err)
	}
	return nil
}

// DetectClaims runs the stage-1 classification
func (p *AnthropicProvider) DetectClaims(ctx context.Context, text, apiKey string) (*Detection, error) {
	content, err := p.complete(ctx, apiKey, anthropicDetectModel, detectSystemPrompt, detectUserPrompt(text), 0.3)
	if err != nil {
		return nil, err
	}
	det, err := parseDetection(content)
	if err != nil {
		return nil, fmt.Errorf("Anthropic: %w", err)
	}
	return det, nil
}

// VerifyClaim runs the stage-2 verification
func (p *AnthropicProvider) VerifyClaim(ctx context.Context, claim, apiKey string) (*Verification, error) {
	content, err := p.complete(ctx, apiKey, anthropicVerifyModel, verifySystemPrompt, verifyUserPrompt(claim), 0.5)
	if err != nil {
		return nil, err
	}
	ver, err := parseVerification(content)
	if err != nil {
		return nil, fmt.Errorf("Anthropic: %w", err)
	}
	return ver, nil
}

func (p *AnthropicProvider) complete(ctx context.Context, apiKey, chatModel, system, user string, temperature float64) (string, error) {
	resp, err := p.makeRequest(ctx, apiKey, anthropicRequest{
		Model:       chatModel,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("Anthropic: empty response")
	}
	return resp.Content[0].Text, nil
}

// makeRequest sends one Messages API call
func (p *AnthropicProvider) makeRequest(ctx context.Context, apiKey string, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", credential(apiKey))
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s - %s", httpResp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}
