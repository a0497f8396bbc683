package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func anthropicReply(text string) anthropicResponse {
	return anthropicResponse{
		Content: []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{
			{Type: "text", Text: text},
		},
		Model: anthropicDetectModel,
	}
}

func TestAnthropicProvider_DetectClaims_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Expected path /v1/messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("Expected x-api-key test-key, got %s", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != anthropicVersion {
			t.Errorf("Expected anthropic-version %s, got %s", anthropicVersion, r.Header.Get("anthropic-version"))
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode request failed: %v", err)
		}
		if req.System == "" {
			t.Error("Expected system prompt set")
		}
		if req.MaxTokens != anthropicMaxTokens {
			t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, anthropicMaxTokens)
		}

		_ = json.NewEncoder(w).Encode(anthropicReply(`{"hasClaim": true, "claims": ["Mount Everest is 8849m tall"], "reasoning": "elevation is checkable"}`))
	}))
	defer server.Close()

	p := NewAnthropic(Config{BaseURL: server.URL, Timeout: 5 * time.Second})

	det, err := p.DetectClaims(context.Background(), "Mount Everest is 8849m tall", "test-key")
	if err != nil {
		t.Fatalf("DetectClaims failed: %v", err)
	}
	if !det.HasClaim || len(det.Claims) != 1 {
		t.Errorf("Unexpected detection: %+v", det)
	}
}

func TestAnthropicProvider_VerifyClaim_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicReply(
			`{"verdict": "false", "confidence": 85, "explanation": "Contradicted by surveys.", "sources": []}`))
	}))
	defer server.Close()

	p := NewAnthropic(Config{BaseURL: server.URL, Timeout: 5 * time.Second})

	ver, err := p.VerifyClaim(context.Background(), "Mount Everest is 9000m tall", "test-key")
	if err != nil {
		t.Fatalf("VerifyClaim failed: %v", err)
	}
	if ver.Verdict != "false" || ver.Confidence != 85 {
		t.Errorf("Unexpected verification: %+v", ver)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	p := NewAnthropic(Config{BaseURL: server.URL, Timeout: 5 * time.Second})

	if _, err := p.DetectClaims(context.Background(), "some text", "bad-key"); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{Model: anthropicDetectModel})
	}))
	defer server.Close()

	p := NewAnthropic(Config{BaseURL: server.URL, Timeout: 5 * time.Second})

	if _, err := p.DetectClaims(context.Background(), "some text", "test-key"); err == nil {
		t.Fatal("Expected error for empty content, got nil")
	}
}

func TestAnthropicProvider_TestCredential_RequiresKey(t *testing.T) {
	p := NewAnthropic(Config{Timeout: time.Second})
	if err := p.TestCredential(context.Background(), ""); err == nil {
		t.Error("Expected error for empty key")
	}
	if err := p.TestCredential(context.Background(), "pooled:"); err == nil {
		t.Error("Expected error for pooled marker with no key")
	}
}
