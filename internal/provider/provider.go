// Package provider defines the uniform capability every verification
// provider implements and the concrete providers behind it. Each provider
// is stateless: the credential travels with the call.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/dkorolev/veridict/internal/model"
)

// PooledPrefix marks a credential as pooled: a shared key embedded in the
// product and subject to the global daily quota. Caller-supplied keys
// never carry it.
const PooledPrefix = "pooled:"

// Detection is the outcome of the claim-detection stage
type Detection struct {
	HasClaim  bool     `json:"hasClaim"`
	Claims    []string `json:"claims"`
	Reasoning string   `json:"reasoning"`
}

// Verification is the outcome of the claim-verification stage
type Verification struct {
	Verdict     model.Verdict  `json:"verdict"`
	Confidence  int            `json:"confidence"`
	Explanation string         `json:"explanation"`
	Sources     []model.Source `json:"sources"`
}

// Provider is the uniform asynchronous capability of a verification
// backend. All methods may fail; callers must treat failures as data.
type Provider interface {
	// ID returns the stable provider identifier, e.g. "openai"
	ID() string

	// DisplayName returns the human-readable provider name
	DisplayName() string

	// TestCredential checks whether the key is accepted by the backend
	TestCredential(ctx context.Context, apiKey string) error

	// DetectClaims decides whether text contains checkable factual claims
	DetectClaims(ctx context.Context, text, apiKey string) (*Detection, error)

	// VerifyClaim verifies a single claim and returns a verdict with sources
	VerifyClaim(ctx context.Context, claim, apiKey string) (*Verification, error)
}

// Config holds shared provider construction options
type Config struct {
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	// BaseURL overrides the provider endpoint (tests, self-hosted gateways)
	BaseURL string
}

// IsPooledCredential reports whether the key is a pooled/embedded one
func IsPooledCredential(apiKey string) bool {
	return strings.HasPrefix(apiKey, PooledPrefix)
}

// credential strips the pooled marker so the backend sees the bare key
func credential(apiKey string) string {
	return strings.TrimPrefix(apiKey, PooledPrefix)
}
