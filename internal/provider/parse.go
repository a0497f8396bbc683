package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkorolev/veridict/internal/model"
)

// extractJSON returns the outermost JSON object embedded in model output.
// Models wrap responses in prose or code fences often enough that a plain
// Unmarshal of the whole body is not reliable.
func extractJSON(content string) (string, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return content[start : end+1], nil
}

// parseDetection decodes a stage-1 response
func parseDetection(content string) (*Detection, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var det Detection
	if err := json.Unmarshal([]byte(raw), &det); err != nil {
		return nil, fmt.Errorf("decode detection: %w", err)
	}
	if det.HasClaim && len(det.Claims) == 0 {
		return nil, fmt.Errorf("detection reported a claim but listed none")
	}
	return &det, nil
}

// verificationWire is the schema providers are prompted to return
type verificationWire struct {
	Verdict     string         `json:"verdict"`
	Confidence  float64        `json:"confidence"`
	Explanation string         `json:"explanation"`
	Sources     []model.Source `json:"sources"`
}

// parseVerification decodes a stage-2 response, clamping confidence to
// 0-100 and rejecting verdicts outside the contract.
func parseVerification(content string) (*Verification, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var wire verificationWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}

	verdict := model.Verdict(strings.ToLower(strings.TrimSpace(wire.Verdict)))
	switch verdict {
	case model.VerdictTrue, model.VerdictFalse, model.VerdictUnknown:
	default:
		return nil, fmt.Errorf("unexpected verdict %q", wire.Verdict)
	}

	confidence := int(wire.Confidence)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	sources := wire.Sources
	if len(sources) > 5 {
		sources = sources[:5]
	}

	return &Verification{
		Verdict:     verdict,
		Confidence:  confidence,
		Explanation: strings.TrimSpace(wire.Explanation),
		Sources:     sources,
	}, nil
}
