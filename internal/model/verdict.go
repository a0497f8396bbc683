package model

// Verdict is the outcome of verifying a claim
type Verdict string

const (
	VerdictTrue    Verdict = "true"     // Claim supported by credible evidence
	VerdictFalse   Verdict = "false"    // Claim contradicted by credible evidence
	VerdictUnknown Verdict = "unknown"  // Insufficient or conflicting evidence
	VerdictNoClaim Verdict = "no_claim" // No checkable factual assertion found
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictUnknown, VerdictNoClaim:
		return true
	}
	return false
}
