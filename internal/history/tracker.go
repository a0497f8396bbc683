// Package history records completed checks for usage statistics. Writes
// happen off the response path; a broken store costs the stats feature,
// never a verdict.
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/store"
)

const (
	storeKey  = "history:checks"
	maxRecent = 50
)

// Check is one recorded fact-check
type Check struct {
	Snippet      string        `json:"snippet"` // First chars of the checked text
	Verdict      model.Verdict `json:"verdict"`
	Confidence   int           `json:"confidence"`
	Platform     string        `json:"platform,omitempty"`
	Disagreement bool          `json:"disagreement"` // Providers split on the verdict
	CheckedAt    int64         `json:"checked_at"`   // Unix millis
}

// Stats summarizes recorded usage
type Stats struct {
	TotalChecks       int                   `json:"total_checks"`
	VerdictCounts     map[model.Verdict]int `json:"verdict_counts"`
	DisagreementRate  int                   `json:"disagreement_rate"` // Percent of checks with split verdicts
	AverageConfidence int                   `json:"average_confidence"`
	RecentChecks      []Check               `json:"recent_checks"`
}

type state struct {
	TotalChecks        int                   `json:"total_checks"`
	VerdictCounts      map[model.Verdict]int `json:"verdict_counts"`
	DisagreementChecks int                   `json:"disagreement_checks"`
	ConfidenceSum      int64                 `json:"confidence_sum"`
	Recent             []Check               `json:"recent"`
}

// Tracker persists usage records through the injected store
type Tracker struct {
	store store.Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewTracker creates a usage tracker
func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st, now: time.Now}
}

// Record appends one completed check
func (t *Tracker) Record(check Check) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.loadState()
	if err != nil {
		return err
	}

	if !check.Verdict.Valid() {
		return fmt.Errorf("record check: unknown verdict %q", check.Verdict)
	}
	if check.CheckedAt == 0 {
		check.CheckedAt = t.now().UnixMilli()
	}

	st.TotalChecks++
	st.VerdictCounts[check.Verdict]++
	st.ConfidenceSum += int64(check.Confidence)
	if check.Disagreement {
		st.DisagreementChecks++
	}

	st.Recent = append(st.Recent, check)
	if len(st.Recent) > maxRecent {
		st.Recent = st.Recent[len(st.Recent)-maxRecent:]
	}

	return t.saveState(st)
}

// Stats returns aggregate usage statistics
func (t *Tracker) Stats() (*Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, err := t.loadState()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalChecks:   st.TotalChecks,
		VerdictCounts: st.VerdictCounts,
		RecentChecks:  st.Recent,
	}
	if st.TotalChecks > 0 {
		stats.DisagreementRate = int(math.Round(float64(st.DisagreementChecks) / float64(st.TotalChecks) * 100))
		stats.AverageConfidence = int(st.ConfidenceSum / int64(st.TotalChecks))
	}
	return stats, nil
}

// Clear wipes recorded usage
func (t *Tracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Delete(storeKey)
}

func (t *Tracker) loadState() (*state, error) {
	data, found, err := t.store.Get(storeKey)
	if err != nil {
		return nil, fmt.Errorf("load usage history: %w", err)
	}

	st := &state{VerdictCounts: make(map[model.Verdict]int)}
	if found {
		if err := json.Unmarshal(data, st); err != nil {
			return nil, fmt.Errorf("decode usage history: %w", err)
		}
		if st.VerdictCounts == nil {
			st.VerdictCounts = make(map[model.Verdict]int)
		}
	}
	return st, nil
}

func (t *Tracker) saveState(st *state) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode usage history: %w", err)
	}
	if err := t.store.Set(storeKey, data); err != nil {
		return fmt.Errorf("save usage history: %w", err)
	}
	return nil
}
