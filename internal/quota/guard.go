// Package quota tracks consumption of the shared daily budget behind any
// provider that runs on a pooled credential. The guard protects the pooled
// key from exhaustion, but never at the price of denying service when its
// own storage is broken: check-path storage errors fail open.
package quota

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dkorolev/veridict/internal/store"
)

const (
	// DefaultDailyLimit matches the Groq free tier
	DefaultDailyLimit = 14400

	// nearLimitFraction is where the warning threshold sits
	nearLimitFraction = 0.8

	keyPrefix = "quota:"
	dayFormat = "2006-01-02"
)

// State is the persisted counter for one provider's quota day
type State struct {
	Date          string `json:"date"` // Local calendar day, YYYY-MM-DD
	TotalRequests int    `json:"total_requests"`
	Limit         int    `json:"limit"`
	ResetTime     int64  `json:"reset_time"` // Unix millis of next local midnight
}

// Decision is the outcome of a quota check
type Decision struct {
	Allowed   bool
	Remaining int
	Total     int
	ResetTime time.Time
	NearLimit bool // Consumption at or past 80% of the limit
}

// Guard gates requests against a shared daily quota
type Guard struct {
	store store.Store
	limit int

	mu  sync.Mutex
	now func() time.Time // Injectable for tests
}

// New creates a quota guard with the given daily limit
func New(st store.Store, dailyLimit int) *Guard {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Guard{
		store: st,
		limit: dailyLimit,
		now:   time.Now,
	}
}

// CanRequest reports whether the pooled credential behind providerID has
// budget left today. Storage errors fail open with a generous assumed
// budget: protecting the pooled key never outranks serving a user.
func (g *Guard) CanRequest(providerID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.loadState(providerID)
	if err != nil {
		log.WithError(err).WithField("provider", providerID).Warn("quota check failed, allowing request")
		return Decision{
			Allowed:   true,
			Remaining: 1000,
			Total:     g.limit,
			ResetTime: g.now().Add(24 * time.Hour),
		}
	}

	remaining := state.Limit - state.TotalRequests
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   state.TotalRequests < state.Limit,
		Remaining: remaining,
		Total:     state.Limit,
		ResetTime: time.UnixMilli(state.ResetTime),
		NearLimit: float64(state.TotalRequests)/float64(state.Limit) >= nearLimitFraction,
	}
}

// Increment records one consumed request. Called after the fact and off
// the response path; storage errors are logged and swallowed.
func (g *Guard) Increment(providerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, err := g.loadState(providerID)
	if err != nil {
		log.WithError(err).WithField("provider", providerID).Warn("quota increment dropped")
		return
	}

	state.TotalRequests++
	if err := g.saveState(providerID, state); err != nil {
		log.WithError(err).WithField("provider", providerID).Warn("quota increment dropped")
		return
	}

	if float64(state.TotalRequests)/float64(state.Limit) >= 0.9 {
		log.WithFields(log.Fields{
			"provider": providerID,
			"used":     state.TotalRequests,
			"limit":    state.Limit,
		}).Warn("shared quota nearly exhausted")
	}
}

// loadState returns today's state for the provider, re-initializing it
// whenever the stored day has rolled over.
func (g *Guard) loadState(providerID string) (*State, error) {
	now := g.now()
	today := now.Format(dayFormat)

	data, found, err := g.store.Get(keyPrefix + providerID)
	if err != nil {
		return nil, fmt.Errorf("load quota state: %w", err)
	}

	if found {
		var state State
		if err := json.Unmarshal(data, &state); err == nil && state.Date == today {
			if state.Limit != g.limit {
				state.Limit = g.limit
			}
			return &state, nil
		}
	}

	state := &State{
		Date:          today,
		TotalRequests: 0,
		Limit:         g.limit,
		ResetTime:     nextMidnight(now).UnixMilli(),
	}
	if err := g.saveState(providerID, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (g *Guard) saveState(providerID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}
	if err := g.store.Set(keyPrefix+providerID, data); err != nil {
		return fmt.Errorf("save quota state: %w", err)
	}
	return nil
}

// nextMidnight returns the provider's local reset boundary
func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
}

// FormatReset renders a human-readable reset time, e.g. "in 3 hours"
func FormatReset(resetTime time.Time, now time.Time) string {
	diff := resetTime.Sub(now)
	hours := int(diff / time.Hour)
	if diff%time.Hour > 0 {
		hours++
	}
	switch {
	case hours <= 1:
		return "in 1 hour"
	case hours < 24:
		return fmt.Sprintf("in %d hours", hours)
	default:
		return "at midnight"
	}
}
