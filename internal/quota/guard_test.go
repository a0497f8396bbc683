package quota

import (
	"errors"
	"testing"
	"time"

	"github.com/dkorolev/veridict/internal/store"
)

func newTestGuard(limit int) (*Guard, *store.MemoryStore, *time.Time) {
	st := store.NewMemoryStore()
	g := New(st, limit)
	current := time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local)
	g.now = func() time.Time { return current }
	return g, st, &current
}

func TestGuard_CanRequest_FreshDay(t *testing.T) {
	g, _, _ := newTestGuard(100)

	d := g.CanRequest("groq")
	if !d.Allowed {
		t.Fatal("Expected fresh day to be allowed")
	}
	if d.Remaining != 100 || d.Total != 100 {
		t.Errorf("Expected 100/100 remaining, got %d/%d", d.Remaining, d.Total)
	}
	if d.NearLimit {
		t.Error("Expected NearLimit false on fresh day")
	}
}

func TestGuard_Increment_CountsDown(t *testing.T) {
	g, _, _ := newTestGuard(10)

	for i := 0; i < 3; i++ {
		g.Increment("groq")
	}

	d := g.CanRequest("groq")
	if d.Remaining != 7 {
		t.Errorf("Expected 7 remaining after 3 increments, got %d", d.Remaining)
	}
}

func TestGuard_CanRequest_AtLimitDenies(t *testing.T) {
	g, _, _ := newTestGuard(5)

	for i := 0; i < 5; i++ {
		g.Increment("groq")
	}

	d := g.CanRequest("groq")
	if d.Allowed {
		t.Error("Expected request denied at limit")
	}
	if d.Remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", d.Remaining)
	}
}

func TestGuard_CanRequest_NearLimitThreshold(t *testing.T) {
	g, _, _ := newTestGuard(10)

	for i := 0; i < 7; i++ {
		g.Increment("groq")
	}
	if d := g.CanRequest("groq"); d.NearLimit {
		t.Error("Expected NearLimit false at 70%")
	}

	g.Increment("groq")
	d := g.CanRequest("groq")
	if !d.NearLimit {
		t.Error("Expected NearLimit true at 80%")
	}
	if !d.Allowed {
		t.Error("Expected still allowed at 80%")
	}
}

func TestGuard_DayRollover_ResetsCounter(t *testing.T) {
	g, _, current := newTestGuard(5)

	for i := 0; i < 5; i++ {
		g.Increment("groq")
	}
	if d := g.CanRequest("groq"); d.Allowed {
		t.Fatal("Expected exhausted quota")
	}

	// Crossing midnight starts a fresh budget
	*current = current.Add(15 * time.Hour)
	d := g.CanRequest("groq")
	if !d.Allowed {
		t.Error("Expected quota reset after day rollover")
	}
	if d.Remaining != 5 {
		t.Errorf("Expected full budget after rollover, got %d", d.Remaining)
	}
}

func TestGuard_ResetTime_IsNextMidnight(t *testing.T) {
	g, _, current := newTestGuard(5)

	d := g.CanRequest("groq")
	wantReset := time.Date(2025, 6, 16, 0, 0, 0, 0, time.Local)
	if !d.ResetTime.Equal(wantReset) {
		t.Errorf("Expected reset at %v, got %v", wantReset, d.ResetTime)
	}
	_ = current
}

// brokenStore fails every operation
type brokenStore struct{}

func (brokenStore) Get(string) ([]byte, bool, error) { return nil, false, errors.New("io error") }
func (brokenStore) Set(string, []byte) error         { return errors.New("io error") }
func (brokenStore) Delete(string) error              { return errors.New("io error") }
func (brokenStore) Keys(string) ([]string, error)    { return nil, errors.New("io error") }
func (brokenStore) Clear() error                     { return errors.New("io error") }

func TestGuard_StorageError_FailsOpen(t *testing.T) {
	g := New(brokenStore{}, 100)

	d := g.CanRequest("groq")
	if !d.Allowed {
		t.Error("Expected broken storage to fail open")
	}

	// Increment must not panic either
	g.Increment("groq")
}

func TestFormatReset(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		reset time.Time
		want  string
	}{
		{"under an hour", now.Add(30 * time.Minute), "in 1 hour"},
		{"exactly one hour", now.Add(time.Hour), "in 1 hour"},
		{"partial hours round up", now.Add(2*time.Hour + 30*time.Minute), "in 3 hours"},
		{"many hours", now.Add(14 * time.Hour), "in 14 hours"},
		{"more than a day", now.Add(30 * time.Hour), "at midnight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatReset(tt.reset, now); got != tt.want {
				t.Errorf("FormatReset() = %q, want %q", got, tt.want)
			}
		})
	}
}
