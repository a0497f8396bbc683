package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Distinct providers have independent buckets
	if err := limiter.Wait(ctx, "groq"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimitDelays(t *testing.T) {
	limiter := NewLimiter(10, 1) // 10 rps, burst 1

	ctx := context.Background()
	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected second call delayed ~100ms, took %v", elapsed)
	}
}

func TestLimiter_Allow(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("groq") {
		t.Error("expected first call allowed")
	}
	if limiter.Allow("groq") {
		t.Error("expected second immediate call denied")
	}
	if !limiter.Allow("openai") {
		t.Error("expected different provider unaffected")
	}
}

func TestLimiter_SetProviderRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetProviderRate("groq", 1000, 10)

	for i := 0; i < 5; i++ {
		if !limiter.Allow("groq") {
			t.Fatalf("expected call %d allowed under raised rate", i)
		}
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.1, 1) // One call per 10s
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(cancelled, "openai"); err == nil {
		t.Error("expected context deadline error on saturated limiter")
	}
}
