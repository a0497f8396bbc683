package orchestrator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkorolev/veridict/internal/cache"
	"github.com/dkorolev/veridict/internal/history"
	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/provider"
	"github.com/dkorolev/veridict/internal/quota"
	"github.com/dkorolev/veridict/internal/store"
)

// fakeProvider returns canned stage outcomes and counts calls
type fakeProvider struct {
	id           string
	name         string
	detection    *provider.Detection
	detectErr    error
	verification *provider.Verification
	verifyErr    error
	detectDelay  time.Duration

	detectCalls int32
	verifyCalls int32
	gotClaim    string // Claim passed to the last VerifyClaim call
}

func (f *fakeProvider) ID() string          { return f.id }
func (f *fakeProvider) DisplayName() string { return f.name }

func (f *fakeProvider) TestCredential(ctx context.Context, apiKey string) error { return nil }

func (f *fakeProvider) DetectClaims(ctx context.Context, text, apiKey string) (*provider.Detection, error) {
	atomic.AddInt32(&f.detectCalls, 1)
	if f.detectDelay > 0 {
		select {
		case <-time.After(f.detectDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return f.detection, nil
}

func (f *fakeProvider) VerifyClaim(ctx context.Context, claim, apiKey string) (*provider.Verification, error) {
	atomic.AddInt32(&f.verifyCalls, 1)
	f.gotClaim = claim
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verification, nil
}

func detects(claim string) *provider.Detection {
	return &provider.Detection{HasClaim: true, Claims: []string{claim}}
}

func verifies(verdict model.Verdict, confidence int, srcs ...model.Source) *provider.Verification {
	return &provider.Verification{
		Verdict:     verdict,
		Confidence:  confidence,
		Explanation: "because sources say so",
		Sources:     srcs,
	}
}

type testEnv struct {
	cfg   *model.Config
	store *store.MemoryStore
	cache *cache.ResultCache
	guard *quota.Guard
	orch  *Orchestrator
}

// newTestEnv wires an orchestrator over fakes. Keys default to personal
// ones; pass pooled as the id of a provider to run on the shared
// credential.
func newTestEnv(t *testing.T, pooled string, providers ...*fakeProvider) *testEnv {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Providers = make(map[string]model.ProviderSettings, len(providers))
	registered := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		key := "key-" + p.id
		if p.id == pooled {
			key = provider.PooledPrefix + key
		}
		cfg.Providers[p.id] = model.ProviderSettings{Enabled: true, APIKey: key}
		registered = append(registered, p)
	}
	cfg.Concurrency.ProviderRate = 1000
	cfg.Concurrency.ProviderBurst = 100
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Quota.DailyLimit = 10

	st := store.NewMemoryStore()
	resultCache := cache.New(st, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	guard := quota.New(st, cfg.Quota.DailyLimit)

	orch := New(cfg, provider.NewRegistry(registered...), Options{
		Cache:   resultCache,
		Guard:   guard,
		Tracker: history.NewTracker(st),
	})
	return &testEnv{cfg: cfg, store: st, cache: resultCache, guard: guard, orch: orch}
}

func TestCheckClaim_TwoStageAggregation(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 90)}
	perplexity := &fakeProvider{id: "perplexity", name: "Perplexity",
		detection: detects("the claim"), verification: verifies(model.VerdictFalse, 40)}
	groq := &fakeProvider{id: "groq", name: "Groq",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 60)}

	env := newTestEnv(t, "", openai, perplexity, groq)
	result := env.orch.CheckClaim(context.Background(), "The sky is blue", "")
	env.orch.WaitBackground()

	if result.Verdict != model.VerdictTrue {
		t.Errorf("Verdict = %s, want true", result.Verdict)
	}
	if result.Confidence != 75 {
		t.Errorf("Confidence = %d, want 75", result.Confidence)
	}
	if result.Consensus.PercentageAgreement != 67 {
		t.Errorf("PercentageAgreement = %d, want 67", result.Consensus.PercentageAgreement)
	}
	for _, p := range []*fakeProvider{openai, perplexity, groq} {
		if atomic.LoadInt32(&p.detectCalls) != 1 || atomic.LoadInt32(&p.verifyCalls) != 1 {
			t.Errorf("%s: detect=%d verify=%d, want 1/1", p.id, p.detectCalls, p.verifyCalls)
		}
	}
}

func TestCheckClaim_NoClaimShortCircuit(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: &provider.Detection{HasClaim: false}}
	groq := &fakeProvider{id: "groq", name: "Groq",
		detection: &provider.Detection{HasClaim: false}}

	env := newTestEnv(t, "", openai, groq)
	result := env.orch.CheckClaim(context.Background(), "I love mornings", "")
	env.orch.WaitBackground()

	if result.Verdict != model.VerdictNoClaim {
		t.Errorf("Verdict = %s, want no_claim", result.Verdict)
	}
	if result.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", result.Confidence)
	}
	if result.Consensus.Total != 2 || result.Consensus.Agreeing != 2 {
		t.Errorf("Consensus = %d/%d, want 2/2", result.Consensus.Agreeing, result.Consensus.Total)
	}
	if openai.verifyCalls != 0 || groq.verifyCalls != 0 {
		t.Error("Expected verification stage skipped")
	}

	// The short-circuit outcome is cached like any other
	if cached, ok := env.cache.Get("I love mornings"); !ok {
		t.Error("Expected no_claim result cached")
	} else if cached.Verdict != model.VerdictNoClaim {
		t.Errorf("Cached verdict = %s, want no_claim", cached.Verdict)
	}
}

func TestCheckClaim_CacheHitSkipsProviders(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 90)}

	env := newTestEnv(t, "", openai)
	text := "Mount Everest is the tallest mountain"

	first := env.orch.CheckClaim(context.Background(), text, "")
	env.orch.WaitBackground()
	second := env.orch.CheckClaim(context.Background(), "  mount everest   is the TALLEST mountain ", "")
	env.orch.WaitBackground()

	if second.Verdict != first.Verdict || second.Confidence != first.Confidence {
		t.Errorf("Cached result differs: %+v vs %+v", second, first)
	}
	if atomic.LoadInt32(&openai.detectCalls) != 1 {
		t.Errorf("detectCalls = %d, want 1 (second call served from cache)", openai.detectCalls)
	}
}

func TestCheckClaim_NoProvidersConfigured(t *testing.T) {
	env := newTestEnv(t, "")
	result := env.orch.CheckClaim(context.Background(), "anything", "")

	if result.Verdict != model.VerdictUnknown || result.Confidence != 0 {
		t.Errorf("Got %s/%d, want unknown/0", result.Verdict, result.Confidence)
	}
	if !strings.Contains(result.Explanation, "No verification providers") {
		t.Errorf("Unexpected explanation: %q", result.Explanation)
	}
}

func TestCheckClaim_QuotaExhaustedBlocksBeforeProviders(t *testing.T) {
	groq := &fakeProvider{id: "groq", name: "Groq",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 80)}

	env := newTestEnv(t, "groq", groq)
	for i := 0; i < env.cfg.Quota.DailyLimit; i++ {
		env.guard.Increment("groq")
	}

	result := env.orch.CheckClaim(context.Background(), "Some pooled-tier claim", "")

	if result.Verdict != model.VerdictUnknown || result.Confidence != 0 {
		t.Errorf("Got %s/%d, want unknown/0", result.Verdict, result.Confidence)
	}
	if !strings.Contains(result.Explanation, "daily limit") {
		t.Errorf("Unexpected explanation: %q", result.Explanation)
	}
	if !strings.Contains(result.Explanation, "Checks resume") {
		t.Errorf("Expected reset phrasing, got %q", result.Explanation)
	}
	if atomic.LoadInt32(&groq.detectCalls) != 0 {
		t.Error("Expected no provider calls once quota is exhausted")
	}
}

func TestCheckClaim_PooledUseIncrementsQuota(t *testing.T) {
	groq := &fakeProvider{id: "groq", name: "Groq",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 80)}

	env := newTestEnv(t, "groq", groq)
	env.orch.CheckClaim(context.Background(), "Some pooled-tier claim", "")
	env.orch.WaitBackground()

	decision := env.guard.CanRequest("groq")
	if used := decision.Total - decision.Remaining; used != 1 {
		t.Errorf("Quota used = %d, want 1", used)
	}
}

func TestCheckClaim_PersonalKeyDoesNotTouchQuota(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 80)}

	env := newTestEnv(t, "", openai)
	env.orch.CheckClaim(context.Background(), "Some claim", "")
	env.orch.WaitBackground()

	decision := env.guard.CanRequest("openai")
	if used := decision.Total - decision.Remaining; used != 0 {
		t.Errorf("Quota used = %d, want 0 for personal keys", used)
	}
}

func TestCheckClaim_DetectionFailuresTolerated(t *testing.T) {
	healthy := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 85)}
	broken := &fakeProvider{id: "groq", name: "Groq",
		detectErr: context.DeadlineExceeded}

	env := newTestEnv(t, "", healthy, broken)
	result := env.orch.CheckClaim(context.Background(), "Some claim", "")
	env.orch.WaitBackground()

	if result.Verdict != model.VerdictTrue {
		t.Errorf("Verdict = %s, want true from the healthy provider", result.Verdict)
	}
	if result.Consensus.Total != 1 {
		t.Errorf("Consensus.Total = %d, want 1", result.Consensus.Total)
	}
}

func TestCheckClaim_VerificationFailureBecomesAuditEntry(t *testing.T) {
	healthy := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 85)}
	flaky := &fakeProvider{id: "groq", name: "Groq",
		detection: detects("the claim"), verifyErr: context.DeadlineExceeded}

	env := newTestEnv(t, "", healthy, flaky)
	result := env.orch.CheckClaim(context.Background(), "Some claim", "")
	env.orch.WaitBackground()

	if result.Verdict != model.VerdictTrue {
		t.Errorf("Verdict = %s, want true", result.Verdict)
	}
	if len(result.ProviderResults) != 2 {
		t.Fatalf("Expected 2 provider results, got %d", len(result.ProviderResults))
	}
	var audit *model.ProviderResult
	for i := range result.ProviderResults {
		if result.ProviderResults[i].Failed() {
			audit = &result.ProviderResults[i]
		}
	}
	if audit == nil {
		t.Fatal("Expected the failed verification kept as an error-flagged result")
	}
	if audit.Verdict != model.VerdictUnknown || audit.Confidence != 0 {
		t.Errorf("Audit entry = %s/%d, want unknown/0", audit.Verdict, audit.Confidence)
	}
	if result.Consensus.Total != 1 {
		t.Errorf("Consensus.Total = %d, failures must not vote", result.Consensus.Total)
	}
}

func TestCheckClaim_IdenticalConcurrentChecksRunOnce(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 90),
		detectDelay: 100 * time.Millisecond}

	env := newTestEnv(t, "", openai)
	text := "The speed of light is 299792458 m/s"

	var wg sync.WaitGroup
	results := make([]*model.AggregatedResult, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = env.orch.CheckClaim(context.Background(), text, "")
	}()
	time.Sleep(20 * time.Millisecond) // Let the first call claim the flight
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = env.orch.CheckClaim(context.Background(), text, "")
	}()
	wg.Wait()
	env.orch.WaitBackground()

	if atomic.LoadInt32(&openai.detectCalls) != 1 {
		t.Errorf("detectCalls = %d, want 1 (duplicate joined in-flight check)", openai.detectCalls)
	}
	if results[0] != results[1] {
		t.Error("Expected both callers to receive the same result")
	}
}

func TestCheckClaim_RecordsHistory(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"), verification: verifies(model.VerdictTrue, 90)}

	env := newTestEnv(t, "", openai)
	env.orch.CheckClaim(context.Background(), "Some historical claim", "reddit")
	env.orch.WaitBackground()

	tracker := history.NewTracker(env.store)
	stats, err := tracker.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalChecks != 1 {
		t.Fatalf("TotalChecks = %d, want 1", stats.TotalChecks)
	}
	if stats.RecentChecks[0].Platform != "reddit" {
		t.Errorf("Platform = %q, want reddit", stats.RecentChecks[0].Platform)
	}
}

func TestCheckClaim_SourcesMergedAcrossProviders(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the claim"),
		verification: verifies(model.VerdictTrue, 90,
			model.Source{Title: "Reuters", URL: "https://reuters.com/x"})}
	groq := &fakeProvider{id: "groq", name: "Groq",
		detection: detects("the claim"),
		verification: verifies(model.VerdictTrue, 80,
			model.Source{Title: "Reuters again", URL: "https://Reuters.com/X"})}

	env := newTestEnv(t, "", openai, groq)
	result := env.orch.CheckClaim(context.Background(), "Some sourced claim", "")
	env.orch.WaitBackground()

	if len(result.Sources) != 1 {
		t.Fatalf("Expected 1 merged source, got %d", len(result.Sources))
	}
	if len(result.Sources[0].Providers) != 2 {
		t.Errorf("Expected both providers credited, got %v", result.Sources[0].Providers)
	}
}

func TestCheckClaim_EachProviderVerifiesOwnClaim(t *testing.T) {
	openai := &fakeProvider{id: "openai", name: "OpenAI",
		detection: detects("the earth is flat"), verification: verifies(model.VerdictFalse, 90)}
	perplexity := &fakeProvider{id: "perplexity", name: "Perplexity",
		detection: detects("the earth orbits the sun"), verification: verifies(model.VerdictTrue, 80)}

	env := newTestEnv(t, "", openai, perplexity)
	env.orch.CheckClaim(context.Background(), "The earth is flat and orbits the sun", "")
	env.orch.WaitBackground()

	if openai.gotClaim != "the earth is flat" {
		t.Errorf("OpenAI verified %q, want its own detected claim", openai.gotClaim)
	}
	if perplexity.gotClaim != "the earth orbits the sun" {
		t.Errorf("Perplexity verified %q, want its own detected claim", perplexity.gotClaim)
	}
}
