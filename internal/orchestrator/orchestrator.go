package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dkorolev/veridict/internal/cache"
	"github.com/dkorolev/veridict/internal/history"
	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/provider"
	"github.com/dkorolev/veridict/internal/quota"
	"github.com/dkorolev/veridict/internal/sources"
	"github.com/dkorolev/veridict/internal/worker"
)

// Orchestrator runs the two-stage verification pipeline: fan out claim
// detection to every enabled provider, have each provider verify the
// first claim it detected, then fold the answers into one weighted
// verdict.
type Orchestrator struct {
	cfg      *model.Config
	registry *provider.Registry
	cache    *cache.ResultCache
	guard    *quota.Guard
	analyzer *sources.Analyzer
	limiter  *worker.Limiter
	tracker  *history.Tracker

	flightMu sync.Mutex
	flights  map[string]*flight

	background sync.WaitGroup
}

// flight is one in-progress check that concurrent duplicates wait on.
type flight struct {
	done   chan struct{}
	result *model.AggregatedResult
}

// Options carries the optional collaborators. Nil fields disable the
// corresponding behavior rather than failing.
type Options struct {
	Cache    *cache.ResultCache
	Guard    *quota.Guard
	Analyzer *sources.Analyzer
	Tracker  *history.Tracker
}

func New(cfg *model.Config, registry *provider.Registry, opts Options) *Orchestrator {
	limiter := worker.NewLimiter(cfg.Concurrency.ProviderRate, cfg.Concurrency.ProviderBurst)
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		cache:    opts.Cache,
		guard:    opts.Guard,
		analyzer: opts.Analyzer,
		limiter:  limiter,
		tracker:  opts.Tracker,
		flights:  make(map[string]*flight),
	}
}

// CheckClaim verifies a piece of text end to end. It never returns an
// error: every failure mode is folded into the result so callers always
// get something renderable.
func (o *Orchestrator) CheckClaim(ctx context.Context, text, platform string) *model.AggregatedResult {
	logger := log.WithField("request_id", uuid.NewString()[:8])

	if o.cacheEnabled() {
		if cached, ok := o.cache.Get(text); ok {
			logger.Debug("cache hit")
			return cached
		}
	}

	fingerprint := cache.Fingerprint(text)

	o.flightMu.Lock()
	if inFlight, ok := o.flights[fingerprint]; ok {
		o.flightMu.Unlock()
		logger.Debug("waiting on identical in-flight check")
		select {
		case <-inFlight.done:
			return inFlight.result
		case <-ctx.Done():
			return terminalResult("Check cancelled before a result was available.")
		}
	}
	f := &flight{done: make(chan struct{})}
	o.flights[fingerprint] = f
	o.flightMu.Unlock()

	result := o.run(ctx, logger, text, platform)

	f.result = result
	o.flightMu.Lock()
	delete(o.flights, fingerprint)
	o.flightMu.Unlock()
	close(f.done)

	return result
}

// WaitBackground blocks until fire-and-forget bookkeeping (quota
// increments, history records) has drained. Used by callers that are
// about to exit and by tests.
func (o *Orchestrator) WaitBackground() {
	o.background.Wait()
}

func (o *Orchestrator) run(ctx context.Context, logger *log.Entry, text, platform string) *model.AggregatedResult {
	enabled := o.cfg.EnabledProviders(o.registry.IDs())
	if len(enabled) == 0 {
		return terminalResult("No verification providers are configured. Enable at least one provider and set its API key.")
	}

	type engaged struct {
		provider provider.Provider
		key      string
	}
	participants := make([]engaged, 0, len(enabled))
	pooledID := ""
	for _, id := range enabled {
		p, ok := o.registry.Get(id)
		if !ok {
			continue
		}
		key := o.cfg.Providers[id].APIKey
		if provider.IsPooledCredential(key) && pooledID == "" {
			pooledID = id
		}
		participants = append(participants, engaged{provider: p, key: key})
	}
	if len(participants) == 0 {
		return terminalResult("No verification providers are configured. Enable at least one provider and set its API key.")
	}

	if pooledID != "" && o.guard != nil {
		decision := o.guard.CanRequest(pooledID)
		if !decision.Allowed {
			when := quota.FormatReset(decision.ResetTime, time.Now())
			return terminalResult(fmt.Sprintf("The shared free tier has reached its daily limit. Checks resume %s.", when))
		}
		if decision.NearLimit {
			logger.WithFields(log.Fields{
				"provider":  pooledID,
				"remaining": decision.Remaining,
			}).Warn("shared quota nearly exhausted")
		}
	}

	// Stage 1: every provider inspects the text for a checkable claim.
	// All calls run to completion; one slow or broken provider must not
	// sink the rest.
	type detection struct {
		det *provider.Detection
		err error
	}
	detections := make([]detection, len(participants))

	var wg sync.WaitGroup
	for i, part := range participants {
		wg.Add(1)
		go func(i int, part engaged) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					detections[i] = detection{err: fmt.Errorf("provider panic: %v", r)}
				}
			}()
			callCtx, cancel := context.WithTimeout(ctx, o.cfg.HTTP.Timeout)
			defer cancel()
			if err := o.limiter.Wait(callCtx, part.provider.ID()); err != nil {
				detections[i] = detection{err: err}
				return
			}
			det, err := part.provider.DetectClaims(callCtx, text, part.key)
			detections[i] = detection{det: det, err: err}
		}(i, part)
	}
	wg.Wait()

	// Each provider verifies the first claim it detected itself, so
	// providers that read the text differently are scored on their own
	// interpretation.
	type verifier struct {
		engaged
		claim string
	}
	completed := 0
	verifiers := make([]verifier, 0, len(participants))
	for i, d := range detections {
		if d.err != nil {
			logger.WithFields(log.Fields{
				"provider": participants[i].provider.ID(),
				"error":    d.err.Error(),
			}).Debug("claim detection failed")
			continue
		}
		completed++
		if d.det.HasClaim && len(d.det.Claims) > 0 {
			verifiers = append(verifiers, verifier{engaged: participants[i], claim: d.det.Claims[0]})
		}
	}

	if len(verifiers) == 0 {
		result := noClaimResult(completed)
		o.finish(logger, text, platform, pooledID, result)
		return result
	}

	// Stage 2: providers that saw a claim verify it. Failures become
	// error-flagged results so the audit trail stays complete.
	results := make([]model.ProviderResult, len(verifiers))
	for i, part := range verifiers {
		wg.Add(1)
		go func(i int, part verifier) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = failedResult(part.provider, fmt.Sprintf("provider panic: %v", r))
				}
			}()
			callCtx, cancel := context.WithTimeout(ctx, o.cfg.HTTP.Timeout)
			defer cancel()
			if err := o.limiter.Wait(callCtx, part.provider.ID()); err != nil {
				results[i] = failedResult(part.provider, err.Error())
				return
			}
			ver, err := part.provider.VerifyClaim(callCtx, part.claim, part.key)
			if err != nil {
				results[i] = failedResult(part.provider, err.Error())
				return
			}
			results[i] = model.ProviderResult{
				ProviderID:   part.provider.ID(),
				ProviderName: part.provider.DisplayName(),
				Verdict:      ver.Verdict,
				Confidence:   ver.Confidence,
				Explanation:  ver.Explanation,
				Sources:      ver.Sources,
			}
		}(i, part)
	}
	wg.Wait()

	result := Aggregate(results, o.analyzer)
	o.finish(logger, text, platform, pooledID, result)
	return result
}

// finish runs the post-verdict bookkeeping: synchronous cache write,
// then quota and history updates detached so a slow store never delays
// the answer.
func (o *Orchestrator) finish(logger *log.Entry, text, platform, pooledID string, result *model.AggregatedResult) {
	if o.cacheEnabled() {
		o.cache.Put(text, result)
	}
	if pooledID != "" && o.guard != nil {
		o.detach(func() { o.guard.Increment(pooledID) })
	}
	if o.tracker != nil {
		o.detach(func() {
			disagreement := result.Disagreement != nil && result.Disagreement.HasDisagreement
			if err := o.tracker.Record(history.Check{
				Snippet:      snippet(text),
				Verdict:      result.Verdict,
				Confidence:   result.Confidence,
				Platform:     platform,
				Disagreement: disagreement,
				CheckedAt:    time.Now().UnixMilli(),
			}); err != nil {
				logger.WithField("error", err.Error()).Debug("history record failed")
			}
		})
	}
}

func (o *Orchestrator) detach(fn func()) {
	o.background.Add(1)
	go func() {
		defer o.background.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", fmt.Sprint(r)).Warn("background task panicked")
			}
		}()
		fn()
	}()
}

func (o *Orchestrator) cacheEnabled() bool {
	return o.cache != nil && o.cfg.Cache.Enabled
}

// terminalResult shapes a pipeline-level failure as a regular result so
// every caller path renders the same way.
func terminalResult(message string) *model.AggregatedResult {
	return &model.AggregatedResult{
		Verdict:         model.VerdictUnknown,
		Confidence:      0,
		Explanation:     message,
		Sources:         []model.AggregatedSource{},
		ProviderResults: []model.ProviderResult{},
	}
}

func noClaimResult(completed int) *model.AggregatedResult {
	percentage := 0
	if completed > 0 {
		percentage = 100
	}
	return &model.AggregatedResult{
		Verdict:         model.VerdictNoClaim,
		Confidence:      100,
		Explanation:     "No verifiable factual claims detected in this text.",
		Sources:         []model.AggregatedSource{},
		ProviderResults: []model.ProviderResult{},
		Consensus: model.Consensus{
			Total:               completed,
			Agreeing:            completed,
			PercentageAgreement: percentage,
		},
	}
}

func failedResult(p provider.Provider, errMsg string) model.ProviderResult {
	return model.ProviderResult{
		ProviderID:   p.ID(),
		ProviderName: p.DisplayName(),
		Verdict:      model.VerdictUnknown,
		Confidence:   0,
		Explanation:  "Verification failed.",
		Sources:      []model.Source{},
		Error:        errMsg,
	}
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= 100 {
		return text
	}
	return string(runes[:100])
}
