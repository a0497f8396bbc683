package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dkorolev/veridict/internal/cache"
	"github.com/dkorolev/veridict/internal/history"
	"github.com/dkorolev/veridict/internal/model"
	"github.com/dkorolev/veridict/internal/orchestrator"
	"github.com/dkorolev/veridict/internal/provider"
	"github.com/dkorolev/veridict/internal/quota"
	"github.com/dkorolev/veridict/internal/sources"
	"github.com/dkorolev/veridict/internal/store"
)

// app wires the configured components together for the commands
type app struct {
	cfg      *model.Config
	store    store.Store
	cache    *cache.ResultCache
	guard    *quota.Guard
	tracker  *history.Tracker
	analyzer *sources.Analyzer
	registry *provider.Registry
	orch     *orchestrator.Orchestrator
}

// loadConfig builds the runtime configuration: defaults, then config
// file values, then environment variables.
func loadConfig() *model.Config {
	cfg := model.DefaultConfig()

	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.ttl") {
		cfg.Cache.TTL = viper.GetDuration("cache.ttl")
	}
	if viper.IsSet("cache.max_entries") {
		cfg.Cache.MaxEntries = viper.GetInt("cache.max_entries")
	}
	if viper.IsSet("cache.dir") {
		cfg.Cache.Dir = viper.GetString("cache.dir")
	}
	if viper.IsSet("quota.daily_limit") {
		cfg.Quota.DailyLimit = viper.GetInt("quota.daily_limit")
	}
	if viper.IsSet("http.timeout") {
		cfg.HTTP.Timeout = viper.GetDuration("http.timeout")
	}
	if viper.IsSet("http.user_agent") {
		cfg.HTTP.UserAgent = viper.GetString("http.user_agent")
	}
	if viper.IsSet("concurrency.batch_workers") {
		cfg.Concurrency.BatchWorkers = viper.GetInt("concurrency.batch_workers")
	}
	if viper.IsSet("concurrency.validation_workers") {
		cfg.Concurrency.ValidationWorkers = viper.GetInt("concurrency.validation_workers")
	}

	for id, settings := range cfg.Providers {
		key := fmt.Sprintf("providers.%s", id)
		if viper.IsSet(key + ".enabled") {
			settings.Enabled = viper.GetBool(key + ".enabled")
		}
		if viper.IsSet(key + ".api_key") {
			settings.APIKey = viper.GetString(key + ".api_key")
		}
		cfg.Providers[id] = settings
	}

	// Caller-supplied keys from the environment enable the provider and
	// replace any pooled default.
	envKeys := map[string]string{
		"openai":     "OPENAI_API_KEY",
		"anthropic":  "ANTHROPIC_API_KEY",
		"perplexity": "PERPLEXITY_API_KEY",
		"groq":       "GROQ_API_KEY",
	}
	for id, envVar := range envKeys {
		if key := os.Getenv(envVar); key != "" {
			cfg.Providers[id] = model.ProviderSettings{Enabled: true, APIKey: key}
		}
	}

	return cfg
}

// dataDir returns the state directory, creating it if needed
func dataDir(cfg *model.Config) (string, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("find home directory: %w", err)
		}
		dir = filepath.Join(home, ".veridict", "state")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create state directory: %w", err)
	}
	return dir, nil
}

// newApp assembles the full pipeline from configuration
func newApp() (*app, error) {
	cfg := loadConfig()

	var st store.Store
	if dir, err := dataDir(cfg); err == nil {
		st = store.NewDiskStore(dir)
	} else {
		fmt.Fprintf(os.Stderr, "Warning: %v, falling back to in-memory state\n", err)
		st = store.NewMemoryStore()
	}

	analyzer, err := sources.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("build source analyzer: %w", err)
	}

	resultCache := cache.New(st, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	guard := quota.New(st, cfg.Quota.DailyLimit)
	tracker := history.NewTracker(st)

	registry := provider.DefaultRegistry(provider.Config{
		Timeout:    cfg.HTTP.Timeout,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	})

	orch := orchestrator.New(cfg, registry, orchestrator.Options{
		Cache:    resultCache,
		Guard:    guard,
		Analyzer: analyzer,
		Tracker:  tracker,
	})

	return &app{
		cfg:      cfg,
		store:    st,
		cache:    resultCache,
		guard:    guard,
		tracker:  tracker,
		analyzer: analyzer,
		registry: registry,
		orch:     orch,
	}, nil
}

// renderJSON writes any value as indented JSON to stdout
func renderJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderResult prints one aggregated result in human-readable form
func renderResult(result *model.AggregatedResult) {
	fmt.Printf("Verdict:     %s\n", result.Verdict)
	fmt.Printf("Confidence:  %d%%\n", result.Confidence)
	fmt.Printf("Explanation: %s\n", result.Explanation)

	if result.Consensus.Total > 0 {
		fmt.Printf("Consensus:   %d/%d providers agree (%d%%)\n",
			result.Consensus.Agreeing, result.Consensus.Total, result.Consensus.PercentageAgreement)
	}

	if result.Disagreement != nil && result.Disagreement.HasDisagreement {
		fmt.Println("\nProviders disagree:")
		for _, group := range result.Disagreement.ConflictingVerdicts {
			fmt.Printf("  %-8s %s (avg confidence %d%%)\n",
				group.Verdict, strings.Join(group.Providers, ", "), group.Confidence)
		}
	}

	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			title := src.Title
			if title == "" {
				title = src.URL
			}
			fmt.Printf("  - %s\n    %s (cited by %s)\n", title, src.URL, strings.Join(src.Providers, ", "))
		}
	}

	if result.SourceDiversity != nil {
		fmt.Printf("\n%s\n", sources.DiversitySummary(result.SourceDiversity))
	}

	if failures := failedProviders(result); len(failures) > 0 {
		fmt.Printf("\nProvider failures: %s\n", strings.Join(failures, "; "))
	}
}

func failedProviders(result *model.AggregatedResult) []string {
	var failures []string
	for _, pr := range result.ProviderResults {
		if pr.Failed() {
			failures = append(failures, fmt.Sprintf("%s (%s)", pr.ProviderName, pr.Error))
		}
	}
	return failures
}

// humanDuration renders a duration in coarse units for display
func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	case d >= time.Minute:
		return fmt.Sprintf("%.0fm", d.Minutes())
	default:
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
