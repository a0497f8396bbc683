package model

import "time"

// ProviderSettings configures one verification provider
type ProviderSettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

// CacheConfig configures the result cache
type CacheConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	TTL        time.Duration `json:"ttl" yaml:"ttl"`
	MaxEntries int           `json:"max_entries" yaml:"max_entries"`
	Dir        string        `json:"dir,omitempty" yaml:"dir,omitempty"` // Empty means in-memory only
}

// QuotaConfig configures the shared daily quota for pooled credentials
type QuotaConfig struct {
	DailyLimit int `json:"daily_limit" yaml:"daily_limit"`
}

// HTTPConfig configures outbound HTTP behavior
type HTTPConfig struct {
	Timeout    time.Duration `json:"timeout" yaml:"timeout"` // Per provider call
	UserAgent  string        `json:"user_agent" yaml:"user_agent"`
	HTTPProxy  string        `json:"http_proxy,omitempty" yaml:"http_proxy,omitempty"`
	HTTPSProxy string        `json:"https_proxy,omitempty" yaml:"https_proxy,omitempty"`
	NoProxy    string        `json:"no_proxy,omitempty" yaml:"no_proxy,omitempty"`
}

// ConcurrencyConfig bounds concurrent work
type ConcurrencyConfig struct {
	BatchWorkers      int     `json:"batch_workers" yaml:"batch_workers"`
	ValidationWorkers int     `json:"validation_workers" yaml:"validation_workers"`
	ProviderRate      float64 `json:"provider_rate" yaml:"provider_rate"` // Requests/sec per provider
	ProviderBurst     int     `json:"provider_burst" yaml:"provider_burst"`
}

// Config is the full runtime configuration
type Config struct {
	Providers           map[string]ProviderSettings `json:"providers" yaml:"providers"`
	AutoCheck           bool                        `json:"auto_check" yaml:"auto_check"`
	ConfidenceThreshold int                         `json:"confidence_threshold" yaml:"confidence_threshold"` // Advisory for presentation only
	Cache               CacheConfig                 `json:"cache" yaml:"cache"`
	Quota               QuotaConfig                 `json:"quota" yaml:"quota"`
	HTTP                HTTPConfig                  `json:"http" yaml:"http"`
	Concurrency         ConcurrencyConfig           `json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderSettings{
			"groq":       {Enabled: true, APIKey: "pooled:groq-free-tier"},
			"openai":     {Enabled: false},
			"anthropic":  {Enabled: false},
			"perplexity": {Enabled: false},
		},
		AutoCheck:           false,
		ConfidenceThreshold: 70,
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        7 * 24 * time.Hour,
			MaxEntries: 1000,
		},
		Quota: QuotaConfig{
			DailyLimit: 14400, // Groq free tier daily limit
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Veridict/0.1 (+https://github.com/dkorolev/veridict)",
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers:      4,
			ValidationWorkers: 20,
			ProviderRate:      2,
			ProviderBurst:     5,
		},
	}
}

// EnabledProviders returns the ids of providers that are enabled and
// carry a credential, in stable order.
func (c *Config) EnabledProviders(order []string) []string {
	var ids []string
	for _, id := range order {
		if s, ok := c.Providers[id]; ok && s.Enabled && s.APIKey != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
