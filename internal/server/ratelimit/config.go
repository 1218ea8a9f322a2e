package ratelimit

import (
	"time"

	"github.com/saimjr/accounting-assistant/internal/config"
)

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept before cleanup drops it.
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends in "/"
	Method string        // HTTP method
	Limit  int           // requests per window; 0 means unlimited
	Window time.Duration // refill window
	Burst  int           // bucket size, Limit when 0
}

// FromConfig builds the limiter configuration from the ratelimit section.
func FromConfig(cfg config.RateLimitConfig) *Config {
	if !cfg.Enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    cfg.DefaultLimit,
		DefaultWindow:   time.Duration(cfg.DefaultWindowSecs) * time.Second,
		CleanupInterval: time.Duration(cfg.CleanupIntervalSecs) * time.Second,
		IdleTTL:         time.Hour,
		Whitelist:       toSet(cfg.Whitelist),
		Blacklist:       toSet(cfg.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits of the API.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Model-backed generation
		{Path: "/api/coa/generate/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/api/generate-chart-of-accounts", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		// Model-backed categorization
		{Path: "/api/categorize-transactions", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/api/categorize-transaction", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Credentials
		{Path: "/auth/register", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/auth/login", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/auth/password", Method: "PUT", Limit: 20, Window: time.Minute, Burst: 5},

		// Writes
		{Path: "/api/coa/upload/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/api/company-profile", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/api/company-profile/", Method: "DELETE", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/api/contacts/", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/api/transactions", Method: "POST", Limit: 100, Window: time.Minute, Burst: 10},
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if item != "" {
			set[item] = true
		}
	}
	return set
}
