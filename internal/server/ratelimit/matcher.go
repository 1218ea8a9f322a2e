package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for probes that must never be throttled.
var unlimited = EndpointConfig{}

// MatchEndpoint returns the configuration governing a request, or nil when
// the global default applies. Exact paths win over prefixes, and among
// prefixes the longest one wins.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodGet && (path == "/health" || path == "/") {
		cfg := unlimited
		return &cfg
	}

	var best *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			if best == nil || len(cfg.Path) > len(best.Path) {
				best = cfg
			}
		}
	}

	return best
}
