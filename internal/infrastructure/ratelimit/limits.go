// Package ratelimit throttles the public token endpoints per client.
package ratelimit

import (
	"github.com/omega-networks/mapkit-auth/internal/config"
	"github.com/omega-networks/mapkit-auth/pkg/constants"
)

// Limits maps a scope to the number of requests a client may make per minute.
type Limits map[constants.RateLimitScope]int

// LimitsFromConfig builds the per-scope budgets, falling back to RateLimitDefaultRPM.
func LimitsFromConfig(cfg config.RateLimitConfig) Limits {
	limits := Limits{
		constants.RateLimitScopeRender: cfg.RenderRPM,
		constants.RateLimitScopeTest:   cfg.TestRPM,
	}
	for scope, rpm := range limits {
		if rpm <= 0 {
			limits[scope] = constants.RateLimitDefaultRPM
		}
	}
	return limits
}

func (l Limits) of(scope constants.RateLimitScope) int {
	if rpm, ok := l[scope]; ok && rpm > 0 {
		return rpm
	}
	return constants.RateLimitDefaultRPM
}
