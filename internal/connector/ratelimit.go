package connector

import (
	"golang.org/x/time/rate"
)

// RateLimit is a sustained request rate with a burst allowance.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimits are conservative per-account client limits, well below
// what each API documents.
var DefaultRateLimits = map[string]RateLimit{
	"gmail":    {RequestsPerSecond: 5, Burst: 10},
	"calendar": {RequestsPerSecond: 5, Burst: 10},
	"caldav":   {RequestsPerSecond: 2, Burst: 4},
	"notion":   {RequestsPerSecond: 3, Burst: 3},
	"holded":   {RequestsPerSecond: 5, Burst: 5},
	"whatsapp": {RequestsPerSecond: 10, Burst: 20},
}

// NewLimiter returns a token bucket for service, falling back to 5 rps.
func NewLimiter(service string) *rate.Limiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimit{RequestsPerSecond: 5, Burst: 10}
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}
