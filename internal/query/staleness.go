package query

import (
	"time"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/device"
)

// Base staleness durations per logical query class. The single-day
// agenda is operational data and refreshes near-real-time; detail
// queries change rarely and can live much longer.
const (
	StaleRealTime   = 15 * time.Second
	StaleListMobile = time.Minute
	StaleListWeb    = 2 * time.Minute
	StaleSearch     = 30 * time.Second
	StaleDashboard  = 5 * time.Minute
	StaleAnalytics  = 10 * time.Minute
	StaleDetail     = 25 * time.Minute
	StaleSettings   = 30 * time.Minute
)

// Device-tier staleness ceilings. Constrained devices are the ones most
// likely to sit on the operational floor, so they are never allowed to
// show very stale data: the ceiling only ever shortens the base, never
// extends it.
const (
	ceilingLowEnd = 30 * time.Second
	ceilingMobile = 60 * time.Second
)

// EffectiveStaleTime resolves the staleness duration for a query class
// on the given device profile.
func EffectiveStaleTime(base time.Duration, profile device.Profile) time.Duration {
	var ceiling time.Duration
	switch {
	case profile.Tier == device.TierLow:
		ceiling = ceilingLowEnd
	case profile.Mobile:
		ceiling = ceilingMobile
	default:
		return base
	}
	if base < ceiling {
		return base
	}
	return ceiling
}

// EffectiveRetries caps automatic retries: none on slow connections
// (fail fast, the user refreshes manually), at most one otherwise.
func EffectiveRetries(requested int, profile device.Profile) int {
	if profile.SlowConnection {
		return 0
	}
	if requested > 1 {
		return 1
	}
	if requested < 0 {
		return 0
	}
	return requested
}
