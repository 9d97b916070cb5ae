// Package retry decides whether a failed deployment attempt is retried and
// how long to wait before the next attempt.
//
// All functions are pure (no I/O, no clock access). The orchestrator in
// internal/shell/orchestrator performs the actual waiting.
package retry

import (
	"math/rand/v2"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// =============================================================================
// Policy
// =============================================================================

// Policy configures retry decisions.
//
// MaxRetries is the total number of attempts a unit may make; once the attempt
// number reaches it the policy gives up. BaseDelay doubles on every attempt and
// is capped at MaxDelay (a zero MaxDelay means no cap).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultPolicy returns the default retry configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  10 * time.Second,
		MaxDelay:   5 * time.Minute,
	}
}

// Decision is the result of consulting the policy.
type Decision struct {
	Retry bool
	Wait  time.Duration
}

// GiveUp is the decision to stop retrying.
var GiveUp = Decision{}

// Decide returns whether attempt (1-based) should be followed by another one.
//
// Successful and permanent outcomes are never retried. Rate limited and
// transient outcomes are retried until attempt reaches MaxRetries. A provider
// supplied RetryAfter only lengthens the computed backoff.
func (p Policy) Decide(attempt int, outcome domain.DeployOutcome) Decision {
	if !outcome.Retryable() {
		return GiveUp
	}
	if attempt >= p.MaxRetries {
		return GiveUp
	}

	wait := p.Backoff(attempt)
	if outcome.Kind == domain.OutcomeRateLimited && outcome.RetryAfter > wait {
		wait = outcome.RetryAfter
	}
	return Decision{Retry: true, Wait: wait}
}

// Backoff returns min(BaseDelay * 2^(attempt-1), MaxDelay).
// Attempts below 1 are treated as 1.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.BaseDelay <= 0 {
		return 0
	}

	wait := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && wait >= p.MaxDelay {
			return p.MaxDelay
		}
		// stop doubling before the duration overflows
		if wait >= time.Duration(1<<62) {
			break
		}
		wait *= 2
	}
	if p.MaxDelay > 0 && wait > p.MaxDelay {
		return p.MaxDelay
	}
	return wait
}

// =============================================================================
// Jitter
// =============================================================================

// Jitter spreads wait by up to ±fraction of its value. fraction is clamped to
// [0, 1]; a nil rng uses the global source. The result is never negative.
func Jitter(wait time.Duration, fraction float64, rng *rand.Rand) time.Duration {
	if wait <= 0 || fraction <= 0 {
		return wait
	}
	if fraction > 1 {
		fraction = 1
	}

	var r float64
	if rng != nil {
		r = rng.Float64()
	} else {
		r = rand.Float64()
	}

	delta := time.Duration(float64(wait) * fraction * (2*r - 1))
	if wait+delta < 0 {
		return 0
	}
	return wait + delta
}
