package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// Deploy Outcome
// =============================================================================

// OutcomeKind classifies the result of a single deployment attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeTransient
	OutcomePermanent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient_error"
	case OutcomePermanent:
		return "permanent_error"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// DeployOutcome is what a platform adapter returns for one attempt.
// HostedURL is set only for OutcomeSuccess. RetryAfter is an optional
// provider hint and is only meaningful for OutcomeRateLimited.
type DeployOutcome struct {
	Kind       OutcomeKind
	HostedURL  string
	RetryAfter time.Duration
	Detail     string
}

// Succeeded returns a successful outcome.
func Succeeded(hostedURL string) DeployOutcome {
	return DeployOutcome{Kind: OutcomeSuccess, HostedURL: hostedURL}
}

// SucceededWithNote returns a successful outcome carrying an informational note.
func SucceededWithNote(hostedURL, note string) DeployOutcome {
	return DeployOutcome{Kind: OutcomeSuccess, HostedURL: hostedURL, Detail: note}
}

// RateLimited returns a rate limited outcome. retryAfter may be zero.
func RateLimited(retryAfter time.Duration, detail string) DeployOutcome {
	return DeployOutcome{Kind: OutcomeRateLimited, RetryAfter: retryAfter, Detail: detail}
}

// TransientError returns a retryable failure.
func TransientError(detail string) DeployOutcome {
	return DeployOutcome{Kind: OutcomeTransient, Detail: detail}
}

// PermanentError returns a failure that must not be retried.
func PermanentError(detail string) DeployOutcome {
	return DeployOutcome{Kind: OutcomePermanent, Detail: detail}
}

// Retryable reports whether the outcome may be retried at all.
func (o DeployOutcome) Retryable() bool {
	return o.Kind == OutcomeRateLimited || o.Kind == OutcomeTransient
}

// Error describes a failed outcome for logs and record notes.
func (o DeployOutcome) Error() string {
	switch o.Kind {
	case OutcomeSuccess:
		return ""
	case OutcomeRateLimited:
		if o.Detail == "" {
			return "rate limited"
		}
		return "rate limited: " + o.Detail
	}
	return o.Detail
}
