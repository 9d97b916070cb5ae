package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Deployment Errors
// =============================================================================

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidRecord     = errors.New("invalid deployment record")
)

// NoteSkippedTooLarge is written to the notes of units whose package exceeds the size limit.
const NoteSkippedTooLarge = "skipped: too large"

// NoteInvalidURL is written to the notes of input lines that are not repository URLs.
const NoteInvalidURL = "invalid repository URL"

// =============================================================================
// Deployment Unit
// =============================================================================

// DeploymentUnit is one (repository, platform) pair: the unit of work and of resumability.
type DeploymentUnit struct {
	Repo     RepositoryRef
	Platform PlatformKind
}

// NewDeploymentUnit pairs a repository with a platform.
func NewDeploymentUnit(repo RepositoryRef, platform PlatformKind) DeploymentUnit {
	return DeploymentUnit{Repo: repo, Platform: platform}
}

// Key identifies the unit independently of the input ordering.
func (u DeploymentUnit) Key() string {
	return UnitKey(u.Repo.URL, u.Platform)
}

func (u DeploymentUnit) String() string {
	return fmt.Sprintf("%s@%s", u.Repo.URL, u.Platform)
}

// UnitKey builds the key used to look up records for a repository URL and platform.
func UnitKey(repoURL string, platform PlatformKind) string {
	return repoURL + "|" + string(platform)
}

// =============================================================================
// Deployment Record
// =============================================================================

// RecordStatus is the terminal status persisted for a unit.
type RecordStatus string

const (
	RecordSuccess RecordStatus = "success"
	RecordFailure RecordStatus = "failure"
)

// DeploymentRecord is the terminal outcome of a unit. Records are append-only.
type DeploymentRecord struct {
	RepoURL      string       `json:"repo_url"`
	Platform     PlatformKind `json:"platform"`
	Status       RecordStatus `json:"status"`
	HostedURL    string       `json:"hosted_url"`
	Notes        string       `json:"notes"`
	AttemptCount int          `json:"attempt_count"`
	RunID        string       `json:"run_id,omitempty"`
	RecordedAt   time.Time    `json:"recorded_at"`
}

// SuccessRecord creates a success record for unit.
func SuccessRecord(unit DeploymentUnit, hostedURL, notes string, attempts int) DeploymentRecord {
	return DeploymentRecord{
		RepoURL:      unit.Repo.URL,
		Platform:     unit.Platform,
		Status:       RecordSuccess,
		HostedURL:    hostedURL,
		Notes:        notes,
		AttemptCount: attempts,
		RecordedAt:   time.Now().UTC(),
	}
}

// FailureRecord creates a failure record for unit. HostedURL is always empty.
func FailureRecord(unit DeploymentUnit, notes string, attempts int) DeploymentRecord {
	return DeploymentRecord{
		RepoURL:      unit.Repo.URL,
		Platform:     unit.Platform,
		Status:       RecordFailure,
		Notes:        notes,
		AttemptCount: attempts,
		RecordedAt:   time.Now().UTC(),
	}
}

// Key returns the unit key of the record.
func (r DeploymentRecord) Key() string {
	return UnitKey(r.RepoURL, r.Platform)
}

// Succeeded reports whether the record is a success.
func (r DeploymentRecord) Succeeded() bool {
	return r.Status == RecordSuccess
}

// Validate checks the record invariants: hosted_url is present iff status is success.
func (r DeploymentRecord) Validate() error {
	if r.RepoURL == "" {
		return fmt.Errorf("%w: repo_url is required", ErrInvalidRecord)
	}
	if !r.Platform.Valid() {
		return fmt.Errorf("%w: platform %q", ErrInvalidRecord, r.Platform)
	}
	switch r.Status {
	case RecordSuccess:
		if r.HostedURL == "" {
			return fmt.Errorf("%w: success without hosted_url", ErrInvalidRecord)
		}
	case RecordFailure:
		if r.HostedURL != "" {
			return fmt.Errorf("%w: failure with hosted_url", ErrInvalidRecord)
		}
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, r.Status)
	}
	if r.AttemptCount < 0 {
		return fmt.Errorf("%w: negative attempt_count", ErrInvalidRecord)
	}
	return nil
}

// =============================================================================
// Unit State Machine
// =============================================================================

// UnitState is the lifecycle state of a unit inside one run.
type UnitState string

const (
	StatePending    UnitState = "pending"
	StateAttempting UnitState = "attempting"
	StateRetrying   UnitState = "retrying"
	StateSucceeded  UnitState = "succeeded"
	StateFailed     UnitState = "failed"
	StateSkipped    UnitState = "skipped"
)

// validTransitions defines the allowed state transitions.
var validTransitions = map[UnitState][]UnitState{
	StatePending:    {StateAttempting, StateSkipped, StateFailed},
	StateAttempting: {StateRetrying, StateSucceeded, StateFailed},
	StateRetrying:   {StateAttempting},
	StateSucceeded:  {}, // Terminal state
	StateFailed:     {}, // Terminal state
	StateSkipped:    {}, // Terminal state
}

// ValidateTransition checks if a state transition is valid.
func ValidateTransition(from, to UnitState) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Terminal reports whether no further transitions are allowed from s.
func (s UnitState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// UnitRun tracks one unit through a single run. It holds the ephemeral retry state.
type UnitRun struct {
	Unit    DeploymentUnit
	State   UnitState
	Attempt int
	LastErr string
}

// NewUnitRun starts a unit in the pending state.
func NewUnitRun(unit DeploymentUnit) *UnitRun {
	return &UnitRun{Unit: unit, State: StatePending}
}

// Transition attempts to move the unit to a new state.
// Entering attempting increments the attempt counter.
func (r *UnitRun) Transition(to UnitState) error {
	if err := ValidateTransition(r.State, to); err != nil {
		return err
	}
	r.State = to
	if to == StateAttempting {
		r.Attempt++
	}
	return nil
}

// =============================================================================
// Run IDs
// =============================================================================

// GenerateRunSuffix returns a short random hex suffix.
func GenerateRunSuffix() string {
	suffix := make([]byte, 3)
	rand.Read(suffix)
	return hex.EncodeToString(suffix)
}
