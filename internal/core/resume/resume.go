// Package resume decides which deployment units a run must process.
//
// Everything here is pure: the orchestrator supplies the input order, the
// resume target and the latest persisted record for a unit, and gets back a
// disposition.
package resume

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// ErrUnknownResumeTarget is returned when the resume URL is not in the input list.
var ErrUnknownResumeTarget = errors.New("resume target not found in input list")

// =============================================================================
// Cursor
// =============================================================================

// Cursor marks the first repository to (re)process. Repositories before it in
// input order are treated as handled regardless of stored records.
// The zero value starts at the beginning of the input.
type Cursor struct {
	URL   string
	Index int
}

// IsSet reports whether the cursor points past the start of the input.
func (c Cursor) IsSet() bool {
	return c.URL != ""
}

// Before reports whether repo comes strictly before the cursor.
func (c Cursor) Before(repo domain.RepositoryRef) bool {
	return repo.Index < c.Index
}

// ResumePoint maps a resume URL to its position in repos. An empty resumeFrom
// returns the zero cursor. Matching is exact first, then tolerant of a
// trailing slash, a ".git" suffix and host case.
func ResumePoint(repos []domain.RepositoryRef, resumeFrom string) (Cursor, error) {
	target := strings.TrimSpace(resumeFrom)
	if target == "" {
		return Cursor{}, nil
	}

	for _, r := range repos {
		if r.URL == target {
			return Cursor{URL: r.URL, Index: r.Index}, nil
		}
	}

	normalized := normalizeURL(target)
	for _, r := range repos {
		if normalizeURL(r.URL) == normalized {
			return Cursor{URL: r.URL, Index: r.Index}, nil
		}
	}

	return Cursor{}, fmt.Errorf("%w: %s", ErrUnknownResumeTarget, target)
}

func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, ".git")
	return strings.ToLower(u)
}

// =============================================================================
// Unit Selection
// =============================================================================

// Disposition says what the orchestrator does with a unit.
type Disposition int

const (
	Process Disposition = iota
	SkipBeforeCursor
	SkipSettled
)

func (d Disposition) String() string {
	switch d {
	case Process:
		return "process"
	case SkipBeforeCursor:
		return "skipped-by-resume"
	case SkipSettled:
		return "already-recorded"
	}
	return fmt.Sprintf("disposition(%d)", int(d))
}

// Settled reports whether latest makes the unit terminal for this run.
// With retryFailures only successful records settle a unit.
func Settled(latest *domain.DeploymentRecord, retryFailures bool) bool {
	if latest == nil {
		return false
	}
	if retryFailures {
		return latest.Succeeded()
	}
	return true
}

// Classify decides what to do with unit given the cursor and its latest record.
func Classify(unit domain.DeploymentUnit, cursor Cursor, latest *domain.DeploymentRecord, retryFailures bool) Disposition {
	if cursor.Before(unit.Repo) {
		return SkipBeforeCursor
	}
	if Settled(latest, retryFailures) {
		return SkipSettled
	}
	return Process
}

// Units expands repos × platforms, repository-major, preserving both orders.
func Units(repos []domain.RepositoryRef, platforms []domain.PlatformKind) []domain.DeploymentUnit {
	units := make([]domain.DeploymentUnit, 0, len(repos)*len(platforms))
	for _, r := range repos {
		for _, p := range platforms {
			units = append(units, domain.NewDeploymentUnit(r, p))
		}
	}
	return units
}

// UnitsForPlatform returns the units of one platform in input order.
func UnitsForPlatform(repos []domain.RepositoryRef, platform domain.PlatformKind) []domain.DeploymentUnit {
	units := make([]domain.DeploymentUnit, 0, len(repos))
	for _, r := range repos {
		units = append(units, domain.NewDeploymentUnit(r, platform))
	}
	return units
}
