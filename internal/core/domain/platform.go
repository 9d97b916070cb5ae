package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlatform is returned when a platform name is not one of the supported hosts.
var ErrUnknownPlatform = errors.New("unknown platform")

// =============================================================================
// Platform Kind
// =============================================================================

// PlatformKind identifies a hosting platform. The set is closed.
type PlatformKind string

const (
	PlatformNetlify     PlatformKind = "netlify"
	PlatformRender      PlatformKind = "render"
	PlatformGitHubPages PlatformKind = "github"
)

// AllPlatforms returns every supported platform in canonical order.
func AllPlatforms() []PlatformKind {
	return []PlatformKind{PlatformNetlify, PlatformRender, PlatformGitHubPages}
}

// String returns the platform name as written to reports.
func (p PlatformKind) String() string {
	return string(p)
}

// Valid reports whether p is one of the supported platforms.
func (p PlatformKind) Valid() bool {
	switch p {
	case PlatformNetlify, PlatformRender, PlatformGitHubPages:
		return true
	}
	return false
}

// DisplayName returns a human readable platform name.
func (p PlatformKind) DisplayName() string {
	switch p {
	case PlatformNetlify:
		return "Netlify"
	case PlatformRender:
		return "Render"
	case PlatformGitHubPages:
		return "GitHub Pages"
	}
	return string(p)
}

// ParsePlatformKind converts user input to a PlatformKind.
// Matching is case-insensitive and accepts a few aliases for GitHub Pages.
func ParsePlatformKind(s string) (PlatformKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "netlify":
		return PlatformNetlify, nil
	case "render":
		return PlatformRender, nil
	case "github", "github-pages", "githubpages", "ghpages", "gh-pages", "pages":
		return PlatformGitHubPages, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// ParsePlatformKinds parses a list of platform names. Entries may themselves be
// comma separated. Duplicates are dropped; the first occurrence fixes the order.
func ParsePlatformKinds(values []string) ([]PlatformKind, error) {
	var kinds []PlatformKind
	seen := make(map[PlatformKind]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			k, err := ParsePlatformKind(part)
			if err != nil {
				return nil, err
			}
			if seen[k] {
				continue
			}
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
