package domain

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidRepositoryURL is returned when a repository URL cannot be parsed.
var ErrInvalidRepositoryURL = errors.New("invalid repository URL")

// =============================================================================
// Repository Reference
// =============================================================================

// RepositoryRef identifies one source repository from the input list.
// It is immutable once created.
type RepositoryRef struct {
	URL   string `json:"repo_url"`
	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"` // only set for github.com URLs
	Index int    `json:"index"`           // position in the input list

	// Invalid marks an input line that did not parse as a repository URL.
	// It keeps its position and is recorded as a failure without deploying.
	Invalid bool `json:"invalid,omitempty"`
}

// NewRepositoryRef builds a RepositoryRef from a raw clone URL.
func NewRepositoryRef(rawURL string, index int) (RepositoryRef, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return RepositoryRef{}, ErrInvalidRepositoryURL
	}

	ref := RepositoryRef{URL: raw, Index: index}

	path := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		path = u.Path
		if strings.EqualFold(u.Host, "github.com") || strings.EqualFold(u.Host, "www.github.com") {
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) >= 2 && parts[0] != "" {
				ref.Owner = parts[0]
			}
		}
	} else if i := strings.Index(raw, ":"); i > 0 && strings.HasPrefix(raw, "git@") {
		// scp-like syntax: git@github.com:owner/repo.git
		host := strings.TrimPrefix(raw[:i], "git@")
		path = raw[i+1:]
		if strings.EqualFold(host, "github.com") {
			if parts := strings.Split(strings.Trim(path, "/"), "/"); len(parts) >= 2 {
				ref.Owner = parts[0]
			}
		}
	}

	path = strings.TrimRight(path, "/")
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		return RepositoryRef{}, ErrInvalidRepositoryURL
	}
	ref.Name = name

	return ref, nil
}

// InvalidRepositoryRef keeps an unparseable input line at its position.
func InvalidRepositoryRef(raw string, index int) RepositoryRef {
	return RepositoryRef{URL: strings.TrimSpace(raw), Index: index, Invalid: true}
}

// IsGitHub reports whether the repository is hosted on github.com.
func (r RepositoryRef) IsGitHub() bool {
	return r.Owner != ""
}

// FullName returns "owner/name" for GitHub repositories and the bare name otherwise.
func (r RepositoryRef) FullName() string {
	if r.Owner == "" {
		return r.Name
	}
	return r.Owner + "/" + r.Name
}
