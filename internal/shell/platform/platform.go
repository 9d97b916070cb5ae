// Package platform implements deployment adapters for the supported hosting
// platforms. This is part of the Imperative Shell - handles I/O with platform APIs.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/manideepv28/delopment-netlify/internal/shell/credentials"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
)

var (
	// ErrMissingCredential is returned when no token is configured for a platform.
	ErrMissingCredential = errors.New("missing platform credential")

	// ErrInvalidCredential is returned when a platform rejects the configured token.
	ErrInvalidCredential = errors.New("invalid platform credential")
)

// DeployRequest contains everything an adapter needs for one attempt.
type DeployRequest struct {
	Repo     domain.RepositoryRef
	Package  *source.Package
	SiteName string // stable across the attempts of one unit
}

// Adapter deploys packages to one hosting platform.
//
// Deploy never returns an error: every failure is classified into the
// returned outcome so the caller can decide whether to retry.
type Adapter interface {
	// Kind returns the platform this adapter deploys to.
	Kind() domain.PlatformKind

	// Deploy performs one deployment attempt.
	Deploy(ctx context.Context, req DeployRequest) domain.DeployOutcome

	// Validate checks the credential against the platform API.
	Validate(ctx context.Context) error
}

// Config holds the endpoints and limits shared by all adapters.
type Config struct {
	NetlifyAPIURL string
	RenderAPIURL  string
	GitHubAPIURL  string

	// RenderOwnerID overrides the owner lookup for Render.
	RenderOwnerID string

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns the public API endpoints.
func DefaultConfig() Config {
	return Config{
		NetlifyAPIURL: "https://api.netlify.com/api/v1",
		RenderAPIURL:  "https://api.render.com/v1",
		GitHubAPIURL:  "https://api.github.com",
		Timeout:       2 * time.Minute,
	}
}

// NewAdapter creates the adapter for kind using the matching credential.
func NewAdapter(kind domain.PlatformKind, creds credentials.Credentials, cfg Config, logger *slog.Logger) (Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	token := creds.For(kind)
	if token == "" && kind.Valid() {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingCredential, credentials.EnvVar(kind))
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch kind {
	case domain.PlatformNetlify:
		return NewNetlifyAdapter(newAPIClient(cfg.NetlifyAPIURL, token, httpClient), logger), nil

	case domain.PlatformRender:
		ownerID := cfg.RenderOwnerID
		if ownerID == "" {
			ownerID = creds.RenderOwnerID
		}
		return NewRenderAdapter(newAPIClient(cfg.RenderAPIURL, token, httpClient), ownerID, logger), nil

	case domain.PlatformGitHubPages:
		return NewGitHubPagesAdapter(newAPIClient(cfg.GitHubAPIURL, token, httpClient), logger), nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPlatform, kind)
	}
}

// =============================================================================
// Preflight
// =============================================================================

// PreflightResult reports which platforms are usable.
type PreflightResult struct {
	Ready    map[domain.PlatformKind]Adapter
	Failures map[domain.PlatformKind]error
}

// Available returns the usable platforms in the requested order.
func (r PreflightResult) Available(requested []domain.PlatformKind) []domain.PlatformKind {
	var out []domain.PlatformKind
	for _, k := range requested {
		if _, ok := r.Ready[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Preflight builds and validates an adapter for every requested platform.
// Platforms that fail are reported, not fatal.
func Preflight(ctx context.Context, kinds []domain.PlatformKind, creds credentials.Credentials, cfg Config, logger *slog.Logger) PreflightResult {
	if logger == nil {
		logger = slog.Default()
	}
	result := PreflightResult{
		Ready:    make(map[domain.PlatformKind]Adapter),
		Failures: make(map[domain.PlatformKind]error),
	}
	for _, kind := range kinds {
		adapter, err := NewAdapter(kind, creds, cfg, logger)
		if err == nil {
			err = adapter.Validate(ctx)
		}
		if err != nil {
			logger.Warn("platform unavailable", "platform", kind, "error", err)
			result.Failures[kind] = err
			continue
		}
		logger.Info("platform credential valid", "platform", kind)
		result.Ready[kind] = adapter
	}
	return result
}
