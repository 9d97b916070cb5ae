// Package credentials loads the per-platform API tokens.
package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// Environment variable names.
const (
	EnvNetlifyToken  = "NETLIFY_TOKEN"
	EnvRenderToken   = "RENDER_TOKEN"
	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvRenderOwnerID = "RENDER_OWNER_ID"
)

// Credentials holds the opaque bearer tokens for each platform.
type Credentials struct {
	NetlifyToken  string
	RenderToken   string
	GitHubToken   string
	RenderOwnerID string
}

// Load reads credentials from the given dotenv files and the process
// environment. A non-empty environment variable wins over a file value, and
// missing files are ignored.
func Load(envFiles ...string) (Credentials, error) {
	values := make(map[string]string)
	for _, path := range envFiles {
		fileValues, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for k, v := range fileValues {
			if _, seen := values[k]; !seen {
				values[k] = v
			}
		}
	}

	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return values[key]
	}

	return Credentials{
		NetlifyToken:  lookup(EnvNetlifyToken),
		RenderToken:   lookup(EnvRenderToken),
		GitHubToken:   lookup(EnvGitHubToken),
		RenderOwnerID: lookup(EnvRenderOwnerID),
	}, nil
}

// For returns the token used to authenticate against platform.
func (c Credentials) For(platform domain.PlatformKind) string {
	switch platform {
	case domain.PlatformNetlify:
		return c.NetlifyToken
	case domain.PlatformRender:
		return c.RenderToken
	case domain.PlatformGitHubPages:
		return c.GitHubToken
	}
	return ""
}

// Has reports whether a token is configured for platform.
func (c Credentials) Has(platform domain.PlatformKind) bool {
	return c.For(platform) != ""
}

// EnvVar names the environment variable holding the token for platform.
func EnvVar(platform domain.PlatformKind) string {
	switch platform {
	case domain.PlatformNetlify:
		return EnvNetlifyToken
	case domain.PlatformRender:
		return EnvRenderToken
	case domain.PlatformGitHubPages:
		return EnvGitHubToken
	}
	return ""
}
