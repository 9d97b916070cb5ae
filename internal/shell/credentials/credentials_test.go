package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvNetlifyToken, EnvRenderToken, EnvGitHubToken, EnvRenderOwnerID} {
		t.Setenv(k, "")
	}
}

func TestLoad_FromDotenv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "NETLIFY_TOKEN=nf-123\n# comment\nRENDER_TOKEN=\"rnd-456\"\nRENDER_OWNER_ID=tea-1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	creds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nf-123", creds.NetlifyToken)
	assert.Equal(t, "rnd-456", creds.RenderToken)
	assert.Equal(t, "tea-1", creds.RenderOwnerID)
	assert.Empty(t, creds.GitHubToken)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GITHUB_TOKEN=from-file\n"), 0o600))
	t.Setenv(EnvGitHubToken, "from-env")

	creds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", creds.GitHubToken)
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvNetlifyToken, "nf")

	creds, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Equal(t, "nf", creds.NetlifyToken)
}

func TestCredentials_For(t *testing.T) {
	creds := Credentials{NetlifyToken: "n", RenderToken: "r", GitHubToken: "g"}

	assert.Equal(t, "n", creds.For(domain.PlatformNetlify))
	assert.Equal(t, "r", creds.For(domain.PlatformRender))
	assert.Equal(t, "g", creds.For(domain.PlatformGitHubPages))
	assert.Empty(t, creds.For(domain.PlatformKind("heroku")))

	assert.True(t, creds.Has(domain.PlatformRender))
	assert.False(t, Credentials{}.Has(domain.PlatformRender))
	assert.Equal(t, "GITHUB_TOKEN", EnvVar(domain.PlatformGitHubPages))
}
