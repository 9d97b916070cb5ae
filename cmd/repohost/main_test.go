package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manideepv28/delopment-netlify/internal/core/resume"
	"github.com/manideepv28/delopment-netlify/internal/shell/orchestrator"
	"github.com/manideepv28/delopment-netlify/internal/shell/source"
	"github.com/manideepv28/delopment-netlify/internal/shell/store"
)

// =============================================================================
// Exit Code Tests
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"interrupted", fmt.Errorf("run: %w", context.Canceled), ExitInterrupted},
		{"command error", &CommandError{Op: "x", Err: errors.New("y"), ExitCode: ExitInputError}, ExitInputError},
		{"unknown resume target", fmt.Errorf("%w: https://x", resume.ErrUnknownResumeTarget), ExitUnknownResume},
		{"no platform", ErrNoPlatformAvailable, ExitNoPlatform},
		{"unreadable input", &source.SourceError{Op: "ReadRepoList", Err: source.ErrInputUnreadable}, ExitInputError},
		{"store write", &orchestrator.StoreWriteError{Err: store.ErrWriteFailed}, ExitStoreError},
		{"invalid config", ErrInvalidConfig, ExitConfigError},
		{"anything else", errors.New("unknown flag: --nope"), ExitConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

// =============================================================================
// Command Tests
// =============================================================================

func TestVersionCommand(t *testing.T) {
	out, code := execute(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "repohost dev (built unknown)\n", out)
}

func TestDeploy_MissingInput(t *testing.T) {
	env := newTestEnv(t)
	_, code := execute(t, env.args("deploy", filepath.Join(env.dir, "missing.txt"))...)
	assert.Equal(t, ExitInputError, code)
}

func TestDeploy_InvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	_, code := execute(t, env.args("deploy", env.input, "--max-size", "0")...)
	assert.Equal(t, ExitConfigError, code)

	_, code = execute(t, env.args("deploy", env.input, "-p", "heroku")...)
	assert.Equal(t, ExitConfigError, code)
}

func TestDeploy_NoPlatformAvailable(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("NETLIFY_TOKEN", "")

	_, code := execute(t, env.args("deploy", env.input)...)
	assert.Equal(t, ExitNoPlatform, code)
}

func TestDeploy_UnknownResumeTarget(t *testing.T) {
	env := newTestEnv(t)
	_, code := execute(t, env.args("deploy", env.input, "--resume-from", "https://github.com/acme/nowhere")...)
	assert.Equal(t, ExitUnknownResume, code)
	assert.Zero(t, env.siteCreates.Load())
}

func TestDeploy_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	out, code := execute(t, env.args("deploy", env.input, "--summary", filepath.Join(env.dir, "summary.yaml"))...)
	require.Equal(t, ExitSuccess, code, out)
	assert.Contains(t, out, "Netlify")
	assert.Equal(t, int32(1), env.siteCreates.Load())
	assert.Equal(t, int32(1), env.deploys.Load())

	report, err := os.ReadFile(env.output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(report)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "repo_url,hosted_url,platform,status,notes,attempt_count", lines[0])
	assert.Equal(t, "https://github.com/acme/site,https://deploy-1--site.netlify.app,netlify,success,deployed to netlify,1", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "https://gitlab.com/acme/other,,netlify,failure,fetch failed"), lines[2])

	_, err = os.Stat(filepath.Join(env.dir, "summary.yaml"))
	assert.NoError(t, err)

	// a second run finds every unit recorded
	_, code = execute(t, env.args("deploy", env.input)...)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, int32(1), env.siteCreates.Load())

	rerun, err := os.ReadFile(env.output)
	require.NoError(t, err)
	assert.Equal(t, string(report), string(rerun))
}

func TestCheck(t *testing.T) {
	env := newTestEnv(t)

	out, code := execute(t, env.args("check")...)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "ready")

	t.Setenv("NETLIFY_TOKEN", "")
	out, code = execute(t, env.args("check")...)
	assert.Equal(t, ExitNoPlatform, code)
	assert.Contains(t, out, "NETLIFY_TOKEN")
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	_, code := execute(t, env.args("deploy", env.input)...)
	require.Equal(t, ExitSuccess, code)
	require.NoError(t, os.Remove(env.output))

	out, code := execute(t, env.args("export")...)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, env.output)

	data, err := os.ReadFile(env.output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://github.com/acme/site")
}

// =============================================================================
// Helpers
// =============================================================================

func execute(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), exitCode(err)
}

// testEnv serves fake Netlify and GitHub endpoints and points the
// configuration at them.
type testEnv struct {
	dir    string
	input  string
	output string
	db     string

	siteCreates atomic.Int32
	deploys     atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clearEnv(t)

	env := &testEnv{dir: t.TempDir()}
	env.input = filepath.Join(env.dir, "repos.txt")
	env.output = filepath.Join(env.dir, "deployment_results.csv")
	env.db = filepath.Join(env.dir, "state", "results.db")

	list := "# batch\nhttps://github.com/acme/site\n\nhttps://gitlab.com/acme/other\n"
	require.NoError(t, os.WriteFile(env.input, []byte(list), 0o644))

	archive := zipArchive(t, map[string]string{
		"site-main/index.html": "<html><body>hello</body></html>",
		"site-main/style.css":  "body{}",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sites", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("POST /sites", func(w http.ResponseWriter, r *http.Request) {
		env.siteCreates.Add(1)
		writeJSON(w, http.StatusCreated, map[string]string{"id": "site-1", "url": "http://site.netlify.app", "ssl_url": "https://site.netlify.app"})
	})
	mux.HandleFunc("POST /sites/{id}/deploys", func(w http.ResponseWriter, r *http.Request) {
		env.deploys.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"id": "deploy-1", "deploy_url": "https://deploy-1--site.netlify.app"})
	})
	mux.HandleFunc("GET /repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"default_branch": "main"})
	})
	mux.HandleFunc("GET /{owner}/{repo}/archive/refs/heads/{file}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("NETLIFY_TOKEN", "nf-token")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("REPOHOST_DELAY", "0s")
	t.Setenv("REPOHOST_NETLIFY_API_URL", srv.URL)
	t.Setenv("REPOHOST_GITHUB_API_URL", srv.URL)
	t.Setenv("REPOHOST_GITHUB_ARCHIVE_URL", srv.URL)
	return env
}

func (e *testEnv) args(args ...string) []string {
	return append(args,
		"--output", e.output,
		"--db", e.db,
		"--env-file", filepath.Join(e.dir, ".env"),
		"--log-level", "error",
	)
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
