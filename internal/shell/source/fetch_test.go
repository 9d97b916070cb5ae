package source

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func githubRepo(t *testing.T) domain.RepositoryRef {
	t.Helper()
	repo, err := domain.NewRepositoryRef("https://github.com/acme/site", 0)
	require.NoError(t, err)
	return repo
}

func newTestFetcher(serverURL string) *GitHubFetcher {
	return NewGitHubFetcher(GitHubConfig{
		APIURL:     serverURL + "/api",
		ArchiveURL: serverURL,
		Token:      "gh-token",
	}, nil)
}

// =============================================================================
// GitHubFetcher Tests
// =============================================================================

func TestGitHubFetcher_Fetch(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"site-trunk/index.html":     "<h1>hi</h1>",
		"site-trunk/css/style.css":  "body{}",
		"site-trunk/docs/guide.txt": "read me",
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/repos/acme/site":
			w.Write([]byte(`{"default_branch":"trunk"}`))
		case "/acme/site/archive/refs/heads/trunk.zip":
			w.Header().Set("Content-Type", "application/zip")
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	root, err := newTestFetcher(server.URL).Fetch(context.Background(), githubRepo(t), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "site-trunk", filepath.Base(root))
	data, err := os.ReadFile(filepath.Join(root, "css", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))
}

func TestGitHubFetcher_FallsBackToMain(t *testing.T) {
	archive := makeZip(t, map[string]string{"site-main/index.html": "ok"})

	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.URL.Path == "/acme/site/archive/refs/heads/main.zip" {
			w.Write(archive)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background(), githubRepo(t), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, requested, "/acme/site/archive/refs/heads/main.zip")
}

func TestGitHubFetcher_DownloadFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background(), githubRepo(t), t.TempDir())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestGitHubFetcher_ArchiveTooLarge(t *testing.T) {
	archive := makeZip(t, map[string]string{"site-main/index.html": "a large enough body"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer server.Close()

	f := NewGitHubFetcher(GitHubConfig{APIURL: server.URL, ArchiveURL: server.URL, MaxArchiveBytes: 10}, nil)
	_, err := f.Fetch(context.Background(), githubRepo(t), t.TempDir())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, ErrArchiveTooLarge)
}

func TestGitHubFetcher_NonGitHub(t *testing.T) {
	repo, err := domain.NewRepositoryRef("https://gitlab.com/acme/site", 0)
	require.NoError(t, err)

	_, err = newTestFetcher("http://unused").Fetch(context.Background(), repo, t.TempDir())
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

// =============================================================================
// Extract Tests
// =============================================================================

func TestExtract_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(archive, makeZip(t, map[string]string{"../evil.txt": "pwned"}), 0o644))

	_, err := Extract(archive, filepath.Join(dir, "out"))
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_NoSharedRoot(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "flat.zip")
	require.NoError(t, os.WriteFile(archive, makeZip(t, map[string]string{
		"index.html":   "root",
		"assets/a.css": "a",
	}), 0o644))

	root, err := Extract(archive, filepath.Join(dir, "out"))
	require.NoError(t, err)

	abs, _ := filepath.Abs(filepath.Join(dir, "out"))
	assert.Equal(t, abs, root)
	_, err = os.Stat(filepath.Join(root, "index.html"))
	assert.NoError(t, err)
}
