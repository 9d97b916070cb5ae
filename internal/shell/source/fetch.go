package source

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// Fetcher downloads a repository into a local directory.
type Fetcher interface {
	// Fetch places a checkout of repo under destDir and returns its root.
	Fetch(ctx context.Context, repo domain.RepositoryRef, destDir string) (string, error)
}

// =============================================================================
// GitHub Archive Fetcher
// =============================================================================

// GitHubConfig holds configuration for the GitHub archive fetcher.
type GitHubConfig struct {
	APIURL     string // REST API, used for the default branch lookup
	ArchiveURL string // host serving /{owner}/{repo}/archive/refs/heads/{branch}.zip
	Token      string
	Timeout    time.Duration
	// MaxArchiveBytes bounds the downloaded archive. Zero disables the bound.
	MaxArchiveBytes int64
}

// DefaultGitHubConfig returns the public GitHub endpoints.
func DefaultGitHubConfig() GitHubConfig {
	return GitHubConfig{
		APIURL:     "https://api.github.com",
		ArchiveURL: "https://github.com",
		Timeout:    5 * time.Minute,
	}
}

// GitHubFetcher downloads branch archives of github.com repositories.
type GitHubFetcher struct {
	cfg        GitHubConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGitHubFetcher creates a fetcher for github.com repositories.
func NewGitHubFetcher(cfg GitHubConfig, logger *slog.Logger) *GitHubFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubFetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "fetcher"),
	}
}

// Fetch downloads the default branch archive of repo and extracts it.
func (f *GitHubFetcher) Fetch(ctx context.Context, repo domain.RepositoryRef, destDir string) (string, error) {
	if !repo.IsGitHub() {
		return "", &SourceError{Op: "Fetch", Repo: repo.URL, Err: ErrUnsupportedSource}
	}

	branch := f.defaultBranch(ctx, repo)
	url := fmt.Sprintf("%s/%s/%s/archive/refs/heads/%s.zip",
		strings.TrimRight(f.cfg.ArchiveURL, "/"), repo.Owner, repo.Name, branch)

	f.logger.Info("downloading repository", "repo", repo.URL, "branch", branch)

	archive, err := f.download(ctx, url, destDir)
	if err != nil {
		return "", &SourceError{Op: "Fetch", Repo: repo.URL, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}
	defer os.Remove(archive)

	root, err := Extract(archive, filepath.Join(destDir, "checkout"))
	if err != nil {
		return "", &SourceError{Op: "Fetch", Repo: repo.URL, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}
	return root, nil
}

// defaultBranch asks the API for the default branch and falls back to main.
func (f *GitHubFetcher) defaultBranch(ctx context.Context, repo domain.RepositoryRef) string {
	url := fmt.Sprintf("%s/repos/%s/%s", strings.TrimRight(f.cfg.APIURL, "/"), repo.Owner, repo.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "main"
	}
	f.authorize(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("default branch lookup failed", "repo", repo.URL, "error", err)
		return "main"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "main"
	}
	var body struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.DefaultBranch == "" {
		return "main"
	}
	return body.DefaultBranch
}

func (f *GitHubFetcher) download(ctx context.Context, url, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	f.authorize(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("archive download returned HTTP %d", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	out, err := os.CreateTemp(destDir, "archive-*.zip")
	if err != nil {
		return "", err
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if f.cfg.MaxArchiveBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxArchiveBytes+1)
	}
	n, err := io.Copy(out, body)
	if err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if f.cfg.MaxArchiveBytes > 0 && n > f.cfg.MaxArchiveBytes {
		os.Remove(out.Name())
		return "", fmt.Errorf("%w: larger than %d bytes", ErrArchiveTooLarge, f.cfg.MaxArchiveBytes)
	}
	return out.Name(), nil
}

func (f *GitHubFetcher) authorize(req *http.Request) {
	if f.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.Token)
	}
}

// =============================================================================
// Archive Extraction
// =============================================================================

// Extract unpacks the zip archive at path into destDir. When every entry
// shares one top-level directory, as in branch archives, that directory is
// returned as the root.
func Extract(path, destDir string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	dest, err := filepath.Abs(destDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}

	top := ""
	shared := true
	for _, zf := range r.File {
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return "", err
		}

		first := strings.SplitN(strings.TrimPrefix(zf.Name, "/"), "/", 2)[0]
		if top == "" {
			top = first
		} else if first != top {
			shared = false
		}
		if !strings.Contains(strings.TrimSuffix(zf.Name, "/"), "/") && !zf.FileInfo().IsDir() {
			shared = false
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
		case mode&os.ModeSymlink != 0:
			continue
		default:
			if err := extractFile(zf, target); err != nil {
				return "", err
			}
		}
	}

	if shared && top != "" {
		return filepath.Join(dest, top), nil
	}
	return dest, nil
}

func extractFile(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin joins name onto dest and rejects paths that leave dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}
	return target, nil
}
