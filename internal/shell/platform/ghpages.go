package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// GitHubPagesAdapter enables GitHub Pages on the source repository itself.
type GitHubPagesAdapter struct {
	api    *apiClient
	logger *slog.Logger
}

// NewGitHubPagesAdapter creates a GitHub Pages adapter.
func NewGitHubPagesAdapter(api *apiClient, logger *slog.Logger) *GitHubPagesAdapter {
	api.headers = map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	return &GitHubPagesAdapter{
		api:    api,
		logger: logger.With("platform", "github"),
	}
}

func (a *GitHubPagesAdapter) Kind() domain.PlatformKind {
	return domain.PlatformGitHubPages
}

// Validate fetches the authenticated user.
func (a *GitHubPagesAdapter) Validate(ctx context.Context) error {
	return validateGet(ctx, a.api, "/user", "github")
}

// PagesURL is the address GitHub Pages serves a repository from.
func PagesURL(repo domain.RepositoryRef) string {
	return fmt.Sprintf("https://%s.github.io/%s", repo.Owner, repo.Name)
}

// Deploy enables Pages from the gh-pages branch when it exists, otherwise
// from the default branch. Repositories with Pages already enabled succeed
// without changes.
func (a *GitHubPagesAdapter) Deploy(ctx context.Context, req DeployRequest) domain.DeployOutcome {
	repo := req.Repo
	if !repo.IsGitHub() {
		return domain.PermanentError("github pages: not a github.com repository")
	}
	base := fmt.Sprintf("/repos/%s/%s", repo.Owner, repo.Name)
	hosted := PagesURL(repo)

	resp, err := a.api.get(ctx, base+"/pages")
	switch {
	case err != nil:
		return classify("github pages status", resp, err)
	case resp.StatusCode == http.StatusOK:
		var pages struct {
			HTMLURL string `json:"html_url"`
		}
		if resp.decode(&pages) == nil && pages.HTMLURL != "" {
			hosted = pages.HTMLURL
		}
		a.logger.Info("pages already enabled", "repo", repo.FullName(), "url", hosted)
		return domain.SucceededWithNote(hosted, "github pages already enabled")
	case resp.StatusCode != http.StatusNotFound:
		return classify("github pages status", resp, nil)
	}

	resp, err = a.api.get(ctx, base)
	if err != nil || !resp.ok(http.StatusOK) {
		return classify("github repository lookup", resp, err)
	}
	var info struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := resp.decode(&info); err != nil {
		return domain.PermanentError("github repository lookup: " + err.Error())
	}
	branch := info.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	// A failed branch probe keeps the default branch.
	if probe, err := a.api.get(ctx, base+"/branches/gh-pages"); err == nil && probe.StatusCode == http.StatusOK {
		branch = "gh-pages"
	}

	payload := map[string]any{
		"source": map[string]string{"branch": branch, "path": "/"},
	}
	resp, err = a.api.postJSON(ctx, base+"/pages", payload)
	if err != nil || !resp.ok(http.StatusCreated, http.StatusNoContent) {
		return classify("github enable pages", resp, err)
	}

	a.logger.Info("pages enabled", "repo", repo.FullName(), "branch", branch, "url", hosted)
	return domain.Succeeded(hosted)
}
