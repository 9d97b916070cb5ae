package platform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// NetlifyAdapter deploys zipped sites through the Netlify API.
type NetlifyAdapter struct {
	api    *apiClient
	logger *slog.Logger

	mu    sync.Mutex
	sites map[string]netlifySite // by site name, so retries reuse a created site
}

type netlifySite struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	SSLURL string `json:"ssl_url"`
}

func (s netlifySite) hostedURL() string {
	if s.SSLURL != "" {
		return s.SSLURL
	}
	return s.URL
}

type netlifyDeploy struct {
	ID        string `json:"id"`
	DeployURL string `json:"deploy_url"`
	SSLURL    string `json:"ssl_url"`
	URL       string `json:"url"`
}

// NewNetlifyAdapter creates a Netlify adapter.
func NewNetlifyAdapter(api *apiClient, logger *slog.Logger) *NetlifyAdapter {
	return &NetlifyAdapter{
		api:    api,
		logger: logger.With("platform", "netlify"),
		sites:  make(map[string]netlifySite),
	}
}

func (a *NetlifyAdapter) Kind() domain.PlatformKind {
	return domain.PlatformNetlify
}

// Validate lists sites to check the token.
func (a *NetlifyAdapter) Validate(ctx context.Context) error {
	return validateGet(ctx, a.api, "/sites", "netlify")
}

// Deploy creates the site (once per site name) and uploads the zip.
func (a *NetlifyAdapter) Deploy(ctx context.Context, req DeployRequest) domain.DeployOutcome {
	if req.Package == nil || len(req.Package.Zip) == 0 {
		return domain.PermanentError("netlify: empty package")
	}

	site, outcome, ok := a.site(ctx, req.SiteName)
	if !ok {
		return outcome
	}

	resp, err := a.api.do(ctx, http.MethodPost, "/sites/"+site.ID+"/deploys",
		bytes.NewReader(req.Package.Zip), "application/zip")
	if err != nil || !resp.ok(http.StatusOK, http.StatusCreated) {
		return classify("netlify deploy", resp, err)
	}

	var deploy netlifyDeploy
	if err := resp.decode(&deploy); err != nil {
		return domain.PermanentError("netlify deploy: " + err.Error())
	}

	hosted := deploy.DeployURL
	if hosted == "" {
		hosted = site.hostedURL()
	}
	if hosted == "" {
		return domain.PermanentError("netlify deploy: response has no site URL")
	}

	a.logger.Info("site deployed", "site_id", site.ID, "deploy_id", deploy.ID, "url", hosted)
	return domain.Succeeded(hosted)
}

// site returns the site for name, creating it on first use.
func (a *NetlifyAdapter) site(ctx context.Context, name string) (netlifySite, domain.DeployOutcome, bool) {
	a.mu.Lock()
	cached, ok := a.sites[name]
	a.mu.Unlock()
	if ok {
		return cached, domain.DeployOutcome{}, true
	}

	resp, err := a.api.postJSON(ctx, "/sites", map[string]string{"name": name})
	if err != nil || !resp.ok(http.StatusCreated, http.StatusOK) {
		return netlifySite{}, classify("netlify create site", resp, err), false
	}

	var site netlifySite
	if err := resp.decode(&site); err != nil {
		return netlifySite{}, domain.PermanentError("netlify create site: " + err.Error()), false
	}
	if site.ID == "" {
		return netlifySite{}, domain.PermanentError("netlify create site: response has no site id"), false
	}

	a.logger.Info("site created", "site_id", site.ID, "name", name)

	a.mu.Lock()
	a.sites[name] = site
	a.mu.Unlock()
	return site, domain.DeployOutcome{}, true
}

// validateGet issues an authenticated GET and maps the result to a
// credential error.
func validateGet(ctx context.Context, api *apiClient, path, platform string) error {
	resp, err := api.get(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: failed to reach API: %w", platform, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned HTTP %d", ErrInvalidCredential, platform, resp.StatusCode)
	}
	return fmt.Errorf("%s: unexpected HTTP %d: %s", platform, resp.StatusCode, bodySnippet(resp.Body))
}
