package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// RenderAdapter creates Render static sites and triggers their first deploy
// through a deploy hook.
type RenderAdapter struct {
	api    *apiClient
	logger *slog.Logger

	mu       sync.Mutex
	ownerID  string
	services map[string]renderService // by site name
}

type renderService struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	ServiceDetails struct {
		URL string `json:"url"`
	} `json:"serviceDetails"`
}

func (s renderService) hostedURL(name string) string {
	switch {
	case s.URL != "":
		return s.URL
	case s.ServiceDetails.URL != "":
		return s.ServiceDetails.URL
	}
	return fmt.Sprintf("https://%s.onrender.com", name)
}

// NewRenderAdapter creates a Render adapter. An empty ownerID is resolved
// from the API on first use.
func NewRenderAdapter(api *apiClient, ownerID string, logger *slog.Logger) *RenderAdapter {
	return &RenderAdapter{
		api:      api,
		ownerID:  ownerID,
		logger:   logger.With("platform", "render"),
		services: make(map[string]renderService),
	}
}

func (a *RenderAdapter) Kind() domain.PlatformKind {
	return domain.PlatformRender
}

// Validate lists services to check the token and resolves the owner id.
func (a *RenderAdapter) Validate(ctx context.Context) error {
	if err := validateGet(ctx, a.api, "/services", "render"); err != nil {
		return err
	}
	if _, err := a.owner(ctx); err != nil {
		return fmt.Errorf("render: could not determine owner id, set RENDER_OWNER_ID: %w", err)
	}
	return nil
}

// OwnerID returns the resolved owner id, if any.
func (a *RenderAdapter) OwnerID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ownerID
}

// owner returns the configured owner id or the first owner of the account.
func (a *RenderAdapter) owner(ctx context.Context) (string, error) {
	a.mu.Lock()
	id := a.ownerID
	a.mu.Unlock()
	if id != "" {
		return id, nil
	}

	resp, err := a.api.get(ctx, "/owners")
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("owner lookup returned HTTP %d", resp.StatusCode)
	}

	// Entries are either bare owners or wrapped as {"owner": {...}}.
	var owners []struct {
		ID    string `json:"id"`
		Owner struct {
			ID string `json:"id"`
		} `json:"owner"`
	}
	if err := resp.decode(&owners); err != nil {
		return "", err
	}
	for _, o := range owners {
		id = o.ID
		if id == "" {
			id = o.Owner.ID
		}
		if id != "" {
			break
		}
	}
	if id == "" {
		return "", fmt.Errorf("no owners on account")
	}

	a.logger.Info("resolved owner id", "owner_id", id)
	a.mu.Lock()
	a.ownerID = id
	a.mu.Unlock()
	return id, nil
}

// Deploy creates the static site (once per site name) and triggers a deploy
// hook. A hook failure after the site exists still reports success, with a note.
func (a *RenderAdapter) Deploy(ctx context.Context, req DeployRequest) domain.DeployOutcome {
	ownerID, err := a.owner(ctx)
	if err != nil {
		return domain.PermanentError("render owner lookup: " + err.Error())
	}

	svc, outcome, ok := a.service(ctx, req, ownerID)
	if !ok {
		return outcome
	}
	hosted := svc.hostedURL(req.SiteName)

	hookResp, err := a.api.postJSON(ctx, "/services/"+svc.ID+"/deploy-hooks",
		map[string]string{"name": fmt.Sprintf("deploy-hook-%d", time.Now().Unix())})
	if err != nil || !hookResp.ok(http.StatusOK, http.StatusCreated) {
		note := classify("render create deploy hook", hookResp, err).Error()
		a.logger.Warn("site created but deploy hook failed", "service_id", svc.ID, "error", note)
		return domain.SucceededWithNote(hosted, "site created; deploy not triggered: "+note)
	}

	var hook struct {
		URL string `json:"url"`
	}
	if err := hookResp.decode(&hook); err != nil || hook.URL == "" {
		return domain.SucceededWithNote(hosted, "site created; deploy hook has no url")
	}

	trigger, err := a.api.do(ctx, http.MethodPost, hook.URL, nil, "")
	if err != nil || !trigger.ok(http.StatusOK, http.StatusCreated, http.StatusAccepted) {
		note := classify("render trigger deploy", trigger, err).Error()
		return domain.SucceededWithNote(hosted, "site created; deploy not triggered: "+note)
	}

	a.logger.Info("deploy triggered", "service_id", svc.ID, "url", hosted)
	return domain.Succeeded(hosted)
}

func (a *RenderAdapter) service(ctx context.Context, req DeployRequest, ownerID string) (renderService, domain.DeployOutcome, bool) {
	a.mu.Lock()
	cached, ok := a.services[req.SiteName]
	a.mu.Unlock()
	if ok {
		return cached, domain.DeployOutcome{}, true
	}

	payload := map[string]any{
		"type":    "static_site",
		"name":    req.SiteName,
		"ownerId": ownerID,
		"repo":    req.Repo.URL,
		"serviceDetails": map[string]string{
			"publishPath": "public",
		},
	}
	resp, err := a.api.postJSON(ctx, "/services", payload)
	if err != nil || !resp.ok(http.StatusOK, http.StatusCreated) {
		return renderService{}, classify("render create service", resp, err), false
	}

	// The service is returned bare or wrapped as {"service": {...}}.
	var created struct {
		renderService
		Service *renderService `json:"service"`
	}
	if err := resp.decode(&created); err != nil {
		return renderService{}, domain.PermanentError("render create service: " + err.Error()), false
	}
	svc := created.renderService
	if created.Service != nil {
		svc = *created.Service
	}
	if svc.ID == "" {
		return renderService{}, domain.PermanentError("render create service: response has no service id"), false
	}

	a.logger.Info("service created", "service_id", svc.ID, "name", req.SiteName)

	a.mu.Lock()
	a.services[req.SiteName] = svc
	a.mu.Unlock()
	return svc, domain.DeployOutcome{}, true
}
