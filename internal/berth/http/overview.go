package http

import (
	"encoding/json"
	"net/http"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
)

// OverviewHandler assembles the dashboard payload: live cluster stats plus
// the caller's containers annotated with their registry domains.
type OverviewHandler struct {
	DeployService *service.DeployService
	Cluster       *cluster.Client
}

type overviewResponse struct {
	Stats      json.RawMessage     `json:"stats"`
	Containers []cluster.Container `json:"containers"`
}

func (h *OverviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	containers, err := h.DeployService.VisibleContainers(ctx, user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	stats, err := h.Cluster.Stats(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, overviewResponse{
		Stats:      stats,
		Containers: containers,
	})
}

// TemplatesHandler lists the compose templates the controller can deploy.
type TemplatesHandler struct {
	Cluster *cluster.Client
}

func (h *TemplatesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Cluster.Templates(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// RootDomainsHandler lists the admin-approved root domains for the deploy
// form.
type RootDomainsHandler struct {
	DomainService *service.DomainService
}

func (h *RootDomainsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	domains, err := h.DomainService.ListRootDomains(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"root_domains": domains})
}

// StatsHandler proxies the controller's live stats feed.
type StatsHandler struct {
	Cluster *cluster.Client
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Cluster.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, stats)
}
