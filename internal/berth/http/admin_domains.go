package http

import (
	"encoding/json"
	"net/http"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

// AdminDomainsHandler manages the root domain allow-list.
type AdminDomainsHandler struct {
	DomainService *service.DomainService
}

type addDomainRequest struct {
	Name string `json:"name"`
}

// HandleAdd handles POST /v1/admin/root-domains.
func (h *AdminDomainsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	rd, err := h.DomainService.AddRootDomain(ctx, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("root domain added", "domain", rd.Name)
	httpx.WriteJSON(w, http.StatusCreated, rd)
}

// HandleDelete handles DELETE /v1/admin/root-domains/{id}.
func (h *AdminDomainsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.DomainService.DeleteRootDomain(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminSystemHandler exposes controller system endpoints to admins.
type AdminSystemHandler struct {
	Cluster *cluster.Client
}

// HandleIP handles GET /v1/admin/system/ip.
func (h *AdminSystemHandler) HandleIP(w http.ResponseWriter, r *http.Request) {
	info, err := h.Cluster.SystemIP(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, info)
}

// HandlePrune handles POST /v1/admin/system/prune.
func (h *AdminSystemHandler) HandlePrune(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.Cluster.Prune(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("system prune triggered")
	httpx.WriteJSON(w, http.StatusOK, result)
}
