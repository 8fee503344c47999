package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

// DeployHandler covers stack deployment, listing and removal.
type DeployHandler struct {
	DeployService *service.DeployService
}

type deployRequest struct {
	Template   string `json:"template"`
	StackName  string `json:"stack_name"`
	RootDomain string `json:"root_domain"`
	CPUs       string `json:"cpus"`
	RAM        string `json:"ram"`
}

type deploymentInfo struct {
	ID        string `json:"id"`
	StackName string `json:"stack_name"`
	Domain    string `json:"domain"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// HandleDeploy handles POST /v1/deploy.
func (h *DeployHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req deployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	deployment, err := h.DeployService.Deploy(ctx, user, service.DeployParams{
		Template:   req.Template,
		StackName:  req.StackName,
		RootDomain: req.RootDomain,
		CPUs:       req.CPUs,
		RAM:        req.RAM,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, deploymentInfo{
		ID:        deployment.ID,
		StackName: deployment.StackName,
		Domain:    deployment.Domain,
		UserID:    deployment.UserID,
	})
}

// HandleList handles GET /v1/deployments.
func (h *DeployHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	deployments, err := h.DeployService.ListDeployments(ctx, user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]deploymentInfo, len(deployments))
	for i, d := range deployments {
		out[i] = deploymentInfo{
			ID:        d.ID,
			StackName: d.StackName,
			Domain:    d.Domain,
			UserID:    d.UserID,
			CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deployments": out})
}

// HandleRemove handles DELETE /v1/stacks/{stack}.
func (h *DeployHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	stack := r.PathValue("stack")
	if stack == "" {
		httpx.WriteError(w, http.StatusBadRequest, "stack name is required")
		return
	}

	if err := h.DeployService.RemoveStack(ctx, user, stack); err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("stack removed", "stack", stack, "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}
