package http

import (
	"net/http"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
)

// LogsHandler proxies service logs. Callers must own the stack the service
// belongs to.
type LogsHandler struct {
	DeployService *service.DeployService
	Cluster       *cluster.Client
}

// ServeHTTP handles GET /v1/logs/{stack}/{service}.
func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	stack := r.PathValue("stack")
	svc := r.PathValue("service")
	if stack == "" || svc == "" {
		httpx.WriteError(w, http.StatusBadRequest, "stack and service are required")
		return
	}

	owns, err := h.DeployService.OwnsStack(ctx, user, stack)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !owns {
		httpx.WriteError(w, http.StatusForbidden, "access denied")
		return
	}

	logs, err := h.Cluster.Logs(ctx, stack, svc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"logs": logs})
}
