package http

import (
	"net/http"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

var serviceActions = map[string]bool{
	"start":   true,
	"stop":    true,
	"restart": true,
}

// ServiceActionHandler proxies start/stop/restart of a single service to the
// controller.
type ServiceActionHandler struct {
	Cluster *cluster.Client
}

// ServeHTTP handles POST /v1/services/{id}/{action}.
func (h *ServiceActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	serviceID := r.PathValue("id")
	action := r.PathValue("action")
	if serviceID == "" || !serviceActions[action] {
		httpx.WriteError(w, http.StatusBadRequest, "unknown service action")
		return
	}

	result, err := h.Cluster.ManageService(ctx, serviceID, action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("service action",
		"service_id", serviceID, "action", action, "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, result)
}
