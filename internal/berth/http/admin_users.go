package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

// AdminUsersHandler covers the admin user management endpoints. The admin
// gate itself is middleware; these handlers assume it passed.
type AdminUsersHandler struct {
	UserService *service.UserService
}

type userInfo struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	FullName      string  `json:"full_name,omitempty"`
	Role          string  `json:"role"`
	MaxContainers int     `json:"max_containers"`
	MaxCPUs       float64 `json:"max_cpus"`
	MaxRAMMB      int     `json:"max_ram_mb"`
	MaxStorageGB  int     `json:"max_storage_gb"`
	HasPassword   bool    `json:"has_password"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

func toUserInfo(u domain.User) userInfo {
	info := userInfo{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		Role:          string(u.Role),
		MaxContainers: u.Quota.MaxContainers,
		MaxCPUs:       u.Quota.MaxCPUs,
		MaxRAMMB:      u.Quota.MaxRAMMB,
		MaxStorageGB:  u.Quota.MaxStorageGB,
		HasPassword:   u.PasswordHash != "",
	}
	if !u.CreatedAt.IsZero() {
		info.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return info
}

// HandleList handles GET /v1/admin/users.
func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]userInfo, len(users))
	for i, u := range users {
		out[i] = toUserInfo(u)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

type createUserRequest struct {
	Username      string   `json:"username"`
	FullName      string   `json:"full_name"`
	Password      string   `json:"password"`
	Role          string   `json:"role"`
	MaxContainers *int     `json:"max_containers"`
	MaxCPUs       *float64 `json:"max_cpus"`
	MaxRAMMB      *int     `json:"max_ram_mb"`
	MaxStorageGB  *int     `json:"max_storage_gb"`
}

// HandleCreate handles POST /v1/admin/users.
func (h *AdminUsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	var role domain.Role
	if req.Role != "" {
		var err error
		role, err = domain.ParseRole(req.Role)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown role")
			return
		}
	}

	quota := domain.DefaultQuota()
	if req.MaxContainers != nil {
		quota.MaxContainers = *req.MaxContainers
	}
	if req.MaxCPUs != nil {
		quota.MaxCPUs = *req.MaxCPUs
	}
	if req.MaxRAMMB != nil {
		quota.MaxRAMMB = *req.MaxRAMMB
	}
	if req.MaxStorageGB != nil {
		quota.MaxStorageGB = *req.MaxStorageGB
	}

	user, err := h.UserService.CreateUser(ctx, service.CreateParams{
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		Role:     role,
		Quota:    quota,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("user created", "username", user.Username, "role", user.Role)
	httpx.WriteJSON(w, http.StatusCreated, toUserInfo(user))
}

type updateUserRequest struct {
	Username      string   `json:"username"`
	FullName      string   `json:"full_name"`
	Password      string   `json:"password"`
	MaxContainers *int     `json:"max_containers"`
	MaxCPUs       *float64 `json:"max_cpus"`
	MaxRAMMB      *int     `json:"max_ram_mb"`
	MaxStorageGB  *int     `json:"max_storage_gb"`
}

// HandleUpdate handles PUT /v1/admin/users/{id}.
func (h *AdminUsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	user, err := h.UserService.UpdateUser(r.Context(), r.PathValue("id"), service.UpdateParams{
		Username:      req.Username,
		FullName:      req.FullName,
		Password:      req.Password,
		MaxContainers: req.MaxContainers,
		MaxCPUs:       req.MaxCPUs,
		MaxRAMMB:      req.MaxRAMMB,
		MaxStorageGB:  req.MaxStorageGB,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserInfo(user))
}

// HandleDelete handles DELETE /v1/admin/users/{id}?remove_stacks=true.
func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	removeStacks := r.URL.Query().Get("remove_stacks") == "true"
	removed, err := h.UserService.DeleteUser(ctx, caller, r.PathValue("id"), removeStacks)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"stacks_removed": removed})
}
