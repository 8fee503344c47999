package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	AuthService *service.AuthService
	Sessions    *service.Sessions
	Secure      bool
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleLogin handles POST /v1/auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	user, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		// A failed login is always the same 401, whichever branch of the
		// credential check failed.
		log.Info("login rejected", "username", req.Username)
		writeServiceError(w, r, err)
		return
	}

	token, err := h.Sessions.Issue(user)
	if err != nil {
		log.Error("session mint failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ttl := h.Sessions.TTL
	if ttl == 0 {
		ttl = service.DefaultSessionTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("login ok", "username", user.Username, "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
}

// HandleLogout handles POST /v1/auth/logout. Sessions are stateless, so
// logout just expires the cookie client-side.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
