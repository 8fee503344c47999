package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/httpx"
)

// SessionCookie is the cookie the login endpoint sets. Bearer tokens are
// accepted as an alternative for non-browser clients.
const SessionCookie = "berth_session"

type contextKey string

const userContextKey contextKey = "berth.user"

// UserFromContext returns the authenticated user placed there by
// SessionMiddleware. The second return is false on unauthenticated requests.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userContextKey).(domain.User)
	return u, ok
}

// SessionMiddleware authenticates the request from the session cookie or an
// Authorization bearer token. The user is re-read from the store on every
// request, so role and quota edits apply immediately and deleted accounts
// lose access without waiting for token expiry.
func SessionMiddleware(sessions *service.Sessions, st store.Store) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					token = c.Value
				}
			}
			if token == "" {
				httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := sessions.Verify(token)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "invalid session")
				return
			}

			user, err := st.Users().GetUserByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					httpx.WriteError(w, http.StatusUnauthorized, "invalid session")
					return
				}
				httpx.WriteError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers. It must sit inside
// SessionMiddleware in the chain.
func RequireAdmin() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !user.IsAdmin() {
				httpx.WriteError(w, http.StatusForbidden, "access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
