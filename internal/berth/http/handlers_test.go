package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/berthd/berth/internal/berth/domain"
	"github.com/berthd/berth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func seedRootDomain(t *testing.T, env *testEnv, name string) {
	t.Helper()
	require.NoError(t, env.store.RootDomains().CreateRootDomain(context.Background(), domain.RootDomain{
		ID:   idx.New().String(),
		Name: name,
	}))
}

func seedDeployment(t *testing.T, env *testEnv, userID, stack, fqdn string) {
	t.Helper()
	require.NoError(t, env.store.Deployments().CreateDeployment(context.Background(), domain.Deployment{
		ID:        idx.New().String(),
		StackName: stack,
		Domain:    fqdn,
		UserID:    userID,
	}))
}

func TestLoginAndLogout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.createUser(t, "alice", "s3cret-enough", domain.RoleUser)

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "",
		map[string]string{"username": "alice", "password": "s3cret-enough"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.NotEmpty(t, body["token"])
	require.Equal(t, "alice", body["username"])
	require.Equal(t, "user", body["role"])

	// The session cookie is set and usable.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookie, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	rec = env.do(t, http.MethodPost, "/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Less(t, cookies[0].MaxAge, 0)
}

func TestLoginBadPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.createUser(t, "alice", "right-password", domain.RoleUser)

	for _, creds := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "nobody", "password": "whatever"},
		{"username": "alice", "password": ""},
	} {
		rec := env.do(t, http.MethodPost, "/v1/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid credentials", decodeBody(t, rec)["error"])
	}
}

func TestDeployEndpoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := env.createUser(t, "alice", "", domain.RoleUser)
	seedRootDomain(t, env, "example.com")

	env.upstream.HandleFunc("GET /containers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	var deployed struct {
		path string
		body map[string]any
	}
	env.upstream.HandleFunc("POST /deploy/{template}", func(w http.ResponseWriter, r *http.Request) {
		deployed.path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&deployed.body)
		fmt.Fprint(w, `{"stack":"blog"}`)
	})

	rec := env.do(t, http.MethodPost, "/v1/deploy", env.token(t, user), map[string]string{
		"template":    "wordpress",
		"stack_name":  "blog",
		"root_domain": "example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "blog", body["stack_name"])
	require.Equal(t, "alice-blog.example.com", body["domain"])
	require.Equal(t, "/deploy/wordpress", deployed.path)
}

func TestDeployQuotaExceededMapsTo403(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := env.createUser(t, "bob", "", domain.RoleUser)
	seedRootDomain(t, env, "example.com")

	env.upstream.HandleFunc("GET /containers", func(w http.ResponseWriter, r *http.Request) {
		containers := make([]map[string]any, user.Quota.MaxContainers)
		for i := range containers {
			containers[i] = map[string]any{"stack_name": "s", "account": user.ID}
		}
		_ = json.NewEncoder(w).Encode(containers)
	})

	rec := env.do(t, http.MethodPost, "/v1/deploy", env.token(t, user), map[string]string{
		"template": "ghost", "stack_name": "new", "root_domain": "example.com",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpstreamErrorMapsTo502Verbatim(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := env.createUser(t, "carol", "", domain.RoleUser)
	seedRootDomain(t, env, "example.com")

	env.upstream.HandleFunc("GET /containers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	env.upstream.HandleFunc("POST /deploy/{template}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"no space left on device"}`)
	})

	rec := env.do(t, http.MethodPost, "/v1/deploy", env.token(t, user), map[string]string{
		"template": "ghost", "stack_name": "blog", "root_domain": "example.com",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "no space left on device", decodeBody(t, rec)["error"])
}

func TestStackRemovalOwnership(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "", domain.RoleUser)
	stranger := env.createUser(t, "stranger", "", domain.RoleUser)
	seedDeployment(t, env, owner.ID, "blog", "owner-blog.example.com")

	removed := 0
	env.upstream.HandleFunc("DELETE /stack/remove/{stack}", func(w http.ResponseWriter, r *http.Request) {
		removed++
		fmt.Fprint(w, `{"status":"removed"}`)
	})

	rec := env.do(t, http.MethodDelete, "/v1/stacks/blog", env.token(t, stranger), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, removed)

	rec = env.do(t, http.MethodDelete, "/v1/stacks/blog", env.token(t, owner), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 1, removed)
}

func TestLogsRequireOwnership(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "", domain.RoleUser)
	stranger := env.createUser(t, "stranger", "", domain.RoleUser)
	seedDeployment(t, env, owner.ID, "blog", "owner-blog.example.com")

	env.upstream.HandleFunc("GET /logs/{stack}/{service}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"logs":"hello from wordpress"}`)
	})

	rec := env.do(t, http.MethodGet, "/v1/logs/blog/wordpress", env.token(t, stranger), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/logs/blog/wordpress", env.token(t, owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFilesRequireOwnership(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "", domain.RoleUser)
	stranger := env.createUser(t, "stranger", "", domain.RoleUser)
	admin := env.createUser(t, "root", "", domain.RoleAdmin)
	seedDeployment(t, env, owner.ID, "blog", "owner-blog.example.com")

	env.upstream.HandleFunc("GET /files/{stack}/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[]}`)
	})

	rec := env.do(t, http.MethodGet, "/v1/files/blog", env.token(t, stranger), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/files/blog", env.token(t, owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Admins may reach any stack, tracked or not.
	rec = env.do(t, http.MethodGet, "/v1/files/blog", env.token(t, admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOverviewFiltersToOwner(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "", domain.RoleUser)
	bob := env.createUser(t, "bob", "", domain.RoleUser)
	seedDeployment(t, env, alice.ID, "blog", "alice-blog.example.com")

	env.upstream.HandleFunc("GET /containers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"stack_name":"blog","account":%q},
			{"stack_name":"wiki","account":%q}
		]`, alice.ID, bob.ID)
	})
	env.upstream.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cpu":12.5}`)
	})

	rec := env.do(t, http.MethodGet, "/v1/overview", env.token(t, alice), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	containers, ok := body["containers"].([]any)
	require.True(t, ok)
	require.Len(t, containers, 1)
	first, ok := containers[0].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "blog", first["stack_name"])
	require.Equal(t, "alice-blog.example.com", first["custom_domain"])
}

func TestAdminUserLifecycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	admin := env.createUser(t, "root", "", domain.RoleAdmin)
	token := env.token(t, admin)

	rec := env.do(t, http.MethodPost, "/v1/admin/users", token, map[string]any{
		"username":       "newbie",
		"password":       "initial-pass",
		"max_containers": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	require.Equal(t, "user", created["role"])
	require.Equal(t, float64(3), created["max_containers"])
	userID, _ := created["id"].(string)
	require.NotEmpty(t, userID)

	// Duplicate username conflicts.
	rec = env.do(t, http.MethodPost, "/v1/admin/users", token, map[string]any{"username": "newbie"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/admin/users/"+userID, token, map[string]any{
		"full_name": "New B. User",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "New B. User", decodeBody(t, rec)["full_name"])

	rec = env.do(t, http.MethodDelete, "/v1/admin/users/"+userID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Self-delete is refused.
	rec = env.do(t, http.MethodDelete, "/v1/admin/users/"+admin.ID, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRootDomains(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	admin := env.createUser(t, "root", "", domain.RoleAdmin)
	user := env.createUser(t, "pleb", "", domain.RoleUser)
	token := env.token(t, admin)

	rec := env.do(t, http.MethodPost, "/v1/admin/root-domains", token, map[string]string{"name": "Example.COM"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Listed lowercase for everyone.
	rec = env.do(t, http.MethodGet, "/v1/root-domains", env.token(t, user), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	domains, ok := decodeBody(t, rec)["root_domains"].([]any)
	require.True(t, ok)
	require.Len(t, domains, 1)

	rec = env.do(t, http.MethodPost, "/v1/admin/root-domains", token, map[string]string{"name": "example.com"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/admin/root-domains", token, map[string]string{"name": "nodots"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Non-admins cannot manage the list.
	rec = env.do(t, http.MethodPost, "/v1/admin/root-domains", env.token(t, user), map[string]string{"name": "x.dev"})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.upstream.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"cpu":1}`)
	})

	rec := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzDegradedWhenClusterDown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	// No /stats route registered upstream: the controller answers 404 with
	// a non-JSON body, which the gateway reports as an error.
	rec := env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decodeBody(t, rec)["status"])
}
