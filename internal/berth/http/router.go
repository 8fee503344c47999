package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/berthd/berth/internal/berth/cluster"
	"github.com/berthd/berth/internal/berth/service"
	"github.com/berthd/berth/internal/berth/store"
	"github.com/berthd/berth/pkg/httpx"
	"github.com/berthd/berth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	secureCookie bool
	logger       *slog.Logger

	store   store.Store
	cluster *cluster.Client

	Sessions      *service.Sessions
	AuthService   *service.AuthService
	DeployService *service.DeployService
	UserService   *service.UserService
	DomainService *service.DomainService
}

func NewRouter(
	buildVersion string,
	secureCookie bool,
	st store.Store,
	cl *cluster.Client,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		secureCookie: secureCookie,
		store:        st,
		cluster:      cl,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerDashboard()
	r.registerDeploy()
	r.registerFiles()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with session authentication and a per-user-ish
// rate limit keyed by IP.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		SessionMiddleware(r.Sessions, r.store),
		httpx.RateLimitByIP(limit),
	)
}

// adminOnly stacks the admin gate on top of session authentication.
func (r *Router) adminOnly(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		SessionMiddleware(r.Sessions, r.store),
		RequireAdmin(),
		httpx.RateLimitByIP(limit),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService: r.AuthService,
		Sessions:    r.Sessions,
		Secure:      r.secureCookie,
	}

	// Login is the brute-force surface; strict limit per source IP.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout))
}

func (r *Router) registerDashboard() {
	overview := &OverviewHandler{DeployService: r.DeployService, Cluster: r.cluster}
	templates := &TemplatesHandler{Cluster: r.cluster}
	rootDomains := &RootDomainsHandler{DomainService: r.DomainService}
	stats := &StatsHandler{Cluster: r.cluster}
	logs := &LogsHandler{DeployService: r.DeployService, Cluster: r.cluster}

	r.Mux.Handle("GET /v1/overview", r.secured(overview, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/templates", r.secured(templates, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/root-domains", r.secured(rootDomains, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/stats", r.secured(stats, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/logs/{stack}/{service}", r.secured(logs, httpx.LenientLimit))
}

func (r *Router) registerDeploy() {
	h := &DeployHandler{DeployService: r.DeployService}
	actions := &ServiceActionHandler{Cluster: r.cluster}

	r.Mux.Handle("POST /v1/deploy",
		r.secured(http.HandlerFunc(h.HandleDeploy), httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/deployments",
		r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/stacks/{stack}",
		r.secured(http.HandlerFunc(h.HandleRemove), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/services/{id}/{action}",
		r.secured(actions, httpx.ModerateLimit))
}

func (r *Router) registerFiles() {
	h := &FilesHandler{DeployService: r.DeployService, Cluster: r.cluster}

	r.Mux.Handle("GET /v1/files/{stack}",
		r.secured(http.HandlerFunc(h.HandleList), httpx.LenientLimit))
	r.Mux.Handle("GET /v1/files/{stack}/read",
		r.secured(http.HandlerFunc(h.HandleRead), httpx.LenientLimit))
	r.Mux.Handle("POST /v1/files/{stack}/edit",
		r.secured(http.HandlerFunc(h.HandleEdit), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/files/{stack}/create",
		r.secured(http.HandlerFunc(h.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/files/{stack}/mkdir",
		r.secured(http.HandlerFunc(h.HandleMkdir), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/files/{stack}/manage",
		r.secured(http.HandlerFunc(h.HandleManage), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/files/{stack}/upload",
		r.secured(http.HandlerFunc(h.HandleUpload), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/files/{stack}/upload-bulk",
		r.secured(http.HandlerFunc(h.HandleUploadBulk), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/files/{stack}/upload-zip",
		r.secured(http.HandlerFunc(h.HandleUploadZip), httpx.ModerateLimit))
}

func (r *Router) registerAdmin() {
	users := &AdminUsersHandler{UserService: r.UserService}
	domains := &AdminDomainsHandler{DomainService: r.DomainService}
	system := &AdminSystemHandler{Cluster: r.cluster}

	r.Mux.Handle("GET /v1/admin/users",
		r.adminOnly(http.HandlerFunc(users.HandleList), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/admin/users",
		r.adminOnly(http.HandlerFunc(users.HandleCreate), httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/admin/users/{id}",
		r.adminOnly(http.HandlerFunc(users.HandleUpdate), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/admin/users/{id}",
		r.adminOnly(http.HandlerFunc(users.HandleDelete), httpx.ModerateLimit))

	r.Mux.Handle("POST /v1/admin/root-domains",
		r.adminOnly(http.HandlerFunc(domains.HandleAdd), httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/admin/root-domains/{id}",
		r.adminOnly(http.HandlerFunc(domains.HandleDelete), httpx.ModerateLimit))

	r.Mux.Handle("GET /v1/admin/system/ip",
		r.adminOnly(http.HandlerFunc(system.HandleIP), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/admin/system/prune",
		r.adminOnly(http.HandlerFunc(system.HandlePrune), httpx.StrictLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cluster),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
