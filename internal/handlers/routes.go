package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/friendfilter/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Credentials       CredentialStore
	Upstream          FriendsAPI
	Triage            BatchTriage
	Importer          CredentialImporter
	DefaultMinAgeDays int
	NowFunc           func() time.Time
}

// RouterOptions configures the middleware stack around the API.
type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// MutationLimiter throttles the routes that change state or fan out
	// upstream. Nil disables throttling.
	MutationLimiter middleware.RateLimiter
}

// Rate limit scopes for the mutating route groups.
const (
	ScopeCredential = "credential"
	ScopeTriage     = "triage"
)

// Route describes one registered endpoint.
type Route struct {
	Method string
	Path   string
}

// NewRouter builds the chi router serving every API route.
func NewRouter(deps Dependencies, opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	RegisterRoutes(r, deps, opts.MutationLimiter)
	return r
}

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(r chi.Router, deps Dependencies, limiter middleware.RateLimiter) {
	health := HealthHandler{Credentials: deps.Credentials, NowFunc: deps.NowFunc}
	creds := CredentialHandler{Credentials: deps.Credentials, Upstream: deps.Upstream, Importer: deps.Importer}
	friends := FriendHandler{
		Credentials:       deps.Credentials,
		Upstream:          deps.Upstream,
		Triage:            deps.Triage,
		DefaultMinAgeDays: deps.DefaultMinAgeDays,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Handle)
		r.Get("/test-credential", creds.Test)
		r.Get("/test-cookie", creds.Test)
		r.Get("/list-pending-requests", friends.ListPending)
		r.Get("/get-friend-requests", friends.ListPending)
		r.Get("/get-user-info/{id}", friends.UserInfo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, ScopeCredential))
			r.Post("/set-credential", creds.Set)
			r.Post("/set-cookie", creds.Set)
			r.Post("/import-credential", creds.Import)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, ScopeTriage))
			r.Post("/accept-request/{id}", friends.Accept)
			r.Post("/decline-request/{id}", friends.Decline)
			r.Post("/process-all-requests", friends.ProcessAll)
		})
	})
}

// Routes lists the registered endpoints sorted by path.
func Routes(r chi.Routes) []Route {
	var routes []Route
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, Route{Method: method, Path: route})
		return nil
	})
	slices.SortFunc(routes, func(a, b Route) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return routes
}
