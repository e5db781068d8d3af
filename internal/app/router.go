package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelier-works/atelier/internal/auth"
	"github.com/atelier-works/atelier/internal/authz"
	"github.com/atelier-works/atelier/internal/models"
	"github.com/atelier-works/atelier/internal/observability"
	"github.com/atelier-works/atelier/internal/permissions"
	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *permissions.Handler
	ModelsHandler      *models.Handler
	AuthzMiddleware    authz.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.AuthHandler.MountRoutes(r)
	params.PermissionsHandler.MountRoutes(r)
	params.ModelsHandler.MountRoutes(r)
	params.UsersHandler.MountRoutes(r, users.RouteGuards{
		View:   params.AuthzMiddleware.Require(permissions.CapViewUsers),
		Create: params.AuthzMiddleware.Require(permissions.CapCreateUsers),
		Edit:   params.AuthzMiddleware.Require(permissions.CapEditUsers),
		Delete: params.AuthzMiddleware.Require(permissions.CapDeleteUsers),
	})

	return r
}
