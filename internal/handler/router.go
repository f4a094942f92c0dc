package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/config"
	analysisHandler "github.com/prudhvi1709/hypoforge/internal/handler/analysis"
	sessionHandler "github.com/prudhvi1709/hypoforge/internal/handler/session"
	middlewarePkg "github.com/prudhvi1709/hypoforge/internal/middleware"
	analysisService "github.com/prudhvi1709/hypoforge/internal/service/analysis"
	"github.com/prudhvi1709/hypoforge/internal/service/loader"
	sessionService "github.com/prudhvi1709/hypoforge/internal/service/session"
	"github.com/prudhvi1709/hypoforge/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg *config.Config, store *sessionService.Store, ldr *loader.Loader, analysisSvc *analysisService.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessions := sessionHandler.New(store, ldr, cfg.Sessions.MaxAge())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		api.Get("/config", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"title":   cfg.App.Title,
				"version": cfg.App.Version,
				"demos":   cfg.Demos,
			})
		})

		sessions.RegisterRoutes(api)
		analysisHandler.New(analysisSvc, logger).RegisterRoutes(api)
	})

	return r
}
