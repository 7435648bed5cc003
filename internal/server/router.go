package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/loomworks/careerlens/internal/api"
	"github.com/loomworks/careerlens/internal/api/handlers"
	"github.com/loomworks/careerlens/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	AnalysisHandler *handlers.AnalysisHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Uploads top out well under this; the cap guards the text path too.
	const maxBodyBytes int64 = 20 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.AuthValidator))

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", cfg.AnalysisHandler.Create)
			r.Get("/", cfg.AnalysisHandler.List)
			r.Get("/{id}", cfg.AnalysisHandler.Get)
			r.Delete("/{id}", cfg.AnalysisHandler.Delete)
		})
	})

	return r
}
