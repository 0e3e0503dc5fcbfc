package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studioops/internal/http/handlers"
	"studioops/internal/infra"
	"studioops/internal/middleware"
)

func NewRouter(cfg *infra.Config, logger infra.Logger, app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	r.Use(middleware.Viewer)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/galleries/{gallery_id}", func(r chi.Router) {
		r.Get("/media/*", app.MediaProxy)
		r.Post("/ai-videos", app.StartVideoGeneration)
		r.Get("/ai-videos/{prediction_id}", app.PollVideoGeneration)
	})

	return r
}
