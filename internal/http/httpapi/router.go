// Package httpapi assembles the chi router for the API binary.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fluxserver/internal/http/handlers"
	"fluxserver/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.CORSOrigins),
	)

	r.Get("/healthz", app.Health)
	r.Post("/auth/token", app.AuthToken)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		r.Post("/images/generate", app.ImagesGenerate)
		r.Post("/videos/generate", app.VideosGenerate)
		r.Get("/tasks/{task_id}", app.TaskStatus)
		r.Get("/tasks/{task_id}/result", app.TaskResult)
	})

	return r
}
