package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"storyboard/internal/http/handlers"
	"storyboard/internal/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(app.Log))
	r.Use(middleware.CORS(app.Cfg.CORSAllowedOrigins))

	r.Get("/health", app.Health)

	r.Route("/api/sketch", func(r chi.Router) {
		r.Post("/refine", app.SketchRefine)
		r.Post("/edit", app.SketchEdit)
		r.Get("/status", app.SketchStatusList)
		r.Get("/status/{job_id}", app.SketchStatus)
	})

	// Artifacts are immutable files; serve them straight off the store.
	fileServer := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(app.Store.BasePath())))
	r.Get("/static/*", fileServer.ServeHTTP)

	return r
}
