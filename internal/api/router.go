package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/phrazzld/tracker-api/internal/api/middleware"
)

// RouterDeps holds the handlers and middleware the router mounts.
type RouterDeps struct {
	AuthHandler    *AuthHandler
	TaskHandler    *TaskHandler
	AuthMiddleware *middleware.AuthMiddleware
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP routing tree.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.TraceMiddleware(deps.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.AuthHandler.Register)
		r.Post("/login", deps.AuthHandler.Login)
		r.Post("/logout", deps.AuthHandler.Logout)
		r.With(deps.AuthMiddleware.Authenticate).Get("/me", deps.AuthHandler.Me)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.Authenticate)
		r.Get("/", deps.TaskHandler.ListTasks)
		r.Post("/", deps.TaskHandler.CreateTask)
		r.Get("/{id}", deps.TaskHandler.GetTask)
		r.Put("/{id}", deps.TaskHandler.UpdateTask)
		r.Put("/{id}/status", deps.TaskHandler.UpdateTaskStatus)
		r.Delete("/{id}", deps.TaskHandler.DeleteTask)
	})

	return gzhttp.GzipHandler(r)
}
