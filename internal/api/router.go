package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/ansuz/internal/contentservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *contentservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/contents", h.ListContents)
	r.Post("/contents", h.CreateContents)
	r.Get("/contents/{digest}", h.GetContent)
	r.Put("/contents/{digest}", h.UpdateContent)
	r.Delete("/contents/{digest}", h.DeleteContent)

	r.Get("/stats", h.Stats)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewServerHandler wraps the API router with the request middleware and
// the unauthenticated health endpoints.
func NewServerHandler(svc *contentservice.Service, authEnabled bool, token string, sseHandler http.Handler) http.Handler {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Mount("/api", NewRouter(svc, authEnabled, token, sseHandler))
	return r
}
