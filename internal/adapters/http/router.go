package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers provisioning HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/device/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/config", handler.fetchConfig)
	})

	return r
}
