package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const apiRoute = "/api/users"

// setupRoutes registers the API, health and metrics routes.
func (s *HTTPServer) setupRoutes() {
	s.router.Use(s.metrics.middleware)
	s.router.NotFoundHandler = http.HandlerFunc(handleNotFound)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix(apiRoute).Subrouter()
	api.Use(s.logRequest, s.apiKeyMiddleware, limitBodyMiddleware)

	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	api.HandleFunc("/reset-password/{token}", s.handleResetPassword).Methods(http.MethodPost)

	api.Handle("", s.requireSession(s.handleListUsers)).Methods(http.MethodGet)
	api.Handle("/", s.requireSession(s.handleListUsers)).Methods(http.MethodGet)
	api.Handle("/upload/{id}", s.requireSession(s.handleUploadImage)).Methods(http.MethodPut)
	api.Handle("/{id}", s.requireSession(s.handleGetUser)).Methods(http.MethodGet)
	api.Handle("/{id}", s.requireSession(s.handleUpdateUser)).Methods(http.MethodPut)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusNotFound, errorReply{Error: "route not found"})
}
