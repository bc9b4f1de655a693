// Package http exposes the userhub REST API under /api/users together with
// health and Prometheus endpoints.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/services"
	"github.com/gorilla/mux"
)

// UserService is the account surface used by the handlers.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifySession(token string) (*auth.SessionClaims, error)
	ListUsers(ctx context.Context, claims *auth.SessionClaims) ([]*models.User, error)
	GetUser(ctx context.Context, claims *auth.SessionClaims, id string) (*models.User, error)
	UpdateUser(ctx context.Context, claims *auth.SessionClaims, id string, upd models.ProfileUpdate) (*models.User, error)
	UpdateUserImage(ctx context.Context, claims *auth.SessionClaims, id string, body io.Reader, size int64, contentType string) (*models.User, error)
}

// ResetService is the password reset surface used by the handlers.
type ResetService interface {
	RequestReset(ctx context.Context, email string) error
	ConsumeReset(ctx context.Context, token, newPassword string) error
}

// ReadinessFunc reports whether the backing store is reachable.
type ReadinessFunc func(ctx context.Context) error

type HTTPServer struct {
	address string
	logger  logging.Logger
	users   UserService
	resets  ResetService
	apiKey  string
	ready   ReadinessFunc
	metrics *Metrics
	router  *mux.Router
}

// NewHTTPServer builds the router. An empty apiKey disables the API key gate.
func NewHTTPServer(a string, l logging.Logger, us UserService, rs ResetService, apiKey string, ready ReadinessFunc) *HTTPServer {
	s := &HTTPServer{
		address: a,
		logger:  l.With("module", "http_server"),
		users:   us,
		resets:  rs,
		apiKey:  apiKey,
		ready:   ready,
		metrics: NewMetrics("userhub"),
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
