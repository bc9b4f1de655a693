package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "sessionClaims"

// maxBodyBytes caps JSON request bodies. Image uploads set their own limit.
const maxBodyBytes = 1 << 20

// apiKeyMiddleware requires "Authorization: Bearer <api key>" when an API
// key is configured.
func (s *HTTPServer) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			want := common.APIKeyScheme + " " + s.apiKey
			got := r.Header.Get("Authorization")
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				respondWithJSON(w, http.StatusUnauthorized, errorReply{Error: "Unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession authenticates the session token in X-Access-Token and
// stores its claims in the request context.
func (s *HTTPServer) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(common.AccessTokenHeaderName))
		if token == "" {
			respondWithJSON(w, http.StatusUnauthorized, errorReply{Error: "missing access token"})
			return
		}

		claims, err := s.users.VerifySession(token)
		if err != nil {
			respondWithJSON(w, http.StatusUnauthorized, errorReply{Error: common.ErrInvalidToken.Error()})
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.SessionClaims {
	c, _ := ctx.Value(claimsKey).(*auth.SessionClaims)
	return c
}

func limitBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info(r.Context(), "Request",
			"method", r.Method,
			"path", routeTemplate(r),
			"status", rec.status,
			"duration", time.Since(start))
	})
}
