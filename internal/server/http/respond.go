package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/userhub/internal/common"
)

type errorReply struct {
	Error string `json:"error"`
}

type messageReply struct {
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// statusFor maps a service error to its HTTP status and client-facing text.
// Internal details never reach the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, common.ErrorUnauthorized.Error()
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, common.ErrorForbidden.Error()
	case errors.Is(err, common.ErrDuplicateUser):
		return http.StatusConflict, common.ErrDuplicateUser.Error()
	case errors.Is(err, common.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusBadRequest, common.ErrInvalidToken.Error()
	case errors.Is(err, common.ErrEmailDeliveryFailed):
		return http.StatusBadGateway, common.ErrEmailDeliveryFailed.Error()
	case errors.Is(err, common.ErrTooManyRequests):
		return http.StatusTooManyRequests, common.ErrTooManyRequests.Error()
	default:
		return http.StatusInternalServerError, common.ErrorInternal.Error()
	}
}

func (s *HTTPServer) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	respondWithJSON(w, code, errorReply{Error: msg})
}
