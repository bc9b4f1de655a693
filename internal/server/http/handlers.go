package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/services"
	"github.com/gorilla/mux"
)

// maxImageBytes caps profile image uploads.
const maxImageBytes = 5 << 20

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// parseDOB accepts a calendar date or an RFC 3339 timestamp.
func parseDOB(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dob must be YYYY-MM-DD", common.ErrInvalidRequest)
	}
	return t.UTC(), nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrInvalidRequest)
	}
	return nil
}

type registerRequest struct {
	Username string     `json:"username"`
	DOB      string     `json:"dob"`
	Gender   string     `json:"gender"`
	Email    string     `json:"email"`
	Address  string     `json:"address"`
	City     string     `json:"city"`
	Pincode  flexString `json:"pincode"`
	Password string     `json:"password"`
	Bio      string     `json:"bio"`
}

type registerReply struct {
	Message     string       `json:"message"`
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	in := services.RegisterInput{
		Username: req.Username,
		Gender:   models.Gender(req.Gender),
		Email:    req.Email,
		Address:  req.Address,
		City:     req.City,
		Pincode:  string(req.Pincode),
		Password: req.Password,
		Bio:      req.Bio,
	}
	if req.DOB != "" {
		dob, err := parseDOB(req.DOB)
		if err != nil {
			s.respondWithError(w, r, err)
			return
		}
		in.DOB = dob
	}

	user, token, err := s.users.Register(r.Context(), in)
	s.metrics.authEvent("register", err)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, registerReply{
		Message:     "User registered successfully",
		User:        user,
		AccessToken: token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenReply struct {
	AccessToken string `json:"accessToken"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	token, err := s.users.Login(r.Context(), req.Email, req.Password)
	s.metrics.authEvent("login", err)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tokenReply{AccessToken: token})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (s *HTTPServer) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	err := s.resets.RequestReset(r.Context(), req.Email)
	s.metrics.authEvent("reset_request", err)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, messageReply{Message: "Password reset email sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	err := s.resets.ConsumeReset(r.Context(), mux.Vars(r)["token"], req.Password)
	s.metrics.authEvent("reset_consume", err)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, messageReply{Message: "Password has been reset"})
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.ListUsers(r.Context(), claimsFromContext(r.Context()))
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUser(r.Context(), claimsFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Username *string     `json:"username"`
	DOB      *string     `json:"dob"`
	Gender   *string     `json:"gender"`
	Address  *string     `json:"address"`
	City     *string     `json:"city"`
	Pincode  *flexString `json:"pincode"`
	Bio      *string     `json:"bio"`
}

func (req *updateUserRequest) toUpdate() (models.ProfileUpdate, error) {
	upd := models.ProfileUpdate{
		Username: req.Username,
		Address:  req.Address,
		City:     req.City,
		Bio:      req.Bio,
	}
	if req.DOB != nil {
		dob, err := parseDOB(*req.DOB)
		if err != nil {
			return upd, err
		}
		upd.DOB = &dob
	}
	if req.Gender != nil {
		g := models.Gender(*req.Gender)
		upd.Gender = &g
	}
	if req.Pincode != nil {
		p := string(*req.Pincode)
		upd.Pincode = &p
	}
	return upd, nil
}

func (s *HTTPServer) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondWithError(w, r, err)
		return
	}

	upd, err := req.toUpdate()
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}

	user, err := s.users.UpdateUser(r.Context(), claimsFromContext(r.Context()), mux.Vars(r)["id"], upd)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)

	file, _, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithJSON(w, http.StatusRequestEntityTooLarge, errorReply{Error: "image too large"})
			return
		}
		s.respondWithError(w, r, fmt.Errorf("%w: multipart field \"image\" is required", common.ErrInvalidRequest))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		s.respondWithError(w, r, fmt.Errorf("%w: read image", common.ErrInvalidRequest))
		return
	}
	if len(data) > maxImageBytes {
		respondWithJSON(w, http.StatusRequestEntityTooLarge,
			errorReply{Error: "image exceeds " + strconv.Itoa(maxImageBytes>>20) + " MiB"})
		return
	}

	contentType := http.DetectContentType(data)
	user, err := s.users.UpdateUserImage(r.Context(), claimsFromContext(r.Context()), mux.Vars(r)["id"],
		bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

type healthReply struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn(r.Context(), "Readiness check failed", "error", err)
			respondWithJSON(w, http.StatusServiceUnavailable, healthReply{Status: "unavailable"})
			return
		}
	}
	respondWithJSON(w, http.StatusOK, healthReply{Status: "ok"})
}
