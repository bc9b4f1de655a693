// Package services contains server-side business logic. This file implements
// UserService, which registers and authenticates users and serves the
// profile operations.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/userhub/internal/server/storage"
)

// RegisterInput carries the fields submitted at registration.
type RegisterInput struct {
	Username string
	DOB      time.Time
	Gender   models.Gender
	Email    string
	Address  string
	City     string
	Pincode  string
	Password string
	Bio      string
}

// UserService provides account operations:
//   - Register: create users and mint a session token
//   - Login: verify credentials and mint a session token
//   - VerifySession: authenticate a session token
//   - GetUser / ListUsers / UpdateUser / UpdateUserImage: profile access,
//     limited to the caller's own record unless the caller is an admin
type UserService struct {
	users  users.Repository
	issuer *auth.Issuer
	hasher auth.PasswordHasher
	images storage.ImageStore
	logger logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService wires a UserService. images may be nil, in which case image
// uploads fail with common.ErrorInternal.
func NewUserService(repo users.Repository, issuer *auth.Issuer, hasher auth.PasswordHasher,
	images storage.ImageStore, l logging.Logger) *UserService {
	return &UserService{
		users:  repo,
		issuer: issuer,
		hasher: hasher,
		images: images,
		logger: l.With("module", "user_service"),
	}
}

// NormalizeEmail trims and lowercases an address; it is applied before every
// lookup and before storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in *RegisterInput) validate() error {
	if strings.TrimSpace(in.Username) == "" || in.DOB.IsZero() || in.Email == "" ||
		strings.TrimSpace(in.Address) == "" || strings.TrimSpace(in.City) == "" ||
		strings.TrimSpace(in.Pincode) == "" || in.Password == "" {
		return fmt.Errorf("%w: all fields are mandatory", common.ErrInvalidRequest)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: malformed email", common.ErrInvalidRequest)
	}
	if !in.Gender.Valid() {
		return fmt.Errorf("%w: gender must be Male or Female", common.ErrInvalidRequest)
	}
	return nil
}

// Register creates a user and returns it together with a session token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, "", err
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, "", common.ErrDuplicateUser
	case !errors.Is(err, common.ErrorNotFound):
		return nil, "", fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, "", fmt.Errorf("%w: password too long", common.ErrInvalidRequest)
		}
		return nil, "", fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	user := &models.User{
		Username: strings.TrimSpace(in.Username),
		DOB:      in.DOB,
		Gender:   in.Gender,
		Email:    in.Email,
		Address:  in.Address,
		City:     in.City,
		Pincode:  in.Pincode,
		Password: hash,
		Bio:      in.Bio,
		Role:     models.RoleUser,
	}

	user, err = s.users.Create(ctx, user)
	if err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, "", common.ErrDuplicateUser
		}
		return nil, "", fmt.Errorf("%w: create user: %v", common.ErrorInternal, err)
	}

	token, err := s.issuer.IssueSession(user)
	if err != nil {
		return nil, "", fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "User registered", "user_id", user.ID)
	return user, token, nil
}

// dummyPasswordHash is compared against when the email is unknown so both
// failure paths cost one bcrypt comparison.
func (s *UserService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("userhub-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// Login verifies the password and returns a fresh session token. An unknown
// email and a wrong password both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", common.ErrInvalidRequest)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyPasswordHash())
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(password, user.Password) {
		return "", common.ErrInvalidCredentials
	}

	token, err := s.issuer.IssueSession(user)
	if err != nil {
		return "", fmt.Errorf("%w: issue token: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// VerifySession authenticates a session token.
func (s *UserService) VerifySession(token string) (*auth.SessionClaims, error) {
	return s.issuer.ParseSession(token)
}

// caller loads the record behind a session so role changes take effect
// before the token expires.
func (s *UserService) caller(ctx context.Context, claims *auth.SessionClaims) (*models.User, error) {
	if claims == nil {
		return nil, common.ErrorUnauthorized
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: lookup caller: %v", common.ErrorInternal, err)
	}
	return u, nil
}

func (s *UserService) authorize(ctx context.Context, claims *auth.SessionClaims, targetID string) error {
	c, err := s.caller(ctx, claims)
	if err != nil {
		return err
	}
	if c.ID != targetID && !c.IsAdmin() {
		return common.ErrorForbidden
	}
	return nil
}

func (s *UserService) get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: get user: %v", common.ErrorInternal, err)
	}
	return u, nil
}

// ListUsers returns every account. Admins only.
func (s *UserService) ListUsers(ctx context.Context, claims *auth.SessionClaims) ([]*models.User, error) {
	c, err := s.caller(ctx, claims)
	if err != nil {
		return nil, err
	}
	if !c.IsAdmin() {
		return nil, common.ErrorForbidden
	}

	list, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", common.ErrorInternal, err)
	}
	return list, nil
}

// GetUser returns the account with id.
func (s *UserService) GetUser(ctx context.Context, claims *auth.SessionClaims, id string) (*models.User, error) {
	if err := s.authorize(ctx, claims, id); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func validateUpdate(upd models.ProfileUpdate) error {
	if upd.Empty() {
		return fmt.Errorf("%w: nothing to update", common.ErrInvalidRequest)
	}
	for _, f := range []*string{upd.Username, upd.Address, upd.City, upd.Pincode} {
		if f != nil && strings.TrimSpace(*f) == "" {
			return fmt.Errorf("%w: fields cannot be blank", common.ErrInvalidRequest)
		}
	}
	if upd.DOB != nil && upd.DOB.IsZero() {
		return fmt.Errorf("%w: dob cannot be blank", common.ErrInvalidRequest)
	}
	if upd.Gender != nil && !upd.Gender.Valid() {
		return fmt.Errorf("%w: gender must be Male or Female", common.ErrInvalidRequest)
	}
	return nil
}

// UpdateUser applies a profile update. Email, password and role cannot be
// changed here.
func (s *UserService) UpdateUser(ctx context.Context, claims *auth.SessionClaims, id string, upd models.ProfileUpdate) (*models.User, error) {
	if err := s.authorize(ctx, claims, id); err != nil {
		return nil, err
	}
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}

	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(u)

	u, err = s.users.UpdateProfile(ctx, u)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: update user: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "User updated", "user_id", id)
	return u, nil
}

// UpdateUserImage stores an uploaded image and records its URL on the user.
func (s *UserService) UpdateUserImage(ctx context.Context, claims *auth.SessionClaims, id string,
	body io.Reader, size int64, contentType string) (*models.User, error) {
	if err := s.authorize(ctx, claims, id); err != nil {
		return nil, err
	}
	if body == nil || size <= 0 || !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: an image file is required", common.ErrInvalidRequest)
	}
	if s.images == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", common.ErrorInternal)
	}

	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, storage.ImageKey(id), body, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: upload image: %v", common.ErrorInternal, err)
	}

	if err := s.users.UpdateImage(ctx, id, url); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: save image url: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "User image updated", "user_id", id)
	return s.get(ctx, id)
}
