package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/config"
	"github.com/dmitrijs2005/userhub/internal/server/mail"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
)

// PasswordResetService runs the emailed reset-token flow. A reset token
// carries the user's token version at issuance and consuming it bumps the
// version, so each token changes the password at most once.
type PasswordResetService struct {
	users    users.Repository
	issuer   *auth.Issuer
	hasher   auth.PasswordHasher
	mailer   mail.Mailer
	limiter  mail.Limiter
	frontend string
	validity time.Duration
	now      func() time.Time
	logger   logging.Logger
}

// NewPasswordResetService wires the reset flow. limiter may be nil.
func NewPasswordResetService(repo users.Repository, issuer *auth.Issuer, hasher auth.PasswordHasher,
	mailer mail.Mailer, limiter mail.Limiter, cfg *config.Config, l logging.Logger) *PasswordResetService {
	return &PasswordResetService{
		users:    repo,
		issuer:   issuer,
		hasher:   hasher,
		mailer:   mailer,
		limiter:  limiter,
		frontend: cfg.FrontendBaseURL,
		validity: cfg.ResetTokenValidityDuration,
		now:      time.Now,
		logger:   l.With("module", "reset_service"),
	}
}

// RequestReset emails a reset link to the account registered under email and
// waits for the send to finish.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrInvalidRequest)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, user.Email)
		if err != nil {
			s.logger.Warn(ctx, "Reset mail limiter unavailable", "error", err)
		} else if !ok {
			return common.ErrTooManyRequests
		}
	}

	token, err := s.issuer.IssueReset(user.ID, user.TokenVersion)
	if err != nil {
		return fmt.Errorf("%w: issue reset token: %v", common.ErrorInternal, err)
	}

	link, err := mail.ResetLink(s.frontend, token)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	msg, err := mail.ResetPasswordMessage(user.Email, user.Username, link, s.validity)
	if err != nil {
		return fmt.Errorf("%w: render reset email: %v", common.ErrorInternal, err)
	}

	if err := mail.Await(ctx, mail.Dispatch(ctx, s.mailer, msg)); err != nil {
		s.logger.Error(ctx, "Reset email failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %v", common.ErrEmailDeliveryFailed, err)
	}

	s.logger.Info(ctx, "Reset email sent", "user_id", user.ID)
	return nil
}

// ConsumeReset verifies a reset token and replaces the user's password.
func (s *PasswordResetService) ConsumeReset(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", common.ErrInvalidRequest)
	}

	claims, err := s.issuer.ParseReset(token)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: lookup user: %v", common.ErrorInternal, err)
	}

	if user.TokenVersion != claims.Version {
		return fmt.Errorf("%w: token already used", common.ErrInvalidToken)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return fmt.Errorf("%w: password too long", common.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash, claims.Version); err != nil {
		switch {
		case errors.Is(err, common.ErrVersionConflict):
			return fmt.Errorf("%w: token already used", common.ErrInvalidToken)
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrorNotFound
		default:
			return fmt.Errorf("%w: update password: %v", common.ErrorInternal, err)
		}
	}

	s.logger.Info(ctx, "Password reset", "user_id", user.ID)
	s.notifyPasswordChanged(ctx, user.Email, user.Username)
	return nil
}

// notifyPasswordChanged is best effort; failures are only logged.
func (s *PasswordResetService) notifyPasswordChanged(ctx context.Context, email, username string) {
	msg, err := mail.PasswordChangedMessage(email, username, s.now())
	if err != nil {
		s.logger.Warn(ctx, "Render password changed email", "error", err)
		return
	}
	if err := mail.Await(ctx, mail.Dispatch(ctx, s.mailer, msg)); err != nil {
		s.logger.Warn(ctx, "Password changed email failed", "error", err)
	}
}
