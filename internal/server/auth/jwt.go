// Package auth issues and verifies the signed tokens used by userhub and
// hashes passwords at rest.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim. A token is only accepted by the
// parser for its own type.
const (
	TypeSession = "session"
	TypeReset   = "reset"
)

// SessionUser is the non-secret profile snapshot embedded in a session token.
type SessionUser struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	DOB      time.Time     `json:"dob"`
	Gender   models.Gender `json:"gender,omitempty"`
	Email    string        `json:"email"`
	Address  string        `json:"address"`
	City     string        `json:"city"`
	Pincode  string        `json:"pincode"`
	Bio      string        `json:"bio,omitempty"`
	Role     models.Role   `json:"role"`
}

// SessionClaims asserts a user's identity and profile snapshot.
type SessionClaims struct {
	jwt.RegisteredClaims
	Type string      `json:"typ"`
	User SessionUser `json:"user"`
}

// ResetClaims asserts only a user identifier, plus the user's token version
// at issuance so the token stops matching once it has been consumed.
type ResetClaims struct {
	jwt.RegisteredClaims
	Type    string `json:"typ"`
	Version int64  `json:"ver"`
}

// UserID returns the subject of the reset token.
func (c *ResetClaims) UserID() string { return c.Subject }

// Issuer signs and verifies session and reset tokens with one HS256 secret.
type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, sessionTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     secret,
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (i *Issuer) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}

// IssueSession signs a session token for u, valid for the session TTL.
func (i *Issuer) IssueSession(u *models.User) (string, error) {
	return i.sign(SessionClaims{
		RegisteredClaims: i.registered(u.ID, i.sessionTTL),
		Type:             TypeSession,
		User: SessionUser{
			ID:       u.ID,
			Username: u.Username,
			DOB:      u.DOB,
			Gender:   u.Gender,
			Email:    u.Email,
			Address:  u.Address,
			City:     u.City,
			Pincode:  u.Pincode,
			Bio:      u.Bio,
			Role:     u.Role,
		},
	})
}

// ParseSession verifies signature, expiry and type of a session token.
// Every failure is reported as common.ErrInvalidToken.
func (i *Issuer) ParseSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeSession || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// IssueReset signs a reset token for userID bound to the given token version,
// valid for the reset TTL.
func (i *Issuer) IssueReset(userID string, version int64) (string, error) {
	return i.sign(ResetClaims{
		RegisteredClaims: i.registered(userID, i.resetTTL),
		Type:             TypeReset,
		Version:          version,
	})
}

// ParseReset verifies signature, expiry and type of a reset token.
// Every failure is reported as common.ErrInvalidToken.
func (i *Issuer) ParseReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeReset || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
