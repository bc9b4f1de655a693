// Package users holds the account record store and its PostgreSQL and
// MongoDB implementations.
package users

import (
	"context"

	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// Repository persists user accounts. Lookups that match nothing return
// common.ErrorNotFound; an insert colliding with an existing email returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
	UpdateImage(ctx context.Context, id, imageURL string) error

	// UpdatePassword stores hash and bumps the token version, but only while
	// the stored version still equals expectedVersion. Otherwise it returns
	// common.ErrVersionConflict.
	UpdatePassword(ctx context.Context, id, hash string, expectedVersion int64) error
}
