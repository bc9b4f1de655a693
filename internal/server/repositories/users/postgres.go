package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, username, dob, gender, email, address, city, pincode, password,
		 user_img, bio, role, token_version, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var gender, role string
	err := row.Scan(&u.ID, &u.Username, &u.DOB, &gender, &u.Email, &u.Address, &u.City, &u.Pincode,
		&u.Password, &u.UserImg, &u.Bio, &role, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Gender = models.Gender(gender)
	u.Role = models.Role(role)
	return u, nil
}

// mapError translates driver errors into the repository sentinels.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return common.ErrorAlreadyExists
		case pgerrcode.InvalidTextRepresentation:
			// malformed uuid in a lookup
			return common.ErrorNotFound
		}
	}

	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (username, dob, gender, email, address, city, pincode, password, user_img, bio, role)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, token_version, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.DOB, string(user.Gender), user.Email, user.Address, user.City, user.Pincode,
		user.Password, user.UserImg, user.Bio, string(user.Role)).
		Scan(&user.ID, &user.TokenVersion, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE email = $1
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 WHERE id = $1
		 `

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`UPDATE users SET username = $2, dob = $3, gender = $4, address = $5, city = $6, pincode = $7, bio = $8,
		 updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.DOB, string(user.Gender), user.Address, user.City, user.Pincode, user.Bio).
		Scan(&user.UpdatedAt)

	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *PostgresRepository) UpdateImage(ctx context.Context, id, imageURL string) error {
	query :=
		`UPDATE users SET user_img = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, imageURL)
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, hash string, expectedVersion int64) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {

		var current int64
		err := tx.QueryRowContext(ctx,
			`SELECT token_version FROM users
			 WHERE id = $1
			 FOR UPDATE
			 `, id).Scan(&current)
		if err != nil {
			return mapError(err)
		}

		if current != expectedVersion {
			return common.ErrVersionConflict
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET password = $2, token_version = token_version + 1, updated_at = now()
			 WHERE id = $1
			 `, id, hash)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		return nil
	})
}
