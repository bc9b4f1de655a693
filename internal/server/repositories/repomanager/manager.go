package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
)

// RepositoryManager owns the store connection and vends repositories bound to it.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
	Users() users.Repository
}

// Open picks the store by DSN scheme: mongodb:// and mongodb+srv:// select
// MongoDB (dbName names the database), anything else is handed to pgx.
func Open(ctx context.Context, dsn, dbName string) (RepositoryManager, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	if strings.HasPrefix(dsn, "mongodb://") || strings.HasPrefix(dsn, "mongodb+srv://") {
		m, err := NewMongoRepositoryManager(ctx, dsn, dbName)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	m, err := NewPostgresRepositoryManager(dsn)
	if err != nil {
		return nil, err
	}
	return m, nil
}
