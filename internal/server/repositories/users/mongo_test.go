package users

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ Repository = (*MongoRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)

// testMongoRepo connects to MONGO_TEST_URI (or localhost) and uses a
// throwaway database. The test is skipped when MongoDB is unreachable.
func testMongoRepo(t *testing.T) *MongoRepository {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetServerSelectionTimeout(2 * time.Second))
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("MongoDB not available: %v", err)
	}

	db := client.Database("userhub_test")
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}

	repo := NewMongoRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return repo
}

func TestMongo_UserLifecycle(t *testing.T) {
	repo := testMongoRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, newAlice())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}

	if _, err := repo.Create(ctx, newAlice()); !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("duplicate email: want ErrorAlreadyExists, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != u.ID || got.Password != "$2a$10$hash" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	got.City = "Tallinn"
	if _, err := repo.UpdateProfile(ctx, got); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if err := repo.UpdateImage(ctx, u.ID, "http://img"); err != nil {
		t.Fatalf("UpdateImage: %v", err)
	}

	got, err = repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.City != "Tallinn" || got.UserImg != "http://img" {
		t.Fatalf("updates not persisted: %+v", got)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %d", err, len(list))
	}
}

func TestMongo_UpdatePasswordIsConditional(t *testing.T) {
	repo := testMongoRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, newAlice())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.UpdatePassword(ctx, u.ID, "h1", 0); err != nil {
		t.Fatalf("first UpdatePassword: %v", err)
	}
	if err := repo.UpdatePassword(ctx, u.ID, "h2", 0); !errors.Is(err, common.ErrVersionConflict) {
		t.Fatalf("stale version: want ErrVersionConflict, got %v", err)
	}
	if err := repo.UpdatePassword(ctx, "ghost", "h2", 0); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("missing user: want ErrorNotFound, got %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Password != "h1" || got.TokenVersion != 1 {
		t.Fatalf("unexpected state: password=%q version=%d", got.Password, got.TokenVersion)
	}
}
