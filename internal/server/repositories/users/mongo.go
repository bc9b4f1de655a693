package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionUsers is the MongoDB collection holding account documents.
const CollectionUsers = "users"

// MongoRepository stores users as documents keyed by a generated UUID.
type MongoRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(CollectionUsers), now: time.Now}
}

// EnsureIndexes creates the unique email index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.col.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("create index on %s: %w", CollectionUsers, err)
	}
	return nil
}

func wrapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return common.ErrorNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return common.ErrorAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, wrapMongoError(err)
	}
	return &u, nil
}

func (r *MongoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now().UTC().Truncate(time.Millisecond)
	user.CreatedAt = now
	user.UpdatedAt = now
	user.TokenVersion = 0

	if _, err := r.col.InsertOne(ctx, user); err != nil {
		return nil, wrapMongoError(err)
	}
	return user, nil
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoRepository) List(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrapMongoError(err)
	}
	defer cursor.Close(ctx)

	result := []*models.User{}
	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &u)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *MongoRepository) updateFields(ctx context.Context, id string, fields bson.D) error {
	res, err := r.col.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		return wrapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	user.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	err := r.updateFields(ctx, user.ID, bson.D{
		{Key: "username", Value: user.Username},
		{Key: "dob", Value: user.DOB},
		{Key: "gender", Value: user.Gender},
		{Key: "address", Value: user.Address},
		{Key: "city", Value: user.City},
		{Key: "pincode", Value: user.Pincode},
		{Key: "bio", Value: user.Bio},
		{Key: "updated_at", Value: user.UpdatedAt},
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *MongoRepository) UpdateImage(ctx context.Context, id, imageURL string) error {
	return r.updateFields(ctx, id, bson.D{
		{Key: "user_img", Value: imageURL},
		{Key: "updated_at", Value: r.now().UTC().Truncate(time.Millisecond)},
	})
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, hash string, expectedVersion int64) error {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "token_version", Value: expectedVersion}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password", Value: hash},
			{Key: "updated_at", Value: r.now().UTC().Truncate(time.Millisecond)},
		}},
		{Key: "$inc", Value: bson.D{{Key: "token_version", Value: int64(1)}}},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return wrapMongoError(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapMongoError(err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return common.ErrVersionConflict
}
