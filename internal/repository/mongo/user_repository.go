package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"product-ledger/internal/domain"
	"product-ledger/internal/repository"
)

// UserRepository persists User aggregates in a single mongo collection,
// one document per user with the product ledger embedded.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(client *mongo.Client, database, collection string) repository.UserRepository {
	return &UserRepository{
		collection: client.Database(database).Collection(collection),
	}
}

func (r *UserRepository) Init(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Save writes the whole aggregate back as one document. The filter pins the
// version read earlier, so a concurrent writer makes this a no-op instead of
// a silent lost update.
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": user.ID, "version": user.Version},
		bson.M{
			"$set": bson.M{
				"name":      user.Name,
				"email":     user.Email,
				"password":  user.PasswordHash,
				"products":  user.Products,
				"updatedAt": user.UpdatedAt,
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrVersionConflict
	}
	user.Version++
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
