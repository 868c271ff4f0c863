package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/tenantauth/internal/database"
	"github.com/BradenHooton/tenantauth/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var withoutHash = bson.M{"password_hash": 0}

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

// live restricts a filter to users that have not been soft-deleted.
// A nil match covers both a null and a missing deleted_at.
func live(filter bson.M) bson.M {
	filter["deleted_at"] = nil
	return filter
}

func (r *MongoUserRepository) Insert(ctx context.Context, user *models.User) error {
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return database.MapMongoError(err)
	}
	return nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string, withHash bool) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)}, withHash)
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string, withHash bool) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, withHash)
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, withHash bool) (*models.User, error) {
	opts := options.FindOne()
	if !withHash {
		opts.SetProjection(withoutHash)
	}

	var user models.User
	if err := r.coll.FindOne(ctx, live(filter), opts).Decode(&user); err != nil {
		return nil, database.MapMongoError(err)
	}
	return &user, nil
}

func (r *MongoUserRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, live(bson.M{}))
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().
		SetProjection(withoutHash).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, live(bson.M{}), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := make([]*models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	update := bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}}

	res, err := r.coll.UpdateOne(ctx, live(bson.M{"_id": id}), update)
	if err != nil {
		return database.MapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) UpdateMigration(ctx context.Context, user *models.User) (*models.User, error) {
	update := bson.M{"$set": bson.M{
		"migration_status": user.MigrationStatus,
		"provider_name":    user.ProviderName,
		"provider_user_id": user.ProviderUserID,
		"migration_date":   user.MigrationDate,
		"updated_at":       time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutHash)

	var updated models.User
	if err := r.coll.FindOneAndUpdate(ctx, live(bson.M{"_id": user.ID}), update, opts).Decode(&updated); err != nil {
		return nil, database.MapMongoError(err)
	}
	return &updated, nil
}
