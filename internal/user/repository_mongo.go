package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "users"
	emailIndexName = "email_1"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique email index the repository relies on for
// duplicate detection.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName(emailIndexName).SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context) ([]User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var u User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *MongoRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Version == 0 {
		user.Version = 1
	}
	if user.LikedProducts == nil {
		user.LikedProducts = []primitive.ObjectID{}
	}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return User{}, classifyMongoInsertError(err)
	}
	return user, nil
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, at time.Time) (User, error) {
	update := bson.M{
		"$set": bson.M{"passwordHash": hash, "updatedAt": at},
		"$inc": bson.M{"version": 1},
	}
	u, err := r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("update password: %w", err)
	}
	return u, nil
}

func (r *MongoRepository) SetLikedProducts(ctx context.Context, id primitive.ObjectID, liked []primitive.ObjectID, version int64, at time.Time) (User, error) {
	if liked == nil {
		liked = []primitive.ObjectID{}
	}
	update := bson.M{
		"$set": bson.M{"likedProducts": liked, "updatedAt": at},
		"$inc": bson.M{"version": 1},
	}
	u, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "version": version}, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrVersionConflict
	}
	if err != nil {
		return User{}, fmt.Errorf("set liked products: %w", err)
	}
	return u, nil
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u)
	return u, err
}

func (r *MongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("delete all users: %w", err)
	}
	return nil
}

// classifyMongoInsertError tells a duplicate email apart from a duplicate _id
// using the index named in the duplicate key message.
func classifyMongoInsertError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert user: %w", err)
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, "index: "+emailIndexName+" ") {
				return ErrEmailExists
			}
		}
	}
	return ErrUserExists
}
