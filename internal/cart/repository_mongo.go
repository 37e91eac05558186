package cart

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection("carts")}
}

func (r *MongoRepository) Get(ctx context.Context, id primitive.ObjectID) (Cart, error) {
	var c Cart
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("get cart: %w", err)
	}
	if c.Products == nil {
		c.Products = []Item{}
	}
	return c, nil
}

func (r *MongoRepository) Save(ctx context.Context, cart Cart) error {
	if cart.Products == nil {
		cart.Products = []Item{}
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
