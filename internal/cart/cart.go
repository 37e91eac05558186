package cart

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart shares its id with the owning user. Deleting the user leaves the cart
// in place.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Products  []Item             `bson:"products" json:"products"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type Item struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}
