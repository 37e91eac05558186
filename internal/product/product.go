package product

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is read-only in this service. It exists so favorites can be checked
// against a real catalogue entry.
type Product struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description" json:"description"`
	Image        string             `bson:"image" json:"image"`
	Brand        string             `bson:"brand" json:"brand"`
	Price        float64            `bson:"price" json:"price"`
	Category     string             `bson:"category" json:"category"`
	CountInStock int                `bson:"countInStock" json:"countInStock"`
	Rating       float64            `bson:"rating" json:"rating"`
	NumReviews   int                `bson:"numReviews" json:"numReviews"`
	IsFeatured   bool               `bson:"isFeatured" json:"isFeatured"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
