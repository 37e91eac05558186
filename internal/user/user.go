package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Gender string

const (
	GenderFemale Gender = "Female"
	GenderMale   Gender = "Male"
	GenderOther  Gender = "Other"
)

// GenderFromCode maps the numeric registration code to a gender. Anything
// other than 0 or 1, including an absent code, is Other.
func GenderFromCode(code *int) Gender {
	if code == nil {
		return GenderOther
	}
	switch *code {
	case 0:
		return GenderFemale
	case 1:
		return GenderMale
	default:
		return GenderOther
	}
}

type User struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Gender        Gender               `bson:"gender" json:"gender"`
	Email         string               `bson:"email" json:"email"`
	PasswordHash  string               `bson:"passwordHash" json:"-"`
	Street        string               `bson:"street" json:"street"`
	Apartment     string               `bson:"apartment" json:"apartment"`
	City          string               `bson:"city" json:"city"`
	Zip           string               `bson:"zip" json:"zip"`
	Country       string               `bson:"country" json:"country"`
	Phone         string               `bson:"phone" json:"phone"`
	IsAdmin       bool                 `bson:"isAdmin" json:"isAdmin"`
	LikedProducts []primitive.ObjectID `bson:"likedProducts" json:"likedProducts"`
	Version       int64                `bson:"version" json:"-"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (u User) Likes(productID primitive.ObjectID) bool {
	for _, id := range u.LikedProducts {
		if id == productID {
			return true
		}
	}
	return false
}

// ParseID converts a 24-char hex string into an ObjectID.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}
