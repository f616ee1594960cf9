package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Wishlist struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID   `bson:"userId" json:"userId"`
	Products  []primitive.ObjectID `bson:"products" json:"products"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Contains reports whether productID is already on the list.
func (w *Wishlist) Contains(productID primitive.ObjectID) bool {
	if w == nil {
		return false
	}
	for _, id := range w.Products {
		if id == productID {
			return true
		}
	}
	return false
}
