package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is unique per (userId, productId).
type Review struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	UserName    string             `bson:"userName" json:"userName"`
	ProductName string             `bson:"productName" json:"productName"`
	Rating      int                `bson:"rating" json:"rating"`
	Title       string             `bson:"title" json:"title"`
	Comment     string             `bson:"comment" json:"comment"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
