package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peakhive/internal/models"
)

type CartStore struct {
	coll *mongo.Collection
}

func (s *CartStore) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var c models.Cart
	if err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&c); err != nil {
		return nil, translate(err, "find cart")
	}
	return &c, nil
}

// Save upserts the whole cart document for its user. Concurrent saves are
// last-writer-wins.
func (s *CartStore) Save(ctx context.Context, c *models.Cart) error {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"items":     c.Items,
			"subtotal":  c.Subtotal,
			"updatedAt": c.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": c.CreatedAt},
	}
	var saved models.Cart
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"userId": c.UserID}, update, opts).Decode(&saved); err != nil {
		return translate(err, "save cart")
	}
	c.ID = saved.ID
	c.CreatedAt = saved.CreatedAt
	return nil
}

func (s *CartStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": bson.M{
		"items":     []models.CartItem{},
		"subtotal":  0,
		"updatedAt": time.Now(),
	}})
	return translate(err, "clear cart")
}
