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

type WishlistStore struct {
	coll *mongo.Collection
}

func (s *WishlistStore) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Wishlist, error) {
	var w models.Wishlist
	if err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&w); err != nil {
		return nil, translate(err, "find wishlist")
	}
	return &w, nil
}

// AddProduct creates the wishlist on first use and keeps product ids unique.
func (s *WishlistStore) AddProduct(ctx context.Context, userID, productID primitive.ObjectID) error {
	now := time.Now()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$addToSet":    bson.M{"products": productID},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	return translate(err, "add wishlist product")
}

func (s *WishlistStore) RemoveProduct(ctx context.Context, userID, productID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$pull": bson.M{"products": productID},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	return translate(err, "remove wishlist product")
}

func (s *WishlistStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"products": []primitive.ObjectID{}, "updatedAt": time.Now()}},
	)
	return translate(err, "clear wishlist")
}
