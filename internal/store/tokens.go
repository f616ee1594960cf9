package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"peakhive/internal/models"
)

type TokenStore struct {
	coll *mongo.Collection
}

func (s *TokenStore) Create(ctx context.Context, t *models.RefreshToken) error {
	res, err := s.coll.InsertOne(ctx, t)
	if err != nil {
		return translate(err, "insert refresh token")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		t.ID = id
	}
	return nil
}

// FindActive looks up a non-revoked, unexpired token by hash.
func (s *TokenStore) FindActive(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.coll.FindOne(ctx, bson.M{
		"tokenHash": hash,
		"revoked":   false,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Decode(&t)
	if err != nil {
		return nil, translate(err, "find refresh token")
	}
	return &t, nil
}

func (s *TokenStore) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	set := bson.M{"revoked": true, "revokedAt": time.Now()}
	if replacedBy != nil {
		set["replacedByToken"] = *replacedBy
	}
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return translate(err, "revoke refresh token")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
