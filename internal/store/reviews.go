package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peakhive/internal/models"
	"peakhive/internal/pagination"
)

type ReviewStore struct {
	coll *mongo.Collection
}

// Create inserts a review. A second review of the same product by the same
// user fails with ErrDuplicate from the unique (userId, productId) index.
func (s *ReviewStore) Create(ctx context.Context, r *models.Review) error {
	res, err := s.coll.InsertOne(ctx, r)
	if err != nil {
		return translate(err, "insert review")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = id
	}
	return nil
}

func (s *ReviewStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var r models.Review
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, translate(err, "find review")
	}
	return &r, nil
}

func (s *ReviewStore) Exists(ctx context.Context, userID, productID primitive.ObjectID) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID, "productId": productID}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err, "check review")
	}
	return n > 0, nil
}

func (s *ReviewStore) ListByProduct(ctx context.Context, productID primitive.ObjectID, page pagination.Page) ([]models.Review, int64, error) {
	filter := bson.M{"productId": productID}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "count reviews")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err, "list reviews")
	}
	reviews, err := decodeAll[models.Review](ctx, cursor, "list reviews")
	return reviews, total, err
}

func (s *ReviewStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Review, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, translate(err, "list user reviews")
	}
	return decodeAll[models.Review](ctx, cursor, "list user reviews")
}

func (s *ReviewStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete review")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ratings returns every rating currently stored for the product.
func (s *ReviewStore) Ratings(ctx context.Context, productID primitive.ObjectID) ([]int, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"productId": productID}, options.Find().SetProjection(bson.M{"rating": 1}))
	if err != nil {
		return nil, translate(err, "load ratings")
	}
	rows, err := decodeAll[struct {
		Rating int `bson:"rating"`
	}](ctx, cursor, "load ratings")
	if err != nil {
		return nil, err
	}
	ratings := make([]int, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, row.Rating)
	}
	return ratings, nil
}
