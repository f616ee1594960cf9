package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peakhive/internal/models"
	"peakhive/internal/pagination"
)

type PaymentStore struct {
	coll *mongo.Collection
}

func (s *PaymentStore) Create(ctx context.Context, p *models.Payment) error {
	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return translate(err, "insert payment")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

func (s *PaymentStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var p models.Payment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err, "find payment")
	}
	return &p, nil
}

func (s *PaymentStore) List(ctx context.Context, status models.PaymentStatus, page pagination.Page) ([]models.Payment, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "count payments")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err, "list payments")
	}
	payments, err := decodeAll[models.Payment](ctx, cursor, "list payments")
	return payments, total, err
}

func (s *PaymentStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Payment, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, translate(err, "list user payments")
	}
	return decodeAll[models.Payment](ctx, cursor, "list user payments")
}

func (s *PaymentStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus, now time.Time) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"status": status, "updatedAt": now}})
	if err != nil {
		return translate(err, "update payment status")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
