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

type ContactStore struct {
	coll *mongo.Collection
}

func (s *ContactStore) Create(ctx context.Context, m *models.ContactMessage) error {
	res, err := s.coll.InsertOne(ctx, m)
	if err != nil {
		return translate(err, "insert contact message")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = id
	}
	return nil
}

func (s *ContactStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	var m models.ContactMessage
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, translate(err, "find contact message")
	}
	return &m, nil
}

func (s *ContactStore) List(ctx context.Context, status string, page pagination.Page) ([]models.ContactMessage, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "count contact messages")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err, "list contact messages")
	}
	messages, err := decodeAll[models.ContactMessage](ctx, cursor, "list contact messages")
	return messages, total, err
}

// Update writes the admin triage fields.
func (s *ContactStore) Update(ctx context.Context, m *models.ContactMessage) error {
	res, err := s.coll.UpdateByID(ctx, m.ID, bson.M{"$set": bson.M{
		"status":     m.Status,
		"adminNotes": m.AdminNotes,
		"updatedAt":  m.UpdatedAt,
	}})
	if err != nil {
		return translate(err, "update contact message")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ContactStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete contact message")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
