package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peakhive/internal/catalog"
	"peakhive/internal/models"
)

var notDeleted = bson.M{"$ne": true}

type ProductStore struct {
	coll *mongo.Collection
}

func withStockFlag(products []models.Product) []models.Product {
	for i := range products {
		products[i].InStock = products[i].Stock > 0
	}
	return products
}

func (s *ProductStore) List(ctx context.Context, q catalog.Query) ([]models.Product, int64, error) {
	filter := q.Filter()
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "count products")
	}

	opts := options.Find().
		SetSort(q.SortSpec()).
		SetSkip(q.Page.Skip()).
		SetLimit(q.Page.Limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err, "list products")
	}
	products, err := decodeAll[models.Product](ctx, cursor, "list products")
	if err != nil {
		return nil, 0, err
	}
	return withStockFlag(products), total, nil
}

// Top returns the best rated products that have at least one review.
func (s *ProductStore) Top(ctx context.Context, limit int64) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "reviewCount", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.coll.Find(ctx, bson.M{"isDeleted": notDeleted, "reviewCount": bson.M{"$gt": 0}}, opts)
	if err != nil {
		return nil, translate(err, "top products")
	}
	products, err := decodeAll[models.Product](ctx, cursor, "top products")
	if err != nil {
		return nil, err
	}
	return withStockFlag(products), nil
}

func (s *ProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.coll.FindOne(ctx, bson.M{"_id": id, "isDeleted": notDeleted}).Decode(&p); err != nil {
		return nil, translate(err, "find product")
	}
	p.InStock = p.Stock > 0
	return &p, nil
}

func (s *ProductStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "isDeleted": notDeleted})
	if err != nil {
		return nil, translate(err, "find products")
	}
	products, err := decodeAll[models.Product](ctx, cursor, "find products")
	if err != nil {
		return nil, err
	}
	return withStockFlag(products), nil
}

func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return translate(err, "insert product")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	p.InStock = p.Stock > 0
	return nil
}

// Update writes the admin-editable fields. Rating and review count belong to
// the review aggregator and are left untouched.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": p.ID, "isDeleted": notDeleted}, bson.M{"$set": bson.M{
		"name":           p.Name,
		"price":          p.Price,
		"description":    p.Description,
		"category":       p.Category,
		"brand":          p.Brand,
		"images":         p.Images,
		"stock":          p.Stock,
		"specifications": p.Specifications,
		"features":       p.Features,
		"tags":           p.Tags,
		"variants":       p.Variants,
		"updatedAt":      p.UpdatedAt,
	}})
	if err != nil {
		return translate(err, "update product")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	p.InStock = p.Stock > 0
	return nil
}

func (s *ProductStore) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id, "isDeleted": notDeleted}, bson.M{"$set": bson.M{
		"isDeleted": true,
		"deletedAt": now,
		"updatedAt": now,
	}})
	if err != nil {
		return translate(err, "delete product")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProductStore) SetRating(ctx context.Context, id primitive.ObjectID, rating float64, count int) error {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"rating":      rating,
		"reviewCount": count,
	}})
	return translate(err, "set product rating")
}

func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"isDeleted": notDeleted})
	return n, translate(err, "count products")
}

func (s *ProductStore) LowStock(ctx context.Context, threshold int, limit int64) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "stock", Value: 1}}).SetLimit(limit)
	cursor, err := s.coll.Find(ctx, bson.M{"isDeleted": notDeleted, "stock": bson.M{"$lte": threshold}}, opts)
	if err != nil {
		return nil, translate(err, "low stock products")
	}
	products, err := decodeAll[models.Product](ctx, cursor, "low stock products")
	if err != nil {
		return nil, err
	}
	return withStockFlag(products), nil
}
