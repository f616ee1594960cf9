package store

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peakhive/internal/database"
	"peakhive/internal/models"
	"peakhive/internal/pagination"
)

type UserStore struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		return translate(err, "insert user")
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, translate(err, "find user")
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u); err != nil {
		return nil, translate(err, "find user by email")
	}
	return &u, nil
}

func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return translate(err, "update user")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func searchFilter(term string) bson.M {
	term = strings.TrimSpace(term)
	if term == "" {
		return bson.M{}
	}
	pattern := regexp.QuoteMeta(term)
	return bson.M{"$or": []bson.M{
		{"name": bson.M{"$regex": pattern, "$options": "i"}},
		{"email": bson.M{"$regex": pattern, "$options": "i"}},
	}}
}

func (s *UserStore) List(ctx context.Context, search string, page pagination.Page) ([]models.User, int64, error) {
	filter := searchFilter(search)
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "count users")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err, "list users")
	}
	users, err := decodeAll[models.User](ctx, cursor, "list users")
	return users, total, err
}

// SearchIDs returns ids of users whose name or email match term.
func (s *UserStore) SearchIDs(ctx context.Context, term string) ([]primitive.ObjectID, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	cursor, err := s.coll.Find(ctx, searchFilter(term), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, translate(err, "search users")
	}
	users, err := decodeAll[models.User](ctx, cursor, "search users")
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{})
	return n, translate(err, "count users")
}

// Delete removes the user together with their cart, wishlist, reviews,
// refresh tokens, orders and the payments of those orders, all in one
// transaction. It returns the products whose reviews were removed.
func (s *UserStore) Delete(ctx context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	var reviewed []primitive.ObjectID

	err := withTransaction(ctx, s.db, func(sessCtx mongo.SessionContext) error {
		reviewed = reviewed[:0]

		res, err := s.coll.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return translate(err, "delete user")
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}

		productIDs, err := s.db.Collection(database.ReviewsCollection).Distinct(sessCtx, "productId", bson.M{"userId": id})
		if err != nil {
			return translate(err, "collect reviewed products")
		}
		for _, raw := range productIDs {
			if pid, ok := raw.(primitive.ObjectID); ok {
				reviewed = append(reviewed, pid)
			}
		}

		orderIDs, err := s.db.Collection(database.OrdersCollection).Distinct(sessCtx, "_id", bson.M{"userId": id})
		if err != nil {
			return translate(err, "collect orders")
		}

		deletes := []struct {
			collection string
			filter     bson.M
		}{
			{database.CartsCollection, bson.M{"userId": id}},
			{database.WishlistsCollection, bson.M{"userId": id}},
			{database.ReviewsCollection, bson.M{"userId": id}},
			{database.RefreshTokensCollection, bson.M{"userId": id}},
			{database.PaymentsCollection, bson.M{"$or": []bson.M{{"userId": id}, {"orderId": bson.M{"$in": orderIDs}}}}},
			{database.OrdersCollection, bson.M{"userId": id}},
		}
		for _, d := range deletes {
			if _, err := s.db.Collection(d.collection).DeleteMany(sessCtx, d.filter); err != nil {
				return translate(err, "cascade delete "+d.collection)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}
