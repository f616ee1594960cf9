package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection         = "users"
	ProductsCollection      = "products"
	CartsCollection         = "carts"
	OrdersCollection        = "orders"
	ReviewsCollection       = "reviews"
	PaymentsCollection      = "payments"
	WishlistsCollection     = "wishlists"
	ContactsCollection      = "contacts"
	RefreshTokensCollection = "refresh_tokens"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{UsersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_unique").SetUnique(true)},
		}},
		{ProductsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}, Options: options.Index().SetName("category_price")},
			{Keys: bson.D{{Key: "rating", Value: -1}}, Options: options.Index().SetName("rating_desc")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_desc")},
		}},
		{CartsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_unique").SetUnique(true)},
		}},
		{OrdersCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("userId_createdAt")},
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: options.Index().SetName("orderNumber_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status_index")},
		}},
		{ReviewsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "productId", Value: 1}}, Options: options.Index().SetName("user_product_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("productId_createdAt")},
		}},
		{PaymentsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetName("orderId_index")},
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_index")},
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetName("transactionId_unique").SetUnique(true)},
		}},
		{WishlistsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetName("userId_unique").SetUnique(true)},
		}},
		{ContactsCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("status_createdAt")},
		}},
		{RefreshTokensCollection, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetName("tokenHash_unique").SetUnique(true)},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0)},
		}},
	}
}

// EnsureIndexes creates every index the stores rely on, including the
// uniqueness constraints for users, carts, wishlists and reviews.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger logrus.FieldLogger) error {
	for _, plan := range indexPlan() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure %s indexes: %w", plan.collection, err)
		}
		logger.WithField("collection", plan.collection).Debugf("indexes ready: %v", names)
	}
	return nil
}
