// Package store persists the storefront documents in MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"peakhive/internal/database"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// Store groups the per-collection stores over one database.
type Store struct {
	db *mongo.Database

	Users     *UserStore
	Tokens    *TokenStore
	Products  *ProductStore
	Carts     *CartStore
	Orders    *OrderStore
	Reviews   *ReviewStore
	Payments  *PaymentStore
	Wishlists *WishlistStore
	Contacts  *ContactStore
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:        db,
		Users:     &UserStore{db: db, coll: db.Collection(database.UsersCollection)},
		Tokens:    &TokenStore{coll: db.Collection(database.RefreshTokensCollection)},
		Products:  &ProductStore{coll: db.Collection(database.ProductsCollection)},
		Carts:     &CartStore{coll: db.Collection(database.CartsCollection)},
		Orders:    &OrderStore{db: db, coll: db.Collection(database.OrdersCollection)},
		Reviews:   &ReviewStore{coll: db.Collection(database.ReviewsCollection)},
		Payments:  &PaymentStore{coll: db.Collection(database.PaymentsCollection)},
		Wishlists: &WishlistStore{coll: db.Collection(database.WishlistsCollection)},
		Contacts:  &ContactStore{coll: db.Collection(database.ContactsCollection)},
	}
}

// Ping reports whether the database primary answers.
func (s *Store) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

// withTransaction runs fn in a multi-document transaction; either every
// write inside fn commits or none does.
func withTransaction(ctx context.Context, db *mongo.Database, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// translate maps driver errors onto the package sentinels.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor, op string) ([]T, error) {
	defer cursor.Close(ctx)
	out := make([]T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%s decode: %w", op, err)
	}
	return out, nil
}
