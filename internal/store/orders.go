package store

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"peakhive/internal/apperror"
	"peakhive/internal/database"
	"peakhive/internal/models"
	"peakhive/internal/pagination"
)

const recentOrdersLimit = 5

type OrderStore struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// OrderFilter narrows the admin order listing. A non-nil UserIDs restricts
// results to those owners, and an empty one matches nothing.
type OrderFilter struct {
	Status  string
	Search  string
	UserIDs []primitive.ObjectID
}

func (f OrderFilter) bson() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		or := []bson.M{{"orderNumber": bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}}}
		if id, err := primitive.ObjectIDFromHex(term); err == nil {
			or = append(or, bson.M{"_id": id})
		}
		filter["$or"] = or
	}
	if f.UserIDs != nil {
		filter["userId"] = bson.M{"$in": f.UserIDs}
	}
	return filter
}

// Place prices and inserts an order in one transaction: products are read,
// build turns them into the order, stock is decremented with a guard and the
// order is inserted. Any failure rolls every write back.
func (s *OrderStore) Place(ctx context.Context, productIDs []primitive.ObjectID, build func(map[primitive.ObjectID]models.Product) (*models.Order, error)) (*models.Order, error) {
	products := s.db.Collection(database.ProductsCollection)
	var placed *models.Order

	err := withTransaction(ctx, s.db, func(sessCtx mongo.SessionContext) error {
		cursor, err := products.Find(sessCtx, bson.M{"_id": bson.M{"$in": productIDs}, "isDeleted": notDeleted})
		if err != nil {
			return translate(err, "load order products")
		}
		found, err := decodeAll[models.Product](sessCtx, cursor, "load order products")
		if err != nil {
			return err
		}
		catalog := make(map[primitive.ObjectID]models.Product, len(found))
		for _, p := range found {
			catalog[p.ID] = p
		}

		order, err := build(catalog)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			res, err := products.UpdateOne(sessCtx,
				bson.M{"_id": item.ProductID, "isDeleted": notDeleted, "stock": bson.M{"$gte": item.Quantity}},
				bson.M{"$inc": bson.M{"stock": -item.Quantity}},
			)
			if err != nil {
				return translate(err, "decrement stock")
			}
			if res.MatchedCount == 0 {
				return apperror.BadRequest("Insufficient stock for %s", item.Name).WithDetails(map[string]interface{}{
					"productId": item.ProductID.Hex(),
					"requested": item.Quantity,
				})
			}
		}

		res, err := s.coll.InsertOne(sessCtx, order)
		if err != nil {
			return translate(err, "insert order")
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, translate(err, "find order")
	}
	return &o, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, translate(err, "list user orders")
	}
	return decodeAll[models.Order](ctx, cursor, "list user orders")
}

func (s *OrderStore) List(ctx context.Context, f OrderFilter, page pagination.Page) ([]models.Order, int64, error) {
	filter := f.bson()
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "count orders")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(page.Limit)
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translate(err, "list orders")
	}
	orders, err := decodeAll[models.Order](ctx, cursor, "list orders")
	return orders, total, err
}

// Save writes the mutable lifecycle fields. Line items, address and prices
// are fixed at creation and never rewritten.
func (s *OrderStore) Save(ctx context.Context, o *models.Order) error {
	set := bson.M{
		"status":        o.Status,
		"isPaid":        o.IsPaid,
		"isDelivered":   o.IsDelivered,
		"isCanceled":    o.IsCanceled,
		"paymentResult": o.PaymentResult,
		"refundReason":  o.RefundReason,
		"refundNotes":   o.RefundNotes,
		"updatedAt":     o.UpdatedAt,
	}
	unset := bson.M{}
	for field, t := range map[string]*time.Time{
		"paidAt":      o.PaidAt,
		"deliveredAt": o.DeliveredAt,
		"canceledAt":  o.CanceledAt,
	} {
		if t == nil {
			unset[field] = ""
		} else {
			set[field] = *t
		}
	}
	if o.CanceledBy != nil {
		set["canceledBy"] = *o.CanceledBy
	} else {
		unset["canceledBy"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	res, err := s.coll.UpdateByID(ctx, o.ID, update)
	if err != nil {
		return translate(err, "save order")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *OrderStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "delete order")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates counts, revenue and recent orders in one pipeline. Revenue
// only counts paid orders that were neither canceled nor refunded.
func (s *OrderStore) Stats(ctx context.Context) (*models.OrderStats, error) {
	countsTowardRevenue := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{"$isPaid", true}},
		bson.M{"$ne": bson.A{"$isCanceled", true}},
		bson.M{"$not": bson.A{bson.M{"$in": bson.A{"$status", bson.A{models.StatusCanceled, models.StatusRefunded}}}}},
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"totals": bson.A{
				bson.M{"$group": bson.M{
					"_id":     nil,
					"count":   bson.M{"$sum": 1},
					"gross":   bson.M{"$sum": "$totalPrice"},
					"revenue": bson.M{"$sum": bson.M{"$cond": bson.A{countsTowardRevenue, "$totalPrice", 0}}},
				}},
			},
			"byStatus": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"recent": bson.A{
				bson.M{"$sort": bson.M{"createdAt": -1}},
				bson.M{"$limit": recentOrdersLimit},
			},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err, "order stats")
	}
	var rows []struct {
		Totals []struct {
			Count   int64   `bson:"count"`
			Gross   float64 `bson:"gross"`
			Revenue float64 `bson:"revenue"`
		} `bson:"totals"`
		ByStatus []struct {
			Status models.OrderStatus `bson:"_id"`
			Count  int64              `bson:"count"`
		} `bson:"byStatus"`
		Recent []models.Order `bson:"recent"`
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translate(err, "order stats decode")
	}

	stats := &models.OrderStats{
		OrdersByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses)),
		RecentOrders:   []models.Order{},
	}
	for _, status := range models.OrderStatuses {
		stats.OrdersByStatus[status] = 0
	}
	if len(rows) == 0 {
		return stats, nil
	}
	row := rows[0]
	if len(row.Totals) > 0 {
		stats.TotalOrders = row.Totals[0].Count
		stats.GrossOrderValue = row.Totals[0].Gross
		stats.TotalRevenue = row.Totals[0].Revenue
	}
	for _, bucket := range row.ByStatus {
		stats.OrdersByStatus[bucket.Status] = bucket.Count
	}
	if row.Recent != nil {
		stats.RecentOrders = row.Recent
	}
	return stats, nil
}
