package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/orders"
	"peakhive/internal/pagination"
	"peakhive/internal/store"
)

const (
	defaultOrderLimit = 10
	maxOrderLimit     = 100
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	OrderItems      []orderItemRequest     `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
}

type statusUpdateRequest struct {
	Status      *models.OrderStatus `json:"status"`
	IsPaid      *bool               `json:"isPaid"`
	IsDelivered *bool               `json:"isDelivered"`
}

type payOrderRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type refundRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (r createOrderRequest) draft() (orders.Draft, error) {
	d := orders.Draft{
		Items:           make([]orders.DraftItem, 0, len(r.OrderItems)),
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   strings.TrimSpace(r.PaymentMethod),
	}
	for _, item := range r.OrderItems {
		raw := strings.TrimSpace(item.ProductID)
		if raw == "" {
			raw = strings.TrimSpace(item.Product)
		}
		var id primitive.ObjectID
		if raw != "" {
			parsed, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				return orders.Draft{}, apperror.BadRequest("Invalid product id %q", raw)
			}
			id = parsed
		}
		d.Items = append(d.Items, orders.DraftItem{ProductID: id, Quantity: item.Quantity})
	}
	return d, nil
}

// loadOrder resolves :id and applies the owner-or-admin rule. A missing
// order is reported before an authorization failure.
func (d *Deps) loadOrder(c *gin.Context, route string) (*models.Order, bool) {
	id, err := pathID(c, "id", "order")
	if err != nil {
		d.respondError(c, route, err)
		return nil, false
	}

	ctx, cancel := d.ctx(c)
	defer cancel()

	order, err := d.Orders.FindByID(ctx, id)
	if err != nil {
		d.respondError(c, route, notFoundAs(err, "Order"))
		return nil, false
	}
	if err := orders.Authorize(order, orders.ActorOf(middleware.CurrentUser(c))); err != nil {
		d.respondError(c, route, err)
		return nil, false
	}
	return order, true
}

func (d *Deps) saveOrder(c *gin.Context, route, event string, order *models.Order) {
	ctx, cancel := d.ctx(c)
	defer cancel()

	if err := d.Orders.Save(ctx, order); err != nil {
		d.respondError(c, route, notFoundAs(err, "Order"))
		return
	}
	d.Log.WithFields(logrus.Fields{
		"route":   route,
		"orderId": order.ID.Hex(),
		"status":  order.Status,
		"by":      middleware.CurrentUser(c).ID.Hex(),
	}).Info(event)
	c.JSON(http.StatusOK, order)
}

// CreateOrder prices the order from the catalog and reserves stock in one
// transaction, then empties the caller's cart.
func CreateOrder(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/orders"
		defer d.handlePanic(c, route)

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		draft, err := req.draft()
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if err := draft.Validate(); err != nil {
			d.respondError(c, route, err)
			return
		}

		user := middleware.CurrentUser(c)
		now := d.now()

		ctx, cancel := d.ctx(c)
		defer cancel()

		build := func(catalog map[primitive.ObjectID]models.Product) (*models.Order, error) {
			return orders.Build(user.ID, draft, catalog, d.Pricing, now)
		}
		order, err := d.Orders.Place(ctx, draft.ProductIDs(), build)
		if errors.Is(err, store.ErrDuplicate) {
			// order number collision; Build draws a fresh one
			d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex()}).Warn("order number taken, retrying")
			order, err = d.Orders.Place(ctx, draft.ProductIDs(), build)
		}
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		if err := d.Carts.Clear(ctx, user.ID); err != nil {
			d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex()}).WithError(err).Warn("cart not cleared after order")
		}

		d.Log.WithFields(logrus.Fields{
			"route":       route,
			"orderId":     order.ID.Hex(),
			"orderNumber": order.OrderNumber,
			"userId":      user.ID.Hex(),
			"total":       order.TotalPrice,
		}).Info("order created")
		c.JSON(http.StatusCreated, order)
	}
}

// ListOrders is the admin listing. A search that matches no order number
// falls back to orders of users whose name or email match.
func ListOrders(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders"
		defer d.handlePanic(c, route)

		page, err := pagination.Parse(c.Query("page"), c.Query("limit"), defaultOrderLimit, maxOrderLimit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		filter := store.OrderFilter{Search: strings.TrimSpace(c.Query("search"))}
		if status := strings.TrimSpace(c.Query("status")); status != "" && status != "all" {
			if !models.OrderStatus(status).Valid() {
				d.respondWithError(c, http.StatusBadRequest, route, "Invalid status filter")
				return
			}
			filter.Status = status
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, total, err := d.Orders.List(ctx, filter, page)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		if total == 0 && filter.Search != "" {
			userIDs, err := d.Users.SearchIDs(ctx, filter.Search)
			if err != nil {
				d.respondError(c, route, err)
				return
			}
			if len(userIDs) > 0 {
				byUser := store.OrderFilter{Status: filter.Status, UserIDs: userIDs}
				if list, total, err = d.Orders.List(ctx, byUser, page); err != nil {
					d.respondError(c, route, err)
					return
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": list,
			"page":   page.Number,
			"pages":  page.Pages(total),
			"total":  total,
		})
	}
}

func MyOrders(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/myorders"
		defer d.handlePanic(c, route)

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, err := d.Orders.ListByUser(ctx, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func OrderStats(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/stats"
		defer d.handlePanic(c, route)

		ctx, cancel := d.ctx(c)
		defer cancel()

		stats, err := d.Orders.Stats(ctx)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func GetOrder(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/orders/:id"
		defer d.handlePanic(c, route)

		order, ok := d.loadOrder(c, route)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func UpdateOrderStatus(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id"
		defer d.handlePanic(c, route)

		var req statusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		order, ok := d.loadOrder(c, route)
		if !ok {
			return
		}

		update := orders.StatusUpdate{Status: req.Status, IsPaid: req.IsPaid, IsDelivered: req.IsDelivered}
		if err := orders.ApplyStatusUpdate(order, orders.ActorOf(middleware.CurrentUser(c)), update, d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveOrder(c, route, "order status updated", order)
	}
}

func PayOrder(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/pay"
		defer d.handlePanic(c, route)

		var req payOrderRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				d.respondValidationError(c, route, err)
				return
			}
		}
		order, ok := d.loadOrder(c, route)
		if !ok {
			return
		}

		now := d.now()
		result := models.PaymentResult{
			ID:           strings.TrimSpace(req.ID),
			Status:       strings.TrimSpace(req.Status),
			UpdateTime:   strings.TrimSpace(req.UpdateTime),
			EmailAddress: strings.TrimSpace(req.EmailAddress),
		}
		if result.ID == "" {
			result.ID = uuid.NewString()
		}
		if result.Status == "" {
			result.Status = string(models.PaymentCompleted)
		}
		if result.UpdateTime == "" {
			result.UpdateTime = now.UTC().Format(time.RFC3339)
		}

		if err := orders.Pay(order, orders.ActorOf(middleware.CurrentUser(c)), result, now); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveOrder(c, route, "order paid", order)
	}
}

func CancelOrder(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/cancel"
		defer d.handlePanic(c, route)

		order, ok := d.loadOrder(c, route)
		if !ok {
			return
		}
		if err := orders.Cancel(order, orders.ActorOf(middleware.CurrentUser(c)), d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveOrder(c, route, "order canceled", order)
	}
}

func RefundOrder(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/orders/:id/refund"
		defer d.handlePanic(c, route)

		var req refundRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				d.respondValidationError(c, route, err)
				return
			}
		}
		order, ok := d.loadOrder(c, route)
		if !ok {
			return
		}

		actor := orders.ActorOf(middleware.CurrentUser(c))
		if err := orders.Refund(order, actor, strings.TrimSpace(req.Reason), strings.TrimSpace(req.Notes), d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveOrder(c, route, "order refunded", order)
	}
}

func DeleteOrder(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/orders/:id"
		defer d.handlePanic(c, route)

		order, ok := d.loadOrder(c, route)
		if !ok {
			return
		}
		if err := orders.CanDelete(order, orders.ActorOf(middleware.CurrentUser(c))); err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Orders.Delete(ctx, order.ID); err != nil {
			d.respondError(c, route, notFoundAs(err, "Order"))
			return
		}

		d.Log.WithFields(logrus.Fields{
			"route":   route,
			"orderId": order.ID.Hex(),
			"by":      middleware.CurrentUser(c).ID.Hex(),
		}).Info("order deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Order removed"})
	}
}
