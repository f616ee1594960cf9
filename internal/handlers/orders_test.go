package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/models"
)

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser("Ana", models.RoleUser)

	w := env.do(http.MethodPost, "/api/orders", token, checkoutBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No order items", message(t, w))
}

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.addUser("Ana", models.RoleUser)
	tent := env.addProduct("Ridge Tent", 40, 5)

	add := env.do(http.MethodPost, "/api/cart/add", token, gin.H{"productId": tent.ID.Hex(), "quantity": 1})
	require.Equal(t, http.StatusOK, add.Code, add.Body.String())

	// the client-supplied price is ignored
	w := env.do(http.MethodPost, "/api/orders", token, checkoutBody(
		gin.H{"product": tent.ID.Hex(), "quantity": 2, "price": 1},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	order := decode[models.Order](t, w)
	assert.Equal(t, user.ID, order.UserID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.NotEmpty(t, order.OrderNumber)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 40.0, order.Items[0].Price)
	assert.Equal(t, "Ridge Tent", order.Items[0].Name)
	assert.Equal(t, 80.0, order.ItemsPrice)
	assert.Equal(t, 12.0, order.TaxPrice)
	assert.Equal(t, 10.0, order.ShippingPrice)
	assert.Equal(t, 102.0, order.TotalPrice)

	assert.Equal(t, 3, env.storedProduct(tent.ID).Stock)

	cartResp := env.do(http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, cartResp.Code)
	assert.Empty(t, decode[models.Cart](t, cartResp).Items)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser("Ana", models.RoleUser)
	stove := env.addProduct("Camp Stove", 25, 1)

	w := env.do(http.MethodPost, "/api/orders", token, checkoutBody(
		gin.H{"productId": stove.ID.Hex(), "quantity": 2},
	))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Insufficient stock for Camp Stove", message(t, w))
	assert.Equal(t, 1, env.storedProduct(stove.ID).Stock)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser("Ana", models.RoleUser)

	w := env.do(http.MethodPost, "/api/orders", token, checkoutBody(
		gin.H{"productId": primitive.NewObjectID().Hex(), "quantity": 1},
	))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Product not found", message(t, w))
}

func TestCreateOrderRetriesTakenOrderNumber(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.addUser("Ana", models.RoleUser)
	lamp := env.addProduct("Head Lamp", 20, 3)

	env.db.orderNumberClashes = 1
	w := env.do(http.MethodPost, "/api/orders", token, checkoutBody(
		gin.H{"productId": lamp.ID.Hex(), "quantity": 1},
	))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, env.storedProduct(lamp.ID).Stock)

	env.db.orderNumberClashes = 2
	w = env.do(http.MethodPost, "/api/orders", token, checkoutBody(
		gin.H{"productId": lamp.ID.Hex(), "quantity": 1},
	))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 2, env.storedProduct(lamp.ID).Stock)
}

func TestGetOrderAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.addUser("Ana", models.RoleUser)
	_, otherToken := env.addUser("Ben", models.RoleUser)
	_, adminToken := env.addUser("Root", models.RoleAdmin)
	order := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusPending, TotalPrice: 50})
	path := "/api/orders/" + order.ID.Hex()

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, ownerToken, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, adminToken, nil).Code)

	forbidden := env.do(http.MethodGet, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, forbidden.Code)
	assert.Equal(t, "Not authorized to access this order", message(t, forbidden))

	missing := env.do(http.MethodGet, "/api/orders/"+primitive.NewObjectID().Hex(), otherToken, nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "Order not found", message(t, missing))

	bad := env.do(http.MethodGet, "/api/orders/not-an-id", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "Invalid order id", message(t, bad))
}

func TestCancelAndRefund(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.addUser("Ana", models.RoleUser)
	admin, adminToken := env.addUser("Root", models.RoleAdmin)

	pending := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusPending, TotalPrice: 30})
	cancelPath := "/api/orders/" + pending.ID.Hex() + "/cancel"

	w := env.do(http.MethodPut, cancelPath, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	canceled := env.storedOrder(pending.ID)
	assert.Equal(t, models.StatusCanceled, canceled.Status)
	assert.True(t, canceled.IsCanceled)
	require.NotNil(t, canceled.CanceledBy)
	assert.Equal(t, owner.ID, *canceled.CanceledBy)

	again := env.do(http.MethodPut, cancelPath, ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, again.Code)

	unpaid := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusProcessing, TotalPrice: 30})
	w = env.do(http.MethodPut, "/api/orders/"+unpaid.ID.Hex()+"/refund", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot refund an unpaid order", message(t, w))

	paidAt := time.Now()
	paid := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusProcessing, IsPaid: true, PaidAt: &paidAt, TotalPrice: 30})
	refundPath := "/api/orders/" + paid.ID.Hex() + "/refund"

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, refundPath, ownerToken, nil).Code)

	w = env.do(http.MethodPut, refundPath, adminToken, gin.H{"reason": "damaged", "notes": "box crushed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refunded := env.storedOrder(paid.ID)
	assert.Equal(t, models.StatusRefunded, refunded.Status)
	assert.True(t, refunded.IsCanceled)
	assert.Equal(t, "damaged", refunded.RefundReason)
	require.NotNil(t, refunded.CanceledBy)
	assert.Equal(t, admin.ID, *refunded.CanceledBy)
}

func TestPayOrderDefaultsPaymentResult(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.addUser("Ana", models.RoleUser)
	order := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusPending, TotalPrice: 30})
	path := "/api/orders/" + order.ID.Hex() + "/pay"

	w := env.do(http.MethodPut, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := env.storedOrder(order.ID)
	assert.True(t, stored.IsPaid)
	require.NotNil(t, stored.PaidAt)
	require.NotNil(t, stored.PaymentResult)
	assert.NotEmpty(t, stored.PaymentResult.ID)
	assert.Equal(t, "completed", stored.PaymentResult.Status)

	again := env.do(http.MethodPut, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, again.Code)
	assert.Equal(t, "Order is already paid", message(t, again))
}

func TestUpdateOrderStatusDelivered(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.addUser("Ana", models.RoleUser)
	_, adminToken := env.addUser("Root", models.RoleAdmin)
	order := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusShipped, TotalPrice: 30})
	path := "/api/orders/" + order.ID.Hex()

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, path, ownerToken, gin.H{"status": "delivered"}).Code)

	w := env.do(http.MethodPut, path, adminToken, gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored := env.storedOrder(order.ID)
	assert.Equal(t, models.StatusDelivered, stored.Status)
	assert.True(t, stored.IsDelivered)
	assert.NotNil(t, stored.DeliveredAt)

	bad := env.do(http.MethodPut, path, adminToken, gin.H{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestOrderStatsRevenue(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.addUser("Ana", models.RoleUser)
	_, adminToken := env.addUser("Root", models.RoleAdmin)

	env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusProcessing, IsPaid: true, TotalPrice: 100})
	env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusRefunded, IsPaid: true, IsCanceled: true, TotalPrice: 50})
	env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusPending, TotalPrice: 30})
	env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusCanceled, IsPaid: true, IsCanceled: true, TotalPrice: 20})

	w := env.do(http.MethodGet, "/api/orders/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stats := decode[models.OrderStats](t, w)
	assert.Equal(t, int64(4), stats.TotalOrders)
	assert.Equal(t, 100.0, stats.TotalRevenue)
	assert.Equal(t, 200.0, stats.GrossOrderValue)
	assert.Equal(t, int64(1), stats.OrdersByStatus[models.StatusRefunded])
	assert.Equal(t, int64(0), stats.OrdersByStatus[models.StatusShipped])
	assert.Len(t, stats.RecentOrders, 4)
}

func TestListOrdersSearchFallsBackToCustomer(t *testing.T) {
	env := newTestEnv(t)
	jordan, _ := env.addUser("Jordan", models.RoleUser)
	kim, _ := env.addUser("Kim", models.RoleUser)
	_, adminToken := env.addUser("Root", models.RoleAdmin)
	mine := env.putOrder(models.Order{UserID: jordan.ID, Status: models.StatusPending})
	env.putOrder(models.Order{UserID: kim.ID, Status: models.StatusPending})

	w := env.do(http.MethodGet, "/api/orders?search=jordan", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[struct {
		Orders []models.Order `json:"orders"`
		Total  int64          `json:"total"`
		Page   int64          `json:"page"`
	}](t, w)
	assert.Equal(t, int64(1), body.Total)
	assert.Equal(t, int64(1), body.Page)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, mine.ID, body.Orders[0].ID)

	bad := env.do(http.MethodGet, "/api/orders?status=lost", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestDeleteOrderRules(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.addUser("Ana", models.RoleUser)
	open := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusPending})
	done := env.putOrder(models.Order{UserID: owner.ID, Status: models.StatusCanceled, IsCanceled: true})

	w := env.do(http.MethodDelete, "/api/orders/"+open.ID.Hex(), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only delivered or canceled orders can be deleted", message(t, w))

	w = env.do(http.MethodDelete, "/api/orders/"+done.ID.Hex(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/orders/"+done.ID.Hex(), token, nil).Code)
}
