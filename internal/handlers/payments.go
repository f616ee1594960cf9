package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/orders"
	"peakhive/internal/pagination"
)

const (
	defaultPaymentLimit = 20
	maxPaymentLimit     = 100
)

type createPaymentRequest struct {
	OrderID string   `json:"orderId" binding:"required"`
	Method  string   `json:"method" binding:"required"`
	Amount  *float64 `json:"amount"`
}

type paymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required"`
}

// simulatedOutcome stands in for a payment gateway: card and PayPal settle
// immediately, cash on delivery stays pending.
func simulatedOutcome(method string) models.PaymentStatus {
	if method == models.PaymentCashOnDelivery {
		return models.PaymentPending
	}
	return models.PaymentCompleted
}

// CreatePayment records a payment attempt. A completed payment marks the
// order paid in a second write; if that write fails the payment stays.
func CreatePayment(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payment"
		defer d.handlePanic(c, route)

		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		orderID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.OrderID))
		if err != nil {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid order id")
			return
		}
		method := strings.TrimSpace(req.Method)
		if !models.IsValidPaymentMethod(method) {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid payment method")
			return
		}

		user := middleware.CurrentUser(c)
		actor := orders.ActorOf(user)
		ctx, cancel := d.ctx(c)
		defer cancel()

		order, err := d.Orders.FindByID(ctx, orderID)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Order"))
			return
		}
		if err := orders.Authorize(order, actor); err != nil {
			d.respondError(c, route, err)
			return
		}
		if order.IsPaid {
			d.respondWithError(c, http.StatusBadRequest, route, "Order is already paid")
			return
		}
		if order.IsCanceled || order.Status == models.StatusCanceled || order.Status == models.StatusRefunded {
			d.respondWithError(c, http.StatusBadRequest, route, "Cannot pay for a canceled order")
			return
		}
		amount := order.TotalPrice
		if req.Amount != nil && !decimal.NewFromFloat(*req.Amount).Round(2).Equal(decimal.NewFromFloat(order.TotalPrice).Round(2)) {
			d.respondError(c, route, apperror.BadRequest("Payment amount does not match order total").WithDetails(map[string]interface{}{
				"expected": order.TotalPrice,
				"received": *req.Amount,
			}))
			return
		}

		now := d.now()
		payment := &models.Payment{
			UserID:        order.UserID,
			OrderID:       order.ID,
			Method:        method,
			Status:        simulatedOutcome(method),
			TransactionID: uuid.NewString(),
			Amount:        amount,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := d.Payments.Create(ctx, payment); err != nil {
			d.respondError(c, route, err)
			return
		}

		logger := d.Log.WithFields(logrus.Fields{
			"route":         route,
			"paymentId":     payment.ID.Hex(),
			"orderId":       order.ID.Hex(),
			"transactionId": payment.TransactionID,
			"status":        payment.Status,
		})
		if payment.Status == models.PaymentCompleted {
			d.markOrderPaid(ctx, order, payment, actor, now, logger)
		}

		logger.Info("payment recorded")
		c.JSON(http.StatusCreated, payment)
	}
}

func MyPayments(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/payment/mypayments"
		defer d.handlePanic(c, route)

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, err := d.Payments.ListByUser(ctx, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func GetPayment(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/payment/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "payment")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		user := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		payment, err := d.Payments.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Payment"))
			return
		}
		if payment.UserID != user.ID && !user.IsAdmin() {
			d.respondError(c, route, apperror.Forbidden("Not authorized to access this payment"))
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func ListPayments(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/payment"
		defer d.handlePanic(c, route)

		page, err := pagination.Parse(c.Query("page"), c.Query("limit"), defaultPaymentLimit, maxPaymentLimit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		status := models.PaymentStatus(strings.TrimSpace(c.Query("status")))
		if status != "" && !status.Valid() {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid status filter")
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, total, err := d.Payments.List(ctx, status, page)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"payments": list,
			"page":     page.Number,
			"pages":    page.Pages(total),
			"total":    total,
		})
	}
}

// UpdatePaymentStatus lets an admin settle or reverse a payment. Settling a
// pending payment marks the order paid and moving to refunded refunds it, each
// in a separate write; a refused or failed order write is logged and the
// payment status is kept.
func UpdatePaymentStatus(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/payment/:id/status"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "payment")
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		var req paymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		if !req.Status.Valid() {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid payment status")
			return
		}

		admin := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		payment, err := d.Payments.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Payment"))
			return
		}

		now := d.now()
		if err := d.Payments.UpdateStatus(ctx, id, req.Status, now); err != nil {
			d.respondError(c, route, notFoundAs(err, "Payment"))
			return
		}
		previous := payment.Status
		payment.Status = req.Status
		payment.UpdatedAt = now

		logger := d.Log.WithFields(logrus.Fields{
			"route":     route,
			"paymentId": id.Hex(),
			"orderId":   payment.OrderID.Hex(),
			"from":      previous,
			"to":        req.Status,
			"by":        admin.ID.Hex(),
		})

		if req.Status == models.PaymentCompleted && previous == models.PaymentPending {
			if order, err := d.Orders.FindByID(ctx, payment.OrderID); err != nil {
				logger.WithError(err).Warn("order not marked paid: order lookup failed")
			} else {
				d.markOrderPaid(ctx, order, payment, orders.ActorOf(admin), now, logger)
			}
		}

		if req.Status == models.PaymentRefunded && previous != models.PaymentRefunded {
			if order, err := d.Orders.FindByID(ctx, payment.OrderID); err != nil {
				logger.WithError(err).Warn("refund not propagated: order lookup failed")
			} else if err := orders.Refund(order, orders.ActorOf(admin), "Payment refunded", "", now); err != nil {
				logger.WithError(err).Warn("refund not propagated: order refused refund")
			} else if err := d.Orders.Save(ctx, order); err != nil {
				logger.WithError(err).Error("refund not propagated: order save failed")
			}
		}

		logger.Info("payment status updated")
		c.JSON(http.StatusOK, payment)
	}
}

// markOrderPaid records a completed payment on its order. Failures are logged
// because the payment itself is already stored.
func (d *Deps) markOrderPaid(ctx context.Context, order *models.Order, payment *models.Payment, actor orders.Actor, now time.Time, logger logrus.FieldLogger) {
	result := models.PaymentResult{
		ID:         payment.TransactionID,
		Status:     string(models.PaymentCompleted),
		UpdateTime: now.UTC().Format(time.RFC3339),
	}
	if err := orders.Pay(order, actor, result, now); err != nil {
		logger.WithError(err).Warn("order not marked paid")
	} else if err := d.Orders.Save(ctx, order); err != nil {
		logger.WithError(err).Error("order paid flag not persisted")
	}
}
