// Package orders implements the order lifecycle: creation from a checkout
// draft, status transitions and who may trigger them.
package orders

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/models"
)

// Actor is the authenticated caller of a transition.
type Actor struct {
	ID    primitive.ObjectID
	Admin bool
}

func ActorOf(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Admin: u.IsAdmin()}
}

// Authorize allows the order owner and admins.
func Authorize(o *models.Order, a Actor) error {
	if a.Admin || (!a.ID.IsZero() && o.UserID == a.ID) {
		return nil
	}
	return apperror.Forbidden("Not authorized to access this order")
}

func Pay(o *models.Order, a Actor, result models.PaymentResult, now time.Time) error {
	if err := Authorize(o, a); err != nil {
		return err
	}
	if o.IsPaid {
		return apperror.BadRequest("Order is already paid")
	}
	if o.IsCanceled || o.Status == models.StatusCanceled || o.Status == models.StatusRefunded {
		return apperror.BadRequest("Cannot pay for a canceled order")
	}

	o.IsPaid = true
	o.PaidAt = timePtr(now)
	o.PaymentResult = &result
	o.UpdatedAt = now
	return nil
}

// Cancelable reports whether status still allows cancellation.
func Cancelable(o *models.Order) bool {
	if o.IsDelivered || o.IsCanceled {
		return false
	}
	switch o.Status {
	case models.StatusPending, models.StatusProcessing, models.StatusShipped:
		return true
	}
	return false
}

func Cancel(o *models.Order, a Actor, now time.Time) error {
	if err := Authorize(o, a); err != nil {
		return err
	}
	if o.IsDelivered || o.Status == models.StatusDelivered {
		return apperror.BadRequest("Cannot cancel a delivered order")
	}
	if o.IsCanceled || o.Status == models.StatusCanceled || o.Status == models.StatusRefunded {
		return apperror.BadRequest("Order is already canceled")
	}
	if !Cancelable(o) {
		return apperror.BadRequest("Order cannot be canceled in status %s", o.Status)
	}

	o.Status = models.StatusCanceled
	markCanceled(o, a, now)
	return nil
}

func Refund(o *models.Order, a Actor, reason, notes string, now time.Time) error {
	if !a.Admin {
		return apperror.Forbidden("Only admins can refund orders")
	}
	if !o.IsPaid {
		return apperror.BadRequest("Cannot refund an unpaid order")
	}
	if o.IsCanceled {
		return apperror.BadRequest("Order is already canceled")
	}

	o.Status = models.StatusRefunded
	o.RefundReason = reason
	o.RefundNotes = notes
	markCanceled(o, a, now)
	return nil
}

// StatusUpdate is the admin's direct edit. Nil fields are left alone.
type StatusUpdate struct {
	Status      *models.OrderStatus
	IsPaid      *bool
	IsDelivered *bool
}

// ApplyStatusUpdate sets any status from any status. Moving into canceled or
// refunded records the same cancellation fields as Cancel and Refund do, and
// moving out of them clears those fields.
func ApplyStatusUpdate(o *models.Order, a Actor, u StatusUpdate, now time.Time) error {
	if !a.Admin {
		return apperror.Forbidden("Only admins can update order status")
	}
	if u.Status == nil && u.IsPaid == nil && u.IsDelivered == nil {
		return apperror.BadRequest("Nothing to update")
	}

	if err := u.validate(); err != nil {
		return err
	}

	if u.Status != nil {
		status := *u.Status
		o.Status = status
		switch status {
		case models.StatusCanceled, models.StatusRefunded:
			if !o.IsCanceled || o.CanceledAt == nil {
				markCanceled(o, a, now)
			}
		case models.StatusDelivered:
			o.IsCanceled, o.CanceledAt, o.CanceledBy = false, nil, nil
			if !o.IsDelivered {
				o.IsDelivered = true
				o.DeliveredAt = timePtr(now)
			}
		default:
			o.IsCanceled, o.CanceledAt, o.CanceledBy = false, nil, nil
		}
	}

	if u.IsPaid != nil && *u.IsPaid != o.IsPaid {
		o.IsPaid = *u.IsPaid
		if o.IsPaid {
			o.PaidAt = timePtr(now)
		} else {
			o.PaidAt = nil
		}
	}

	if u.IsDelivered != nil && *u.IsDelivered != o.IsDelivered {
		o.IsDelivered = *u.IsDelivered
		if o.IsDelivered {
			o.DeliveredAt = timePtr(now)
		} else {
			o.DeliveredAt = nil
		}
	}

	o.UpdatedAt = now
	return nil
}

// validate rejects unknown statuses and a status that contradicts an explicit
// isDelivered flag.
func (u StatusUpdate) validate() error {
	if u.Status == nil {
		return nil
	}
	status := *u.Status
	if !status.Valid() {
		return apperror.BadRequest("Invalid status %q", status)
	}
	if u.IsDelivered == nil {
		return nil
	}
	switch {
	case status == models.StatusDelivered && !*u.IsDelivered:
		return apperror.BadRequest("A delivered order must have isDelivered set")
	case (status == models.StatusCanceled || status == models.StatusRefunded) && *u.IsDelivered:
		return apperror.BadRequest("A %s order cannot be delivered", status)
	}
	return nil
}

// CanDelete lets admins remove any order; owners only finished ones.
func CanDelete(o *models.Order, a Actor) error {
	if err := Authorize(o, a); err != nil {
		return err
	}
	if a.Admin {
		return nil
	}
	if o.IsDelivered || o.IsCanceled || o.Status == models.StatusDelivered || o.Status == models.StatusCanceled {
		return nil
	}
	return apperror.BadRequest("Only delivered or canceled orders can be deleted")
}

// CountsTowardRevenue is the revenue rule shared by stats and the dashboard.
func CountsTowardRevenue(o *models.Order) bool {
	return o.IsPaid && !o.IsCanceled && o.Status != models.StatusCanceled && o.Status != models.StatusRefunded
}

func markCanceled(o *models.Order, a Actor, now time.Time) {
	o.IsCanceled = true
	o.CanceledAt = timePtr(now)
	if !a.ID.IsZero() {
		by := a.ID
		o.CanceledBy = &by
	}
	o.UpdatedAt = now
}

func timePtr(t time.Time) *time.Time {
	return &t
}
