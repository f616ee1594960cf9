package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/models"
)

type DraftItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// Draft is checkout input before prices are resolved against the catalog.
type Draft struct {
	Items           []DraftItem
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
}

// Validate checks the draft without touching the catalog.
func (d Draft) Validate() error {
	if len(d.Items) == 0 {
		return apperror.BadRequest("No order items")
	}
	for _, item := range d.Items {
		if item.ProductID.IsZero() {
			return apperror.BadRequest("Order item is missing a product")
		}
		if item.Quantity < 1 {
			return apperror.BadRequest("Quantity must be at least 1")
		}
	}

	addr := d.ShippingAddress
	if blank(addr.Street) || blank(addr.City) || blank(addr.State) || blank(addr.ZipCode) || blank(addr.Country) {
		return apperror.BadRequest("Shipping address is incomplete")
	}

	if blank(d.PaymentMethod) {
		return apperror.BadRequest("Payment method is required")
	}
	if !models.IsValidPaymentMethod(d.PaymentMethod) {
		return apperror.BadRequest("Invalid payment method")
	}
	return nil
}

// ProductIDs lists the distinct products referenced by the draft.
func (d Draft) ProductIDs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(d.Items))
	ids := make([]primitive.ObjectID, 0, len(d.Items))
	for _, item := range d.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Build snapshots catalog data into a pending order. Lines for the same
// product are merged and prices always come from the catalog.
func Build(userID primitive.ObjectID, d Draft, catalog map[primitive.ObjectID]models.Product, pricing Pricing, now time.Time) (*models.Order, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	quantities := make(map[primitive.ObjectID]int, len(d.Items))
	for _, item := range d.Items {
		quantities[item.ProductID] += item.Quantity
	}

	items := make([]models.OrderItem, 0, len(quantities))
	for _, id := range d.ProductIDs() {
		product, ok := catalog[id]
		if !ok || product.IsDeleted {
			return nil, apperror.BadRequest("Product not found").WithDetails(map[string]interface{}{
				"productId": id.Hex(),
			})
		}
		qty := quantities[id]
		if product.Stock < qty {
			return nil, apperror.BadRequest("Insufficient stock for %s", product.Name).WithDetails(map[string]interface{}{
				"productId": id.Hex(),
				"available": product.Stock,
				"requested": qty,
			})
		}
		items = append(items, models.OrderItem{
			ProductID: id,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Images.First(),
			Quantity:  qty,
		})
	}

	order := &models.Order{
		OrderNumber:     NewOrderNumber(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: trimAddress(d.ShippingAddress),
		PaymentMethod:   d.PaymentMethod,
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	pricing.Compute(items).apply(order)
	return order, nil
}

// NewOrderNumber returns a short human-readable order identifier.
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PH-" + strings.ToUpper(id[:12])
}

func trimAddress(a models.ShippingAddress) models.ShippingAddress {
	return models.ShippingAddress{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
