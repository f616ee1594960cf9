package orders

import (
	"github.com/shopspring/decimal"

	"peakhive/internal/models"
)

// Pricing holds the store-wide checkout parameters.
type Pricing struct {
	TaxRate               float64
	ShippingFee           float64
	FreeShippingThreshold float64
}

type Breakdown struct {
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

func (p Pricing) Compute(items []models.OrderItem) Breakdown {
	itemsPrice := decimal.Zero
	for _, item := range items {
		itemsPrice = itemsPrice.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	itemsPrice = itemsPrice.Round(2)

	tax := itemsPrice.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)

	shipping := decimal.NewFromFloat(p.ShippingFee).Round(2)
	if len(items) == 0 || itemsPrice.GreaterThanOrEqual(decimal.NewFromFloat(p.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}

	return Breakdown{
		ItemsPrice:    itemsPrice.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TotalPrice:    itemsPrice.Add(tax).Add(shipping).InexactFloat64(),
	}
}

func (b Breakdown) apply(o *models.Order) {
	o.ItemsPrice = b.ItemsPrice
	o.TaxPrice = b.TaxPrice
	o.ShippingPrice = b.ShippingPrice
	o.TotalPrice = b.TotalPrice
}
