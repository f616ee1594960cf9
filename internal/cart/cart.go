// Package cart holds the line-item rules of a user's shopping cart. Every
// mutation recomputes the subtotal from the full item list.
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/models"
)

func New(userID primitive.ObjectID, now time.Time) *models.Cart {
	return &models.Cart{
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Subtotal is the sum of price * quantity over items, rounded to cents.
func Subtotal(items []models.CartItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum.Round(2).InexactFloat64()
}

// Add merges quantity of product p into the cart.
func Add(c *models.Cart, p models.Product, quantity int, now time.Time) error {
	if quantity < 1 {
		return apperror.BadRequest("Quantity must be at least 1")
	}

	for i := range c.Items {
		if c.Items[i].ProductID != p.ID {
			continue
		}
		total := c.Items[i].Quantity + quantity
		if total > p.Stock {
			return insufficientStock(p, total)
		}
		c.Items[i].Quantity = total
		c.Items[i].Stock = p.Stock
		touch(c, now)
		return nil
	}

	if quantity > p.Stock {
		return insufficientStock(p, quantity)
	}
	c.Items = append(c.Items, models.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Images.First(),
		Quantity:  quantity,
		Stock:     p.Stock,
	})
	touch(c, now)
	return nil
}

// Replace overwrites the whole item list.
func Replace(c *models.Cart, items []models.CartItem, now time.Time) error {
	seen := make(map[primitive.ObjectID]struct{}, len(items))
	for _, item := range items {
		if item.ProductID.IsZero() {
			return apperror.BadRequest("Cart item is missing a product")
		}
		if item.Quantity < 1 {
			return apperror.BadRequest("Quantity must be at least 1")
		}
		if item.Price < 0 {
			return apperror.BadRequest("Price cannot be negative")
		}
		if _, dup := seen[item.ProductID]; dup {
			return apperror.BadRequest("Duplicate product %s in cart", item.ProductID.Hex())
		}
		seen[item.ProductID] = struct{}{}
	}

	c.Items = append([]models.CartItem{}, items...)
	touch(c, now)
	return nil
}

// SetQuantity changes one line item; zero removes it.
func SetQuantity(c *models.Cart, productID primitive.ObjectID, quantity int, now time.Time) error {
	if quantity < 0 {
		return apperror.BadRequest("Quantity cannot be negative")
	}
	if quantity == 0 {
		return Remove(c, productID, now)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if c.Items[i].Stock > 0 && quantity > c.Items[i].Stock {
				return apperror.BadRequest("Only %d of %s in stock", c.Items[i].Stock, c.Items[i].Name)
			}
			c.Items[i].Quantity = quantity
			touch(c, now)
			return nil
		}
	}
	return apperror.NotFound("Item not found in cart")
}

func Remove(c *models.Cart, productID primitive.ObjectID, now time.Time) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			touch(c, now)
			return nil
		}
	}
	return apperror.NotFound("Item not found in cart")
}

func Clear(c *models.Cart, now time.Time) {
	c.Items = []models.CartItem{}
	touch(c, now)
}

func touch(c *models.Cart, now time.Time) {
	c.Subtotal = Subtotal(c.Items)
	c.UpdatedAt = now
}

func insufficientStock(p models.Product, requested int) error {
	return apperror.BadRequest("Insufficient stock for %s", p.Name).WithDetails(map[string]interface{}{
		"productId": p.ID.Hex(),
		"available": p.Stock,
		"requested": requested,
	})
}
