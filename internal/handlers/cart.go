package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/cart"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/store"
)

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type replaceCartRequest struct {
	Items []cartItemRequest `json:"items"`
}

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// loadCart returns the user's cart, or a new empty one that is not yet
// persisted.
func (d *Deps) loadCart(c *gin.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := d.ctx(c)
	defer cancel()

	existing, err := d.Carts.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return cart.New(userID, d.now()), nil
	}
	if err != nil {
		return nil, err
	}
	if existing.Items == nil {
		existing.Items = []models.CartItem{}
	}
	return existing, nil
}

func (d *Deps) saveCart(c *gin.Context, route string, userCart *models.Cart) {
	ctx, cancel := d.ctx(c)
	defer cancel()

	if err := d.Carts.Save(ctx, userCart); err != nil {
		d.respondError(c, route, err)
		return
	}
	d.Log.WithFields(logrus.Fields{
		"route":    route,
		"userId":   userCart.UserID.Hex(),
		"items":    len(userCart.Items),
		"subtotal": userCart.Subtotal,
	}).Info("cart saved")
	c.JSON(http.StatusOK, userCart)
}

func GetCart(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/cart"
		defer d.handlePanic(c, route)

		userCart, err := d.loadCart(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, userCart)
	}
}

// ReplaceCart overwrites the item list. Names, prices and images are taken
// from the catalog, not from the request.
func ReplaceCart(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart"
		defer d.handlePanic(c, route)

		var req replaceCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		ids := make([]primitive.ObjectID, 0, len(req.Items))
		for _, item := range req.Items {
			id, err := primitive.ObjectIDFromHex(item.ProductID)
			if err != nil {
				d.respondWithError(c, http.StatusBadRequest, route, "Invalid product id")
				return
			}
			ids = append(ids, id)
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		products, err := d.Products.FindByIDs(ctx, ids)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		byID := make(map[primitive.ObjectID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		items := make([]models.CartItem, 0, len(req.Items))
		for i, item := range req.Items {
			p, ok := byID[ids[i]]
			if !ok {
				d.respondError(c, route, apperror.BadRequest("Product not found").WithDetails(map[string]interface{}{
					"productId": ids[i].Hex(),
				}))
				return
			}
			items = append(items, models.CartItem{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Image:     p.Images.First(),
				Quantity:  item.Quantity,
				Stock:     p.Stock,
			})
		}

		userCart, err := d.loadCart(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if err := cart.Replace(userCart, items, d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveCart(c, route, userCart)
	}
}

func AddToCart(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/cart/add"
		defer d.handlePanic(c, route)

		var req addToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid product id")
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		product, err := d.Products.FindByID(ctx, productID)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}

		userCart, err := d.loadCart(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if err := cart.Add(userCart, *product, req.Quantity, d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveCart(c, route, userCart)
	}
}

func UpdateCartItem(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/cart/items/:productId"
		defer d.handlePanic(c, route)

		productID, err := pathID(c, "productId", "product")
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		var req setQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}

		userCart, err := d.loadCart(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if err := cart.SetQuantity(userCart, productID, *req.Quantity, d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveCart(c, route, userCart)
	}
}

func RemoveCartItem(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart/items/:productId"
		defer d.handlePanic(c, route)

		productID, err := pathID(c, "productId", "product")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		userCart, err := d.loadCart(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if err := cart.Remove(userCart, productID, d.now()); err != nil {
			d.respondError(c, route, err)
			return
		}
		d.saveCart(c, route, userCart)
	}
}

func ClearCart(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/cart"
		defer d.handlePanic(c, route)

		userCart, err := d.loadCart(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		cart.Clear(userCart, d.now())
		d.saveCart(c, route, userCart)
	}
}
