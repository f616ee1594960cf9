package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/store"
)

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// wishlistProducts loads the listed products in wishlist order. Products
// deleted since they were added are skipped.
func (d *Deps) wishlistProducts(c *gin.Context, userID primitive.ObjectID) ([]models.Product, error) {
	ctx, cancel := d.ctx(c)
	defer cancel()

	wishlist, err := d.Wishlists.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Product{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(wishlist.Products) == 0 {
		return []models.Product{}, nil
	}

	products, err := d.Products.FindByIDs(ctx, wishlist.Products)
	if err != nil {
		return nil, err
	}
	productByID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	ordered := make([]models.Product, 0, len(products))
	for _, id := range wishlist.Products {
		if product, exists := productByID[id]; exists {
			ordered = append(ordered, product)
		}
	}
	return ordered, nil
}

func GetWishlist(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/wishlist"
		defer d.handlePanic(c, route)

		products, err := d.wishlistProducts(c, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

func AddToWishlist(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/wishlist"
		defer d.handlePanic(c, route)

		var req wishlistRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid product id")
			return
		}

		user := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		if _, err := d.Products.FindByID(ctx, productID); err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}

		wishlist, err := d.Wishlists.FindByUser(ctx, user.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			d.respondError(c, route, err)
			return
		}
		if wishlist.Contains(productID) {
			d.respondWithError(c, http.StatusBadRequest, route, "Product already in wishlist")
			return
		}

		if err := d.Wishlists.AddProduct(ctx, user.ID, productID); err != nil {
			d.respondError(c, route, err)
			return
		}

		products, err := d.wishlistProducts(c, user.ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex(), "productId": productID.Hex()}).Info("wishlist product added")
		c.JSON(http.StatusCreated, gin.H{"message": "Product added to wishlist", "products": products})
	}
}

func RemoveFromWishlist(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/wishlist/:productId"
		defer d.handlePanic(c, route)

		productID, err := pathID(c, "productId", "product")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		user := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Wishlists.RemoveProduct(ctx, user.ID, productID); err != nil {
			d.respondError(c, route, err)
			return
		}

		products, err := d.wishlistProducts(c, user.ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		d.Log.WithFields(logrus.Fields{"route": route, "userId": user.ID.Hex(), "productId": productID.Hex()}).Info("wishlist product removed")
		c.JSON(http.StatusOK, gin.H{"message": "Product removed from wishlist", "products": products})
	}
}

func ClearWishlist(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/wishlist"
		defer d.handlePanic(c, route)

		user := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Wishlists.Clear(ctx, user.ID); err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Wishlist cleared", "products": []models.Product{}})
	}
}
