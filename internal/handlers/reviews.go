package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peakhive/internal/apperror"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
	"peakhive/internal/pagination"
	"peakhive/internal/reviews"
	"peakhive/internal/store"
)

const (
	defaultReviewLimit = 10
	maxReviewLimit     = 50
)

type createReviewRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Title     string `json:"title"`
	Comment   string `json:"comment"`
}

// recomputeRating rescans every review of the product.
func (d *Deps) recomputeRating(ctx context.Context, productID primitive.ObjectID) error {
	ratings, err := d.Reviews.Ratings(ctx, productID)
	if err != nil {
		return err
	}
	summary := reviews.Aggregate(ratings)
	return d.Products.SetRating(ctx, productID, summary.Rating, summary.Count)
}

func CreateReview(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/reviews"
		defer d.handlePanic(c, route)

		var req createReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			d.respondValidationError(c, route, err)
			return
		}
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			d.respondWithError(c, http.StatusBadRequest, route, "Invalid product id")
			return
		}
		input := reviews.Input{Rating: req.Rating, Title: strings.TrimSpace(req.Title), Comment: strings.TrimSpace(req.Comment)}
		if err := input.Validate(); err != nil {
			d.respondError(c, route, err)
			return
		}

		user := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		product, err := d.Products.FindByID(ctx, productID)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}

		exists, err := d.Reviews.Exists(ctx, user.ID, productID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		if exists {
			d.respondError(c, route, reviews.ErrAlreadyReviewed)
			return
		}

		now := d.now()
		review := &models.Review{
			UserID:      user.ID,
			ProductID:   productID,
			UserName:    user.Name,
			ProductName: product.Name,
			Rating:      input.Rating,
			Title:       input.Title,
			Comment:     input.Comment,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := d.Reviews.Create(ctx, review); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				d.respondError(c, route, reviews.ErrAlreadyReviewed)
				return
			}
			d.respondError(c, route, err)
			return
		}

		if err := d.recomputeRating(ctx, productID); err != nil {
			d.Log.WithFields(logrus.Fields{"route": route, "productId": productID.Hex()}).WithError(err).Warn("rating recompute failed")
		}

		d.Log.WithFields(logrus.Fields{
			"route":     route,
			"reviewId":  review.ID.Hex(),
			"productId": productID.Hex(),
			"userId":    user.ID.Hex(),
		}).Info("review created")
		c.JSON(http.StatusCreated, review)
	}
}

func ListProductReviews(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/reviews"
		defer d.handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Query("productId")))
		if err != nil {
			d.respondWithError(c, http.StatusBadRequest, route, "productId query parameter is required")
			return
		}
		page, err := pagination.Parse(c.Query("page"), c.Query("limit"), defaultReviewLimit, maxReviewLimit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, total, err := d.Reviews.ListByProduct(ctx, productID, page)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"reviews": list,
			"page":    page.Number,
			"pages":   page.Pages(total),
			"total":   total,
		})
	}
}

func MyReviews(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/reviews/myreviews"
		defer d.handlePanic(c, route)

		ctx, cancel := d.ctx(c)
		defer cancel()

		list, err := d.Reviews.ListByUser(ctx, middleware.CurrentUser(c).ID)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func DeleteReview(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/reviews/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "review")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		user := middleware.CurrentUser(c)
		ctx, cancel := d.ctx(c)
		defer cancel()

		review, err := d.Reviews.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Review"))
			return
		}
		if review.UserID != user.ID && !user.IsAdmin() {
			d.respondError(c, route, apperror.Forbidden("Not authorized to delete this review"))
			return
		}

		if err := d.Reviews.Delete(ctx, id); err != nil {
			d.respondError(c, route, notFoundAs(err, "Review"))
			return
		}
		if err := d.recomputeRating(ctx, review.ProductID); err != nil {
			d.Log.WithFields(logrus.Fields{"route": route, "productId": review.ProductID.Hex()}).WithError(err).Warn("rating recompute failed")
		}

		d.Log.WithFields(logrus.Fields{"route": route, "reviewId": id.Hex(), "by": user.ID.Hex()}).Info("review deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Review removed"})
	}
}
