package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"peakhive/internal/apperror"
	"peakhive/internal/catalog"
	"peakhive/internal/middleware"
	"peakhive/internal/models"
)

const (
	defaultTopLimit = 5
	maxTopLimit     = 20
)

// productInput is shared by create and update. Nil fields are left alone on
// update and required ones are enforced on create.
type productInput struct {
	Name           *string                  `json:"name"`
	Price          *float64                 `json:"price"`
	Description    *string                  `json:"description"`
	Category       *string                  `json:"category"`
	Brand          *string                  `json:"brand"`
	Images         *[]string                `json:"images"`
	Stock          *int                     `json:"stock"`
	Specifications *map[string]string       `json:"specifications"`
	Features       *[]string                `json:"features"`
	Tags           *[]string                `json:"tags"`
	Variants       *[]models.ProductVariant `json:"variants"`
}

func (in productInput) validateCreate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return apperror.BadRequest("Product name is required")
	}
	if in.Price == nil {
		return apperror.BadRequest("Product price is required")
	}
	if in.Category == nil || strings.TrimSpace(*in.Category) == "" {
		return apperror.BadRequest("Product category is required")
	}
	return nil
}

func (in productInput) apply(p *models.Product) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperror.BadRequest("Product name cannot be empty")
		}
		p.Name = name
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return apperror.BadRequest("Price cannot be negative")
		}
		p.Price = *in.Price
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		category := strings.ToLower(strings.TrimSpace(*in.Category))
		if !models.IsValidCategory(category) {
			return apperror.BadRequest("Invalid category %q", category).WithDetails(map[string]interface{}{
				"allowed": models.Categories,
			})
		}
		p.Category = category
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Images != nil {
		p.Images = cleanList(*in.Images)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return apperror.BadRequest("Stock cannot be negative")
		}
		p.Stock = *in.Stock
	}
	if in.Specifications != nil {
		p.Specifications = *in.Specifications
	}
	if in.Features != nil {
		p.Features = cleanList(*in.Features)
	}
	if in.Tags != nil {
		p.Tags = cleanList(*in.Tags)
	}
	if in.Variants != nil {
		p.Variants = *in.Variants
	}
	return nil
}

func cleanList(values []string) models.StringList {
	seen := map[string]struct{}{}
	out := make(models.StringList, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func (d *Deps) bindProductInput(c *gin.Context, route string) (productInput, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		input, err := d.parseMultipartProduct(c)
		if err != nil {
			d.respondError(c, route, err)
			return productInput{}, false
		}
		return input, true
	}

	var input productInput
	if err := c.ShouldBindJSON(&input); err != nil {
		d.respondValidationError(c, route, err)
		return productInput{}, false
	}
	return input, true
}

func ListProducts(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer d.handlePanic(c, route)

		q, err := catalog.Parse(c.Request.URL.Query())
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		products, total, err := d.Products.List(ctx, q)
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products": products,
			"page":     q.Page.Number,
			"pages":    q.Page.Pages(total),
			"total":    total,
		})
	}
}

func TopProducts(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/top"
		defer d.handlePanic(c, route)

		limit := int64(defaultTopLimit)
		if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 {
				d.respondWithError(c, http.StatusBadRequest, route, "invalid limit parameter")
				return
			}
			limit = parsed
		}
		if limit > maxTopLimit {
			limit = maxTopLimit
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		products, err := d.Products.Top(ctx, limit)
		if err != nil {
			d.respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

func ProductCategories(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.Categories)
	}
}

func GetProduct(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "product")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		product, err := d.Products.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func CreateProduct(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products"
		defer d.handlePanic(c, route)

		input, ok := d.bindProductInput(c, route)
		if !ok {
			return
		}
		if err := input.validateCreate(); err != nil {
			d.respondError(c, route, err)
			return
		}

		now := d.now()
		product := &models.Product{
			Images:    models.StringList{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := input.apply(product); err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		if err := d.Products.Create(ctx, product); err != nil {
			d.respondError(c, route, err)
			return
		}

		d.Log.WithFields(logrus.Fields{
			"route":     route,
			"productId": product.ID.Hex(),
			"by":        middleware.CurrentUser(c).ID.Hex(),
		}).Info("product created")
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProduct(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/products/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "product")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		input, ok := d.bindProductInput(c, route)
		if !ok {
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		product, err := d.Products.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}
		previousImages := append([]string(nil), product.Images...)

		if err := input.apply(product); err != nil {
			d.respondError(c, route, err)
			return
		}
		product.UpdatedAt = d.now()

		if err := d.Products.Update(ctx, product); err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}

		if input.Images != nil {
			kept := make(map[string]struct{}, len(product.Images))
			for _, image := range product.Images {
				kept[image] = struct{}{}
			}
			dropped := make([]string, 0)
			for _, image := range previousImages {
				if _, ok := kept[image]; !ok {
					dropped = append(dropped, image)
				}
			}
			d.removeImages(route, dropped)
		}

		d.Log.WithFields(logrus.Fields{
			"route":     route,
			"productId": product.ID.Hex(),
			"by":        middleware.CurrentUser(c).ID.Hex(),
		}).Info("product updated")
		c.JSON(http.StatusOK, product)
	}
}

func DeleteProduct(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/products/:id"
		defer d.handlePanic(c, route)

		id, err := pathID(c, "id", "product")
		if err != nil {
			d.respondError(c, route, err)
			return
		}

		ctx, cancel := d.ctx(c)
		defer cancel()

		product, err := d.Products.FindByID(ctx, id)
		if err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}
		if err := d.Products.SoftDelete(ctx, id); err != nil {
			d.respondError(c, route, notFoundAs(err, "Product"))
			return
		}
		d.removeImages(route, product.Images)

		d.Log.WithFields(logrus.Fields{
			"route":     route,
			"productId": id.Hex(),
			"by":        middleware.CurrentUser(c).ID.Hex(),
		}).Info("product deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
	}
}
