// Package catalog turns product listing query parameters into MongoDB
// filters and sort specs.
package catalog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"peakhive/internal/apperror"
	"peakhive/internal/models"
	"peakhive/internal/pagination"
)

const (
	DefaultLimit = 12
	MaxLimit     = 100
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortName      = "name"
	SortPopular   = "popular"
)

type Query struct {
	Keyword   string
	Category  string
	Brand     string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
	InStock   bool
	Sort      string
	Page      pagination.Page
}

func Parse(values url.Values) (Query, error) {
	q := Query{
		Keyword:  strings.TrimSpace(values.Get("keyword")),
		Category: strings.ToLower(strings.TrimSpace(values.Get("category"))),
		Brand:    strings.TrimSpace(values.Get("brand")),
		Sort:     strings.TrimSpace(values.Get("sort")),
	}

	if q.Category != "" && q.Category != "all" && !models.IsValidCategory(q.Category) {
		return Query{}, apperror.BadRequest("Invalid category %q", q.Category)
	}
	if q.Category == "all" {
		q.Category = ""
	}

	var err error
	if q.MinPrice, err = parseFloat(values, "minPrice"); err != nil {
		return Query{}, err
	}
	if q.MaxPrice, err = parseFloat(values, "maxPrice"); err != nil {
		return Query{}, err
	}
	if q.MinRating, err = parseFloat(values, "minRating"); err != nil {
		return Query{}, err
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return Query{}, apperror.BadRequest("minPrice cannot exceed maxPrice")
	}

	if raw := strings.TrimSpace(values.Get("inStock")); raw != "" {
		if q.InStock, err = strconv.ParseBool(raw); err != nil {
			return Query{}, apperror.BadRequest("inStock must be boolean")
		}
	}

	switch q.Sort {
	case "":
		q.Sort = SortNewest
	case SortNewest, SortPriceAsc, SortPriceDesc, SortRating, SortName, SortPopular:
	default:
		return Query{}, apperror.BadRequest("Invalid sort %q", q.Sort)
	}

	if q.Page, err = pagination.Parse(values.Get("page"), values.Get("limit"), DefaultLimit, MaxLimit); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Filter never matches soft-deleted products.
func (q Query) Filter() bson.M {
	filter := bson.M{"isDeleted": bson.M{"$ne": true}}

	if q.Keyword != "" {
		pattern := regexp.QuoteMeta(q.Keyword)
		filter["$or"] = []bson.M{
			{"name": bson.M{"$regex": pattern, "$options": "i"}},
			{"brand": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
			{"tags": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Brand != "" {
		filter["brand"] = bson.M{"$regex": "^" + regexp.QuoteMeta(q.Brand) + "$", "$options": "i"}
	}

	price := bson.M{}
	if q.MinPrice != nil {
		price["$gte"] = *q.MinPrice
	}
	if q.MaxPrice != nil {
		price["$lte"] = *q.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	if q.MinRating != nil {
		filter["rating"] = bson.M{"$gte": *q.MinRating}
	}
	if q.InStock {
		filter["stock"] = bson.M{"$gt": 0}
	}
	return filter
}

func (q Query) SortSpec() bson.D {
	switch q.Sort {
	case SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case SortRating:
		return bson.D{{Key: "rating", Value: -1}, {Key: "reviewCount", Value: -1}, {Key: "_id", Value: 1}}
	case SortName:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	case SortPopular:
		return bson.D{{Key: "reviewCount", Value: -1}, {Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func parseFloat(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperror.BadRequest("%s must be a non-negative number", key)
	}
	return &v, nil
}
