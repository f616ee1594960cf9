// Package reviews computes product rating aggregates from individual reviews.
package reviews

import (
	"strings"

	"github.com/shopspring/decimal"

	"peakhive/internal/apperror"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Summary is what a product stores about its reviews.
type Summary struct {
	Rating float64
	Count  int
}

// Aggregate is a full re-scan: the arithmetic mean of ratings, 0 when empty.
func Aggregate(ratings []int) Summary {
	if len(ratings) == 0 {
		return Summary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(ratings))))
	return Summary{
		Rating: mean.InexactFloat64(),
		Count:  len(ratings),
	}
}

// Input is a review submission.
type Input struct {
	Rating  int
	Title   string
	Comment string
}

func (in Input) Validate() error {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return apperror.BadRequest("Rating must be between %d and %d", MinRating, MaxRating)
	}
	if strings.TrimSpace(in.Comment) == "" {
		return apperror.BadRequest("Comment is required")
	}
	return nil
}

// ErrAlreadyReviewed is returned for a second review of the same product.
var ErrAlreadyReviewed = apperror.BadRequest("Product already reviewed")
