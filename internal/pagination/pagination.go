// Package pagination parses page/limit query parameters.
package pagination

import (
	"math"
	"strconv"
	"strings"

	"peakhive/internal/apperror"
)

type Page struct {
	Number int64
	Limit  int64
}

func (p Page) Skip() int64 {
	return (p.Number - 1) * p.Limit
}

// Pages returns how many pages total items span at this page size.
func (p Page) Pages(total int64) int64 {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Parse validates page and limit. Empty values take the defaults and limit is
// clamped to max.
func Parse(pageStr, limitStr string, defaultLimit, max int64) (Page, error) {
	page := Page{Number: 1, Limit: defaultLimit}

	if s := strings.TrimSpace(pageStr); s != "" {
		p, err := strconv.ParseInt(s, 10, 64)
		if err != nil || p < 1 {
			return Page{}, apperror.BadRequest("invalid page parameter")
		}
		page.Number = p
	}

	if s := strings.TrimSpace(limitStr); s != "" {
		l, err := strconv.ParseInt(s, 10, 64)
		if err != nil || l < 1 {
			return Page{}, apperror.BadRequest("invalid limit parameter")
		}
		page.Limit = l
	}

	if max > 0 && page.Limit > max {
		page.Limit = max
	}
	if page.Number-1 > math.MaxInt64/page.Limit {
		return Page{}, apperror.BadRequest("invalid page parameter")
	}
	return page, nil
}
