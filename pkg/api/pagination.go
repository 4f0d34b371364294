package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// MaxPageSize caps every list endpoint
const MaxPageSize = 100

// PageRequest represents pagination request parameters
type PageRequest struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"pageSize"`
}

// PageResponse represents a paginated response
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse creates a new paginated response
func NewPageResponse[T any](data []T, page, pageSize, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// ParsePagination parses pagination parameters from Gin context
func ParsePagination(c *gin.Context) PageRequest {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	pageSize, _ := strconv.ParseInt(c.DefaultQuery("pageSize", "20"), 10, 64)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return PageRequest{Page: page, PageSize: pageSize}
}

// FilterRequest represents common list filters
type FilterRequest struct {
	Search   string
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// ParseFilter parses search, status and an RFC3339 or YYYY-MM-DD date range.
// An unparseable date is reported by name so the caller can reject the request.
func ParseFilter(c *gin.Context) (FilterRequest, string) {
	f := FilterRequest{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}

	var ok bool
	if f.DateFrom, ok = parseDate(c.Query("dateFrom"), false); !ok {
		return f, "dateFrom"
	}
	if f.DateTo, ok = parseDate(c.Query("dateTo"), true); !ok {
		return f, "dateTo"
	}
	return f, ""
}

func parseDate(raw string, endOfDay bool) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, true
}
