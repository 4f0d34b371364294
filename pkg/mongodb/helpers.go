package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Now returns the current time in UTC truncated to what BSON dates can hold
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// SortDescending creates a descending sort option
func SortDescending(field string) bson.D {
	return bson.D{{Key: field, Value: -1}}
}

// Pagination represents pagination options
type Pagination struct {
	Page     int64
	PageSize int64
}

// NewPagination clamps page and pageSize into a usable range
func NewPagination(page, pageSize, maxPageSize int64) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if maxPageSize > 0 && pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// Skip returns the number of documents to skip
func (p *Pagination) Skip() int64 {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of documents to return
func (p *Pagination) Limit() int64 {
	return p.PageSize
}

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
