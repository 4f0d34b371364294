package domain

import (
	"context"
	"errors"
	"time"
)

// DuplicateKeyError reports a unique index collision on persist
type DuplicateKeyError struct {
	Field string
	Value string
}

func (e *DuplicateKeyError) Error() string {
	if e.Value == "" {
		return "duplicate " + e.Field
	}
	return "duplicate " + e.Field + " " + e.Value
}

// AsDuplicateKey extracts a DuplicateKeyError from err
func AsDuplicateKey(err error) (*DuplicateKeyError, bool) {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}

// Pagination holds paging parameters
type Pagination struct {
	Page     int64
	PageSize int64
}

// ListFilter narrows a fulfillment listing
type ListFilter struct {
	AccountID       string
	Status          Status
	FulfillmentType FulfillmentType
}

// StageQuery narrows a by-stage listing
type StageQuery struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// FulfillmentRepository persists fulfillment aggregates in the tenant's datastore
type FulfillmentRepository interface {
	// Create inserts a new aggregate. Unique collisions return *DuplicateKeyError.
	Create(ctx context.Context, ofr *OrderFulfillmentRequest) error

	// Save replaces an existing aggregate, guarded by its version
	Save(ctx context.Context, ofr *OrderFulfillmentRequest) error

	// FindByID returns ErrFulfillmentNotFound when absent
	FindByID(ctx context.Context, fulfillmentID string) (*OrderFulfillmentRequest, error)

	// List returns a page and the total match count
	List(ctx context.Context, filter ListFilter, page Pagination) ([]*OrderFulfillmentRequest, int64, error)

	// FindByStage returns a page of aggregates currently in stage
	FindByStage(ctx context.Context, stage Stage, query StageQuery, page Pagination) ([]*OrderFulfillmentRequest, int64, error)

	// CountByStage counts aggregates per queryable stage
	CountByStage(ctx context.Context) (map[Stage]int64, error)
}
