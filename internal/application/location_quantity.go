package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
)

// locationAdapter debits buckets location by location
type locationAdapter struct{}

func (locationAdapter) fulfillmentType() domain.FulfillmentType {
	return domain.FulfillmentTypeLocationQuantity
}

func (locationAdapter) unitKey(c sourceClaim) string {
	return c.BucketID + "@" + c.LocationID
}

func (locationAdapter) validateClaim(c sourceClaim) error {
	if c.LocationID == "" {
		return errors.ErrValidation(fmt.Sprintf("source %s must declare a location", c.BucketID)).
			WithDetail("bucketId", c.BucketID)
	}
	if c.ContainerID != "" {
		return errors.ErrValidation(fmt.Sprintf("source %s is location-sourced and cannot declare container %s", c.BucketID, c.ContainerID)).
			WithDetails(map[string]string{"bucketId": c.BucketID, "containerId": c.ContainerID})
	}
	return nil
}

func (locationAdapter) verify(src debitSource, bucket Bucket) error {
	for _, loc := range src.breakdown() {
		held, ok := bucket.LocationQuantity(loc.LocationID)
		if !ok {
			return errors.ErrValidation(fmt.Sprintf("bucket %s holds nothing at location %s", bucket.BucketID, loc.LocationID)).
				WithDetails(map[string]string{"bucketId": bucket.BucketID, "locationId": loc.LocationID})
		}
		if loc.Quantity > held {
			return errors.ErrInsufficientInventory(bucket.BucketID, loc.Quantity, held).
				WithDetail("locationId", loc.LocationID)
		}
	}
	if requested := src.quantity(); requested > bucket.AvailableQuantity {
		return errors.ErrInsufficientInventory(bucket.BucketID, requested, bucket.AvailableQuantity)
	}
	return nil
}

func (locationAdapter) debit(ctx context.Context, inv InventoryGateway, src debitSource, reference string) (*DebitResult, error) {
	return inv.DebitBucketLocations(ctx, LocationDebitRequest{
		BucketID:  src.BucketID,
		Breakdown: src.breakdown(),
		Reference: reference,
	})
}

func (locationAdapter) transactionBreakdown(src debitSource) []domain.LocationQuantity {
	return src.breakdown()
}

// CreateLocationQuantity records a fulfillment picked from declared bucket locations
func (s *FulfillmentService) CreateLocationQuantity(ctx context.Context, cmd CreateQuantityBasedCommand) (*ReservationSummaryDTO, error) {
	return s.createQuantityBased(ctx, locationAdapter{}, cmd)
}
