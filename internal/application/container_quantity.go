package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
)

// containerAdapter debits whole-bucket quantities from declared containers
type containerAdapter struct{}

func (containerAdapter) fulfillmentType() domain.FulfillmentType {
	return domain.FulfillmentTypeContainerQuantity
}

func (containerAdapter) unitKey(c sourceClaim) string {
	return c.BucketID
}

func (containerAdapter) validateClaim(c sourceClaim) error {
	if c.ContainerID == "" {
		return errors.ErrValidation(fmt.Sprintf("source %s must declare a container", c.BucketID)).
			WithDetail("bucketId", c.BucketID)
	}
	return nil
}

func (containerAdapter) verify(src debitSource, bucket Bucket) error {
	for _, c := range src.Claims {
		if c.ContainerID != bucket.ContainerID {
			return errors.ErrValidation(fmt.Sprintf("bucket %s is in container %s, not %s", bucket.BucketID, bucket.ContainerID, c.ContainerID)).
				WithDetail("bucketId", bucket.BucketID)
		}
	}
	if requested := src.quantity(); requested > bucket.AvailableQuantity {
		return errors.ErrInsufficientInventory(bucket.BucketID, requested, bucket.AvailableQuantity)
	}
	return nil
}

func (containerAdapter) debit(ctx context.Context, inv InventoryGateway, src debitSource, reference string) (*DebitResult, error) {
	return inv.DebitBucket(ctx, DebitRequest{
		BucketID:  src.BucketID,
		Quantity:  src.quantity(),
		Reference: reference,
	})
}

func (containerAdapter) transactionBreakdown(debitSource) []domain.LocationQuantity {
	return nil
}

// CreateContainerQuantity records a fulfillment picked from declared containers
func (s *FulfillmentService) CreateContainerQuantity(ctx context.Context, cmd CreateQuantityBasedCommand) (*ReservationSummaryDTO, error) {
	return s.createQuantityBased(ctx, containerAdapter{}, cmd)
}
