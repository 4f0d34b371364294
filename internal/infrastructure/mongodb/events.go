package mongodb

import (
	"context"
	"fmt"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/kafka"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/outbox"
)

const aggregateType = "OrderFulfillmentRequest"

// toOutboxEvents converts pending domain events of ofr into outbox rows
func toOutboxEvents(ctx context.Context, factory *cloudevents.EventFactory, ofr *domain.OrderFulfillmentRequest) ([]*outbox.OutboxEvent, error) {
	events := ofr.DomainEvents()
	out := make([]*outbox.OutboxEvent, 0, len(events))

	for _, event := range events {
		var (
			ce    *cloudevents.WMSCloudEvent
			topic string
		)
		switch e := event.(type) {
		case *domain.FulfillmentEvent:
			ce = factory.CreateFulfillmentEvent(ctx, e.EventType(), cloudevents.FulfillmentEventData{
				FulfillmentID:   e.AggregateID(),
				AccountID:       e.AccountID,
				ExternalOrderID: e.ExternalOrderID,
				FulfillmentType: e.FulfillmentType,
				Status:          e.Status,
				PreviousStatus:  e.PreviousStatus,
				Reason:          e.Reason,
				GINNumber:       e.GINNumber,
				TotalUnits:      e.TotalUnits,
			})
			topic = kafka.Topics.FulfillmentEvents
		case *domain.InventoryDebitedEvent:
			ce = factory.CreateInventoryDebitedEvent(ctx, cloudevents.InventoryDebitedData{
				FulfillmentID:  e.AggregateID(),
				BucketID:       e.Debit.BucketID,
				SKUID:          e.Debit.SKUID,
				Quantity:       e.Debit.Quantity,
				BeforeQuantity: e.Debit.BeforeQuantity,
				AfterQuantity:  e.Debit.AfterQuantity,
				TransactionID:  e.Debit.TransactionID,
			})
			topic = kafka.Topics.InventoryEvents
		default:
			continue
		}

		row, err := outbox.NewOutboxEventFromCloudEvent(ofr.FulfillmentID, aggregateType, topic, ce)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		out = append(out, row)
	}
	return out, nil
}
