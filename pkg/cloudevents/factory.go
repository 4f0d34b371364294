package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

// EventFactory creates CloudEvents for fulfillment domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new event stamped with tenant, correlation and trace context from ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	tc := tenant.FromContextOptional(ctx)
	event.TenantID = tc.TenantID
	event.FacilityID = tc.FacilityID
	event.WarehouseID = tc.WarehouseID

	if v, ok := ctx.Value(logging.CorrelationIDKey).(string); ok {
		event.CorrelationID = v
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateFulfillmentEvent creates a lifecycle event keyed by fulfillment id
func (f *EventFactory) CreateFulfillmentEvent(ctx context.Context, eventType string, data FulfillmentEventData) *WMSCloudEvent {
	return f.CreateEvent(ctx, eventType, "fulfillment/"+data.FulfillmentID, data)
}

// CreateInventoryDebitedEvent creates an event for one applied debit
func (f *EventFactory) CreateInventoryDebitedEvent(ctx context.Context, data InventoryDebitedData) *WMSCloudEvent {
	return f.CreateEvent(ctx, InventoryDebited, "fulfillment/"+data.FulfillmentID, data)
}
