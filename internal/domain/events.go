package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
)

// DomainEvent is an event raised by the fulfillment aggregate
type DomainEvent interface {
	EventID() string
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// BaseDomainEvent carries the fields every event shares
type BaseDomainEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Aggregate string    `json:"aggregateId"`
	Timestamp time.Time `json:"timestamp"`
}

func newBase(eventType, aggregateID string) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Aggregate: aggregateID,
		Timestamp: time.Now().UTC(),
	}
}

func (e BaseDomainEvent) EventID() string       { return e.ID }
func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) AggregateID() string   { return e.Aggregate }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }

// FulfillmentEvent is raised on creation and on every status change
type FulfillmentEvent struct {
	BaseDomainEvent
	AccountID       string `json:"accountId"`
	ExternalOrderID string `json:"externalOrderId,omitempty"`
	FulfillmentType string `json:"fulfillmentType"`
	Status          string `json:"status"`
	PreviousStatus  string `json:"previousStatus,omitempty"`
	Reason          string `json:"reason,omitempty"`
	GINNumber       string `json:"ginNumber,omitempty"`
	TotalUnits      int    `json:"totalUnits,omitempty"`
}

func newFulfillmentEvent(eventType string, o *OrderFulfillmentRequest) *FulfillmentEvent {
	return &FulfillmentEvent{
		BaseDomainEvent: newBase(eventType, o.FulfillmentID),
		AccountID:       o.AccountID,
		ExternalOrderID: o.ExternalOrderID,
		FulfillmentType: string(o.FulfillmentType),
		Status:          string(o.Status()),
		GINNumber:       o.GINNumber,
		TotalUnits:      o.TotalUnits(),
	}
}

// NewFulfillmentCreatedEvent creates the creation event
func NewFulfillmentCreatedEvent(o *OrderFulfillmentRequest) *FulfillmentEvent {
	return newFulfillmentEvent(cloudevents.FulfillmentCreated, o)
}

// NewStatusChangedEvent picks the most specific event type for the new status
func NewStatusChangedEvent(o *OrderFulfillmentRequest, entry StatusEntry) *FulfillmentEvent {
	e := newFulfillmentEvent(statusEventType(entry.Status), o)
	e.PreviousStatus = string(entry.PreviousStatus)
	e.Reason = entry.Reason
	return e
}

// NewGINIssuedEvent creates the GIN issued event
func NewGINIssuedEvent(o *OrderFulfillmentRequest) *FulfillmentEvent {
	return newFulfillmentEvent(cloudevents.GINIssued, o)
}

// NewGINNotificationSentEvent creates the GIN notification sent event
func NewGINNotificationSentEvent(o *OrderFulfillmentRequest) *FulfillmentEvent {
	return newFulfillmentEvent(cloudevents.GINNotificationSent, o)
}

func statusEventType(s Status) string {
	switch s {
	case StatusAllocated:
		return cloudevents.FulfillmentAllocated
	case StatusPicked:
		return cloudevents.FulfillmentPicked
	case StatusReadyToShip:
		return cloudevents.FulfillmentReadyToShip
	case StatusShipped:
		return cloudevents.FulfillmentShipped
	case StatusDelivered:
		return cloudevents.FulfillmentDelivered
	case StatusCancelled:
		return cloudevents.FulfillmentCancelled
	default:
		return cloudevents.FulfillmentStatusChanged
	}
}

// InventoryDebit is one applied debit against an inventory bucket
type InventoryDebit struct {
	BucketID       string
	SKUID          string
	Quantity       int
	BeforeQuantity int
	AfterQuantity  int
	TransactionID  string
}

// InventoryDebitedEvent is raised for every applied debit
type InventoryDebitedEvent struct {
	BaseDomainEvent
	Debit InventoryDebit `json:"debit"`
}

// NewInventoryDebitedEvent creates an inventory debited event
func NewInventoryDebitedEvent(fulfillmentID string, debit InventoryDebit) *InventoryDebitedEvent {
	return &InventoryDebitedEvent{
		BaseDomainEvent: newBase(cloudevents.InventoryDebited, fulfillmentID),
		Debit:           debit,
	}
}
