package cloudevents

import (
	"time"
)

// Fulfillment event types
const (
	FulfillmentCreated       = "wms.fulfillment.created"
	FulfillmentAllocated     = "wms.fulfillment.allocated"
	FulfillmentPicked        = "wms.fulfillment.picked"
	FulfillmentReadyToShip   = "wms.fulfillment.ready-to-ship"
	FulfillmentShipped       = "wms.fulfillment.shipped"
	FulfillmentDelivered     = "wms.fulfillment.delivered"
	FulfillmentCancelled     = "wms.fulfillment.cancelled"
	FulfillmentStatusChanged = "wms.fulfillment.status-changed"
	GINIssued                = "wms.fulfillment.gin-issued"
	GINNotificationSent      = "wms.fulfillment.gin-notification-sent"
	InventoryDebited         = "wms.fulfillment.inventory-debited"
)

// SourceOutboundFulfillment is the CloudEvents source of this service
const SourceOutboundFulfillment = "/wms/outbound-fulfillment-service"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	TenantID      string `json:"wmstenantid,omitempty"`
	FacilityID    string `json:"wmsfacilityid,omitempty"`
	WarehouseID   string `json:"wmswarehouseid,omitempty"`
	TraceParent   string `json:"traceparent,omitempty"`
	TraceState    string `json:"tracestate,omitempty"`
}

// FulfillmentEventData is the payload shared by fulfillment lifecycle events
type FulfillmentEventData struct {
	FulfillmentID   string `json:"fulfillmentId"`
	AccountID       string `json:"accountId"`
	ExternalOrderID string `json:"externalOrderId,omitempty"`
	FulfillmentType string `json:"fulfillmentType"`
	Status          string `json:"status"`
	PreviousStatus  string `json:"previousStatus,omitempty"`
	Reason          string `json:"reason,omitempty"`
	GINNumber       string `json:"ginNumber,omitempty"`
	TotalUnits      int    `json:"totalUnits,omitempty"`
}

// InventoryDebitedData records one applied inventory debit
type InventoryDebitedData struct {
	FulfillmentID  string `json:"fulfillmentId"`
	BucketID       string `json:"bucketId"`
	SKUID          string `json:"skuId"`
	Quantity       int    `json:"quantity"`
	BeforeQuantity int    `json:"beforeQuantity"`
	AfterQuantity  int    `json:"afterQuantity"`
	TransactionID  string `json:"transactionId,omitempty"`
}
