package application

import (
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

// FulfillmentDTO is the full read view of an OFR
type FulfillmentDTO struct {
	FulfillmentID         string                        `json:"fulfillmentId"`
	AccountID             string                        `json:"accountId"`
	AccountName           string                        `json:"accountName,omitempty"`
	ExternalOrderID       string                        `json:"externalOrderId,omitempty"`
	FulfillmentSource     string                        `json:"fulfillmentSource,omitempty"`
	FulfillmentType       string                        `json:"fulfillmentType"`
	ExecutionApproach     string                        `json:"executionApproach,omitempty"`
	Status                string                        `json:"status"`
	Stage                 string                        `json:"stage"`
	FulfillmentStatus     domain.StatusEntry            `json:"fulfillmentStatus"`
	StatusHistory         []domain.StatusEntry          `json:"statusHistory"`
	LineItems             []domain.LineItem             `json:"lineItems"`
	Packages              []domain.Package              `json:"packages"`
	QuantitySourceDetails *domain.QuantitySourceDetails `json:"quantitySourceDetails,omitempty"`
	ShippingDetails       *domain.ShippingDetails       `json:"shippingDetails,omitempty"`
	TaskReferences        domain.TaskReferences         `json:"taskReferences"`
	Tasks                 []Task                        `json:"tasks,omitempty"`
	GINNumber             string                        `json:"ginNumber,omitempty"`
	GINNotification       *domain.GINNotification       `json:"ginNotification,omitempty"`
	CancellationReason    string                        `json:"cancellationReason,omitempty"`
	TotalUnits            int                           `json:"totalUnits"`
	TenantID              string                        `json:"tenantId,omitempty"`
	FacilityID            string                        `json:"facilityId,omitempty"`
	WarehouseID           string                        `json:"warehouseId,omitempty"`
	CreatedAt             time.Time                     `json:"createdAt"`
	UpdatedAt             time.Time                     `json:"updatedAt"`
	CreatedBy             string                        `json:"createdBy,omitempty"`
	UpdatedBy             string                        `json:"updatedBy,omitempty"`
}

// FulfillmentListDTO is the compact list view of an OFR
type FulfillmentListDTO struct {
	FulfillmentID   string    `json:"fulfillmentId"`
	AccountID       string    `json:"accountId"`
	AccountName     string    `json:"accountName,omitempty"`
	ExternalOrderID string    `json:"externalOrderId,omitempty"`
	FulfillmentType string    `json:"fulfillmentType"`
	Status          string    `json:"status"`
	Stage           string    `json:"stage"`
	TotalUnits      int       `json:"totalUnits"`
	TotalPackages   int       `json:"totalPackages"`
	GINNumber       string    `json:"ginNumber,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PagedResult is one page of list results
type PagedResult[T any] struct {
	Items      []T
	Page       int64
	PageSize   int64
	TotalItems int64
}

// InventoryReductionDTO is one row of the reduction ledger
type InventoryReductionDTO struct {
	BucketID          string                    `json:"bucketId"`
	SKUID             string                    `json:"skuId"`
	ContainerID       string                    `json:"containerId,omitempty"`
	LocationBreakdown []domain.LocationQuantity `json:"locationBreakdown,omitempty"`
	Quantity          int                       `json:"quantity"`
	BeforeQuantity    int                       `json:"beforeQuantity"`
	AfterQuantity     int                       `json:"afterQuantity"`
	TransactionID     string                    `json:"transactionId,omitempty"`
}

// ShippingSummaryDTO reports shipping identifiers after creation
type ShippingSummaryDTO struct {
	CarrierCode    string `json:"carrierCode,omitempty"`
	AWBNumber      string `json:"awbNumber,omitempty"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	LabelURL       string `json:"labelUrl,omitempty"`
	LabelStatus    string `json:"labelStatus"`
}

// ReservationSummaryDTO is returned by the quantity-based create operations
type ReservationSummaryDTO struct {
	FulfillmentID             string                  `json:"fulfillmentId"`
	GINNumber                 string                  `json:"ginNumber,omitempty"`
	FulfillmentType           string                  `json:"fulfillmentType"`
	Status                    string                  `json:"status"`
	TotalUnits                int                     `json:"totalUnits"`
	TotalLineItems            int                     `json:"totalLineItems"`
	TotalPackages             int                     `json:"totalPackages"`
	TotalContainerSourcesUsed int                     `json:"totalContainerSourcesUsed,omitempty"`
	TotalLocationSourcesUsed  int                     `json:"totalLocationSourcesUsed,omitempty"`
	TransactionsCreated       int                     `json:"transactionsCreated"`
	Reductions                []InventoryReductionDTO `json:"reductions"`
	Shipping                  ShippingSummaryDTO      `json:"shipping"`
}

// TaskBasedSummaryDTO is returned when a task-based OFR is created
type TaskBasedSummaryDTO struct {
	FulfillmentID     string                                 `json:"fulfillmentId"`
	Status            string                                 `json:"status"`
	ExecutionApproach string                                 `json:"executionApproach"`
	TaskCode          string                                 `json:"taskCode"`
	TaskKind          string                                 `json:"taskKind"`
	TotalLineItems    int                                    `json:"totalLineItems"`
	TotalUnits        int                                    `json:"totalUnits"`
	Allocations       map[string][]domain.LocationAllocation `json:"allocations"`
}

// PickupDoneSummaryDTO is returned by pickup-done
type PickupDoneSummaryDTO struct {
	FulfillmentID       string                  `json:"fulfillmentId"`
	Status              string                  `json:"status"`
	PackMoveTaskCode    string                  `json:"packMoveTaskCode,omitempty"`
	TotalUnits          int                     `json:"totalUnits"`
	TotalPackages       int                     `json:"totalPackages"`
	TransactionsCreated int                     `json:"transactionsCreated"`
	Reductions          []InventoryReductionDTO `json:"reductions"`
}

// StageCountDTO is one row of the stage summary
type StageCountDTO struct {
	Stage string `json:"stage"`
	Count int64  `json:"count"`
}
