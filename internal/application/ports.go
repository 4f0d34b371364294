package application

import (
	"context"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

// TieBreakMethod orders candidate stock when several locations qualify
type TieBreakMethod string

const (
	TieBreakFIFO   TieBreakMethod = "FIFO"
	TieBreakLIFO   TieBreakMethod = "LIFO"
	TieBreakRandom TieBreakMethod = "RANDOM"
)

// AllocationRequest asks inventory for candidate locations of one SKU
type AllocationRequest struct {
	AccountID string         `json:"accountId"`
	SKUID     string         `json:"skuId"`
	Quantity  int            `json:"quantity"`
	TieBreak  TieBreakMethod `json:"tieBreakMethod"`
}

// BucketLocation is the quantity of a bucket held at one location
type BucketLocation struct {
	LocationID string `json:"locationId"`
	Quantity   int    `json:"quantity"`
}

// Bucket is an inventory pool of one SKU
type Bucket struct {
	BucketID          string           `json:"bucketId"`
	SKUID             string           `json:"skuId"`
	ContainerID       string           `json:"containerId,omitempty"`
	AvailableQuantity int              `json:"availableQuantity"`
	Locations         []BucketLocation `json:"locations,omitempty"`
}

// LocationQuantity returns what the bucket holds at locationID
func (b Bucket) LocationQuantity(locationID string) (int, bool) {
	for _, l := range b.Locations {
		if l.LocationID == locationID {
			return l.Quantity, true
		}
	}
	return 0, false
}

// DebitRequest removes quantity from a single bucket
type DebitRequest struct {
	BucketID  string `json:"bucketId"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference"`
}

// LocationDebitRequest removes quantity from a bucket location by location
type LocationDebitRequest struct {
	BucketID  string                    `json:"bucketId"`
	Breakdown []domain.LocationQuantity `json:"breakdown"`
	Reference string                    `json:"reference"`
}

// DebitResult captures the bucket quantity around a debit
type DebitResult struct {
	BucketID       string `json:"bucketId"`
	BeforeQuantity int    `json:"beforeQuantity"`
	AfterQuantity  int    `json:"afterQuantity"`
}

// StorageItem is a single barcoded unit in storage
type StorageItem struct {
	StorageItemID string `json:"storageItemId"`
	Barcode       string `json:"barcode"`
	SKUID         string `json:"skuId"`
	BucketID      string `json:"bucketId"`
	LocationID    string `json:"locationId,omitempty"`
}

// TransactionRequest is the audit record of one debit
type TransactionRequest struct {
	TransactionType   string                    `json:"transactionType"`
	AccountID         string                    `json:"accountId"`
	BucketID          string                    `json:"bucketId"`
	SKUID             string                    `json:"skuId"`
	Quantity          int                       `json:"quantity"`
	BeforeQuantity    int                       `json:"beforeQuantity"`
	AfterQuantity     int                       `json:"afterQuantity"`
	LocationBreakdown []domain.LocationQuantity `json:"locationBreakdown,omitempty"`
	Reference         string                    `json:"reference"`
}

// InventoryGateway is the inventory service
type InventoryGateway interface {
	AllocateLocations(ctx context.Context, req AllocationRequest) ([]domain.LocationAllocation, error)
	GetBuckets(ctx context.Context, bucketIDs []string) ([]Bucket, error)
	DebitBucket(ctx context.Context, req DebitRequest) (*DebitResult, error)
	DebitBucketLocations(ctx context.Context, req LocationDebitRequest) (*DebitResult, error)
	ConsumePackageBarcodes(ctx context.Context, barcodes []string) error
	LookupStorageItems(ctx context.Context, barcodes []string) ([]StorageItem, error)
	CreateTransaction(ctx context.Context, req TransactionRequest) (string, error)
}

// SKU is the catalog view this service needs
type SKU struct {
	SKUID          string         `json:"skuId"`
	Name           string         `json:"name,omitempty"`
	TieBreakMethod TieBreakMethod `json:"tieBreakMethod,omitempty"`
}

// ProductGateway is the catalog service
type ProductGateway interface {
	GetSKUs(ctx context.Context, ids []string, fields []string) ([]SKU, error)
}

// TaskLine is one line of work in a warehouse task
type TaskLine struct {
	LineItemID string                      `json:"lineItemId"`
	SKUID      string                      `json:"skuId"`
	Quantity   int                         `json:"quantity"`
	Locations  []domain.LocationAllocation `json:"locations,omitempty"`
}

// TaskPayload describes the work of a warehouse task
type TaskPayload struct {
	FulfillmentID string     `json:"fulfillmentId"`
	AccountID     string     `json:"accountId"`
	Lines         []TaskLine `json:"lines,omitempty"`
	Packages      []string   `json:"packageBarcodes,omitempty"`
}

// Task is a warehouse task as the task service reports it
type Task struct {
	Code   string `json:"taskCode"`
	Kind   string `json:"taskKind"`
	Status string `json:"status"`
}

// TaskGateway is the task service
type TaskGateway interface {
	CreateTask(ctx context.Context, kind string, payload TaskPayload) (string, error)
	GetTask(ctx context.Context, code string) (*Task, error)
}

// AccountGateway resolves account display names
type AccountGateway interface {
	GetAccountNames(ctx context.Context, ids []string) (map[string]string, error)
}

// LabelRequest asks the carrier for a shipping label
type LabelRequest struct {
	FulfillmentID   string           `json:"fulfillmentId"`
	CarrierCode     string           `json:"carrierCode"`
	ServiceType     string           `json:"serviceType,omitempty"`
	ShipToName      string           `json:"shipToName"`
	ShipToAddress   *domain.Address  `json:"shipToAddress,omitempty"`
	PackageBarcodes []string         `json:"packageBarcodes"`
	Packages        []domain.Package `json:"packages,omitempty"`
}

// Label is a created shipping label
type Label struct {
	AWBNumber      string `json:"awbNumber"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
	LabelURL       string `json:"labelUrl,omitempty"`
}

// ShippingGateway creates carrier labels
type ShippingGateway interface {
	CreateLabel(ctx context.Context, req LabelRequest) (*Label, error)
}

// SequenceAllocator hands out formatted identifiers from persistent counters
type SequenceAllocator interface {
	Allocate(ctx context.Context, seq domain.Sequence) (string, error)
	Reset(ctx context.Context, name string, value int64) error
	Current(ctx context.Context, name string) (int64, error)
}
