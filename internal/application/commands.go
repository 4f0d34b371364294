package application

import (
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

// PackageInput declares one package being shipped
type PackageInput struct {
	Barcode    string
	Dimensions *domain.Dimensions
	Weight     float64
}

// ShippingInput carries carrier details supplied by the caller
type ShippingInput struct {
	CarrierCode   string
	ServiceType   string
	ShipToName    string
	ShipToAddress *domain.Address
	AWBNumber     string
	VehicleNumber string
	DriverName    string
	CreateLabel   bool
}

// TaskBasedLineInput is one line of a task-based order
type TaskBasedLineInput struct {
	LineItemID string
	SKUID      string
	ItemType   string
	Quantity   int
}

// CreateTaskBasedCommand creates a task-based OFR that warehouse tasks will pick
type CreateTaskBasedCommand struct {
	AccountID         string
	ExternalOrderID   string
	FulfillmentSource string
	ExecutionApproach domain.ExecutionApproach
	LineItems         []TaskBasedLineInput
	Shipping          *ShippingInput
}

// PickedPackageInput is one package closed during picking
type PickedPackageInput struct {
	Barcode      string
	Dimensions   *domain.Dimensions
	Weight       float64
	ItemBarcodes []string
}

// PickupDoneCommand reconciles picked storage items against a task-based OFR
type PickupDoneCommand struct {
	FulfillmentID string
	Packages      []PickedPackageInput
}

// QuantitySourceInput declares inventory consumed by a quantity-based line
type QuantitySourceInput struct {
	BucketID       string
	ContainerID    string
	LocationID     string
	PackageBarcode string
	QuantityPicked int
}

// QuantityLineInput is one line of a quantity-based OFR
type QuantityLineInput struct {
	LineItemID          string
	SKUID               string
	ItemType            string
	OrderedQuantity     int
	TotalQuantityPicked int
	Sources             []QuantitySourceInput
}

// CreateQuantityBasedCommand records a fulfillment that was picked outside task flows
type CreateQuantityBasedCommand struct {
	AccountID         string
	ExternalOrderID   string
	FulfillmentSource string
	LineItems         []QuantityLineInput
	Packages          []PackageInput
	Shipping          *ShippingInput
	MarkShipped       bool
}

// PackageBarcodesCommand targets packages of one OFR
type PackageBarcodesCommand struct {
	FulfillmentID   string
	PackageBarcodes []string
	VehicleNumber   string
	DriverName      string
}

// MarkGINSentCommand records the GIN notification
type MarkGINSentCommand struct {
	FulfillmentID string
	Recipients    []string
}

// UpdateStatusCommand applies a generic status change
type UpdateStatusCommand struct {
	FulfillmentID string
	Status        domain.Status
	Reason        string
}

// CancelCommand cancels an OFR
type CancelCommand struct {
	FulfillmentID string
	Reason        string
}

// ListFulfillmentsQuery lists OFRs with filters and pagination
type ListFulfillmentsQuery struct {
	AccountID       string
	Status          domain.Status
	FulfillmentType domain.FulfillmentType
	Page            int64
	PageSize        int64
}

// StageQuery lists OFRs in one dashboard stage
type StageQuery struct {
	Stage    domain.Stage
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int64
	PageSize int64
}
