package dto

import (
	"github.com/wms-platform/outbound-fulfillment-service/internal/application"
	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/api"
)

// AddressRequest represents a ship-to address in the request
type AddressRequest struct {
	Line1      string `json:"line1" binding:"required" example:"1 Dock Rd"`
	Line2      string `json:"line2" example:"Unit 4"`
	City       string `json:"city" binding:"required" example:"Rotterdam"`
	State      string `json:"state" example:"ZH"`
	PostalCode string `json:"postalCode" binding:"required" example:"3011"`
	Country    string `json:"country" binding:"required,len=2" example:"NL"`
}

// DimensionsRequest represents package dimensions in centimetres
type DimensionsRequest struct {
	Length float64 `json:"length" binding:"gt=0" example:"40"`
	Width  float64 `json:"width" binding:"gt=0" example:"30"`
	Height float64 `json:"height" binding:"gt=0" example:"20"`
}

// ShippingRequest carries carrier details
type ShippingRequest struct {
	CarrierCode   string          `json:"carrierCode" example:"DHL"`
	ServiceType   string          `json:"serviceType" example:"EXPRESS"`
	ShipToName    string          `json:"shipToName" example:"Acme Retail"`
	ShipToAddress *AddressRequest `json:"shipToAddress"`
	AWBNumber     string          `json:"awbNumber" example:"AWB-0001"`
	VehicleNumber string          `json:"vehicleNumber" example:"TRK-12"`
	DriverName    string          `json:"driverName" example:"J. Jansen"`
	CreateLabel   bool            `json:"createLabel"`
}

// PackageRequest declares one outbound package
type PackageRequest struct {
	Barcode    string             `json:"barcode" binding:"required,barcode" example:"PKG-0001"`
	Dimensions *DimensionsRequest `json:"dimensions"`
	Weight     float64            `json:"weight" binding:"min=0" example:"2.5"`
}

// TaskBasedLineRequest is one line of a task-based order
type TaskBasedLineRequest struct {
	LineItemID string `json:"lineItemId" binding:"required" example:"L1"`
	SKUID      string `json:"skuId" binding:"required,sku" example:"SKU-12345"`
	ItemType   string `json:"itemType" example:"EACH"`
	Quantity   int    `json:"quantity" binding:"required,min=1" example:"3"`
}

// CreateTaskBasedRequest creates a task-based OFR
type CreateTaskBasedRequest struct {
	AccountID         string                 `json:"accountId" binding:"required" example:"ACC-1"`
	ExternalOrderID   string                 `json:"externalOrderId" example:"SO-991"`
	FulfillmentSource string                 `json:"fulfillmentSource" example:"ERP"`
	ExecutionApproach string                 `json:"executionApproach" binding:"required,oneof=SEPARATED_PICKING PICK_PACK_MOVE_TOGETHER" example:"SEPARATED_PICKING"`
	LineItems         []TaskBasedLineRequest `json:"lineItems" binding:"required,min=1,dive"`
	Shipping          *ShippingRequest       `json:"shipping"`
}

// QuantitySourceRequest is one inventory source consumed by a quantity-based line.
// Container fulfillments name a containerId, location fulfillments a locationId.
type QuantitySourceRequest struct {
	BucketID       string `json:"bucketId" binding:"required" example:"BKT-1"`
	ContainerID    string `json:"containerId" example:"CNT-7"`
	LocationID     string `json:"locationId" example:"A-01-02"`
	PackageBarcode string `json:"packageBarcode" binding:"required,barcode" example:"PKG-0001"`
	QuantityPicked int    `json:"quantityPicked" binding:"required,min=1" example:"3"`
}

// QuantityLineRequest is one line of a quantity-based OFR
type QuantityLineRequest struct {
	LineItemID          string                  `json:"lineItemId" binding:"required" example:"L1"`
	SKUID               string                  `json:"skuId" binding:"required,sku" example:"SKU-12345"`
	ItemType            string                  `json:"itemType" example:"EACH"`
	OrderedQuantity     int                     `json:"orderedQuantity" binding:"required,min=1" example:"5"`
	TotalQuantityPicked int                     `json:"totalQuantityPicked" binding:"required,min=1" example:"5"`
	Sources             []QuantitySourceRequest `json:"sources" binding:"required,min=1,dive"`
}

// CreateQuantityBasedRequest creates a container- or location-quantity OFR
type CreateQuantityBasedRequest struct {
	AccountID         string                `json:"accountId" binding:"required" example:"ACC-1"`
	ExternalOrderID   string                `json:"externalOrderId" example:"SO-991"`
	FulfillmentSource string                `json:"fulfillmentSource" example:"POS"`
	LineItems         []QuantityLineRequest `json:"lineItems" binding:"required,min=1,dive"`
	Packages          []PackageRequest      `json:"packages" binding:"required,min=1,dive"`
	Shipping          *ShippingRequest      `json:"shipping"`
	MarkShipped       bool                  `json:"markShipped"`
}

// PickedPackageRequest is one package closed during picking
type PickedPackageRequest struct {
	Barcode      string             `json:"barcode" binding:"required,barcode" example:"PKG-0001"`
	Dimensions   *DimensionsRequest `json:"dimensions"`
	Weight       float64            `json:"weight" binding:"min=0" example:"2.5"`
	ItemBarcodes []string           `json:"itemBarcodes" binding:"required,min=1,dive,barcode"`
}

// PickupDoneRequest reports the packages picked for a task-based OFR
type PickupDoneRequest struct {
	Packages []PickedPackageRequest `json:"packages" binding:"required,min=1,dive"`
}

// PackageBarcodesRequest targets packages at dispatch or loading
type PackageBarcodesRequest struct {
	PackageBarcodes []string `json:"packageBarcodes" binding:"required,min=1,dive,barcode"`
	VehicleNumber   string   `json:"vehicleNumber" example:"TRK-12"`
	DriverName      string   `json:"driverName" example:"J. Jansen"`
}

// GINSentRequest records who received the goods issue note
type GINSentRequest struct {
	Recipients []string `json:"recipients" binding:"omitempty,dive,required"`
}

// UpdateStatusRequest applies a generic status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"ON_HOLD"`
	Reason string `json:"reason" binding:"max=500" example:"Customer requested hold"`
}

// CancelRequest cancels an OFR
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500" example:"Order withdrawn"`
}

// ResetSequenceRequest sets a sequence counter
type ResetSequenceRequest struct {
	Value *int64 `json:"value" binding:"required,min=0" example:"0"`
}

// StageSummaryResponse lists the count of OFRs per stage
type StageSummaryResponse struct {
	Stages []application.StageCountDTO `json:"stages"`
	Total  int64                       `json:"total"`
}

// ToCommand maps the request onto the create command
func (r CreateTaskBasedRequest) ToCommand() application.CreateTaskBasedCommand {
	lines := make([]application.TaskBasedLineInput, 0, len(r.LineItems))
	for _, l := range r.LineItems {
		lines = append(lines, application.TaskBasedLineInput{
			LineItemID: l.LineItemID,
			SKUID:      l.SKUID,
			ItemType:   l.ItemType,
			Quantity:   l.Quantity,
		})
	}
	return application.CreateTaskBasedCommand{
		AccountID:         r.AccountID,
		ExternalOrderID:   r.ExternalOrderID,
		FulfillmentSource: r.FulfillmentSource,
		ExecutionApproach: domain.ExecutionApproach(r.ExecutionApproach),
		LineItems:         lines,
		Shipping:          r.Shipping.toInput(),
	}
}

// ToCommand maps the request onto the quantity-based create command
func (r CreateQuantityBasedRequest) ToCommand() application.CreateQuantityBasedCommand {
	lines := make([]application.QuantityLineInput, 0, len(r.LineItems))
	for _, l := range r.LineItems {
		sources := make([]application.QuantitySourceInput, 0, len(l.Sources))
		for _, s := range l.Sources {
			sources = append(sources, application.QuantitySourceInput{
				BucketID:       s.BucketID,
				ContainerID:    s.ContainerID,
				LocationID:     s.LocationID,
				PackageBarcode: s.PackageBarcode,
				QuantityPicked: s.QuantityPicked,
			})
		}
		lines = append(lines, application.QuantityLineInput{
			LineItemID:          l.LineItemID,
			SKUID:               l.SKUID,
			ItemType:            l.ItemType,
			OrderedQuantity:     l.OrderedQuantity,
			TotalQuantityPicked: l.TotalQuantityPicked,
			Sources:             sources,
		})
	}

	packages := make([]application.PackageInput, 0, len(r.Packages))
	for _, p := range r.Packages {
		packages = append(packages, application.PackageInput{
			Barcode:    p.Barcode,
			Dimensions: p.Dimensions.toDomain(),
			Weight:     p.Weight,
		})
	}

	return application.CreateQuantityBasedCommand{
		AccountID:         r.AccountID,
		ExternalOrderID:   r.ExternalOrderID,
		FulfillmentSource: r.FulfillmentSource,
		LineItems:         lines,
		Packages:          packages,
		Shipping:          r.Shipping.toInput(),
		MarkShipped:       r.MarkShipped,
	}
}

// ToCommand maps the request onto the pickup-done command
func (r PickupDoneRequest) ToCommand(fulfillmentID string) application.PickupDoneCommand {
	packages := make([]application.PickedPackageInput, 0, len(r.Packages))
	for _, p := range r.Packages {
		packages = append(packages, application.PickedPackageInput{
			Barcode:      p.Barcode,
			Dimensions:   p.Dimensions.toDomain(),
			Weight:       p.Weight,
			ItemBarcodes: p.ItemBarcodes,
		})
	}
	return application.PickupDoneCommand{FulfillmentID: fulfillmentID, Packages: packages}
}

// ToCommand maps the request onto a package barcodes command
func (r PackageBarcodesRequest) ToCommand(fulfillmentID string) application.PackageBarcodesCommand {
	return application.PackageBarcodesCommand{
		FulfillmentID:   fulfillmentID,
		PackageBarcodes: r.PackageBarcodes,
		VehicleNumber:   r.VehicleNumber,
		DriverName:      r.DriverName,
	}
}

func (s *ShippingRequest) toInput() *application.ShippingInput {
	if s == nil {
		return nil
	}
	return &application.ShippingInput{
		CarrierCode:   s.CarrierCode,
		ServiceType:   s.ServiceType,
		ShipToName:    s.ShipToName,
		ShipToAddress: s.ShipToAddress.toDomain(),
		AWBNumber:     s.AWBNumber,
		VehicleNumber: s.VehicleNumber,
		DriverName:    s.DriverName,
		CreateLabel:   s.CreateLabel,
	}
}

func (a *AddressRequest) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func (d *DimensionsRequest) toDomain() *domain.Dimensions {
	if d == nil {
		return nil
	}
	return &domain.Dimensions{Length: d.Length, Width: d.Width, Height: d.Height}
}

// ToPageResponse converts a page of results into the list envelope
func ToPageResponse[T any](r *application.PagedResult[T]) api.PageResponse[T] {
	return api.NewPageResponse(r.Items, r.Page, r.PageSize, r.TotalItems)
}

// ToStageSummaryResponse totals the per-stage counts
func ToStageSummaryResponse(counts []application.StageCountDTO) StageSummaryResponse {
	resp := StageSummaryResponse{Stages: counts}
	if resp.Stages == nil {
		resp.Stages = []application.StageCountDTO{}
	}
	for _, c := range counts {
		resp.Total += c.Count
	}
	return resp
}
