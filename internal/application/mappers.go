package application

import (
	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

// ToFulfillmentDTO converts a domain OFR to FulfillmentDTO
func ToFulfillmentDTO(ofr *domain.OrderFulfillmentRequest, accountName string) *FulfillmentDTO {
	if ofr == nil {
		return nil
	}

	packages := ofr.Packages
	if packages == nil {
		packages = []domain.Package{}
	}

	return &FulfillmentDTO{
		FulfillmentID:         ofr.FulfillmentID,
		AccountID:             ofr.AccountID,
		AccountName:           accountName,
		ExternalOrderID:       ofr.ExternalOrderID,
		FulfillmentSource:     ofr.FulfillmentSource,
		FulfillmentType:       string(ofr.FulfillmentType),
		ExecutionApproach:     string(ofr.ExecutionApproach),
		Status:                string(ofr.Status()),
		Stage:                 string(ofr.Stage()),
		FulfillmentStatus:     ofr.FulfillmentStatus,
		StatusHistory:         ofr.StatusHistory.Entries(),
		LineItems:             ofr.LineItems,
		Packages:              packages,
		QuantitySourceDetails: ofr.QuantitySourceDetails,
		ShippingDetails:       ofr.ShippingDetails,
		TaskReferences:        ofr.TaskReferences,
		GINNumber:             ofr.GINNumber,
		GINNotification:       ofr.GINNotification,
		CancellationReason:    ofr.CancellationReason,
		TotalUnits:            ofr.TotalUnits(),
		TenantID:              ofr.TenantID,
		FacilityID:            ofr.FacilityID,
		WarehouseID:           ofr.WarehouseID,
		CreatedAt:             ofr.CreatedAt,
		UpdatedAt:             ofr.UpdatedAt,
		CreatedBy:             ofr.CreatedBy,
		UpdatedBy:             ofr.UpdatedBy,
	}
}

// ToFulfillmentListDTO converts a domain OFR to its list view
func ToFulfillmentListDTO(ofr *domain.OrderFulfillmentRequest, accountName string) FulfillmentListDTO {
	return FulfillmentListDTO{
		FulfillmentID:   ofr.FulfillmentID,
		AccountID:       ofr.AccountID,
		AccountName:     accountName,
		ExternalOrderID: ofr.ExternalOrderID,
		FulfillmentType: string(ofr.FulfillmentType),
		Status:          string(ofr.Status()),
		Stage:           string(ofr.Stage()),
		TotalUnits:      ofr.TotalUnits(),
		TotalPackages:   len(ofr.Packages),
		GINNumber:       ofr.GINNumber,
		CreatedAt:       ofr.CreatedAt,
		UpdatedAt:       ofr.UpdatedAt,
	}
}

func toReductions(res *reservation) []InventoryReductionDTO {
	out := make([]InventoryReductionDTO, 0, len(res.Debits))
	for _, d := range res.Debits {
		out = append(out, InventoryReductionDTO{
			BucketID:          d.Source.BucketID,
			SKUID:             d.Source.SKUID,
			ContainerID:       d.Source.containerID(),
			LocationBreakdown: d.Breakdown,
			Quantity:          d.Source.quantity(),
			BeforeQuantity:    d.Result.BeforeQuantity,
			AfterQuantity:     d.Result.AfterQuantity,
			TransactionID:     d.TransactionID,
		})
	}
	return out
}

func toReservationSummary(ofr *domain.OrderFulfillmentRequest, res *reservation) *ReservationSummaryDTO {
	summary := &ReservationSummaryDTO{
		FulfillmentID:       ofr.FulfillmentID,
		GINNumber:           ofr.GINNumber,
		FulfillmentType:     string(ofr.FulfillmentType),
		Status:              string(ofr.Status()),
		TotalUnits:          ofr.TotalUnits(),
		TotalLineItems:      len(ofr.LineItems),
		TotalPackages:       len(ofr.Packages),
		TransactionsCreated: res.transactionsCreated(),
		Reductions:          toReductions(res),
		Shipping:            ShippingSummaryDTO{LabelStatus: domain.LabelStatusNotRequested},
	}

	switch ofr.FulfillmentType {
	case domain.FulfillmentTypeContainerQuantity:
		summary.TotalContainerSourcesUsed = len(res.Debits)
	case domain.FulfillmentTypeLocationQuantity:
		locations := 0
		for _, d := range res.Debits {
			locations += len(d.Breakdown)
		}
		summary.TotalLocationSourcesUsed = locations
	}

	if sd := ofr.ShippingDetails; sd != nil {
		summary.Shipping = ShippingSummaryDTO{
			CarrierCode:    sd.CarrierCode,
			AWBNumber:      sd.AWBNumber,
			TrackingNumber: sd.TrackingNumber,
			LabelURL:       sd.LabelURL,
			LabelStatus:    sd.LabelStatus,
		}
	}
	return summary
}
