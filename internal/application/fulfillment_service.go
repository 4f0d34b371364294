package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
)

// Dependencies wires the fulfillment service to its collaborators
type Dependencies struct {
	Repository domain.FulfillmentRepository
	Inventory  InventoryGateway
	Products   ProductGateway
	Tasks      TaskGateway
	Accounts   AccountGateway
	Shipping   ShippingGateway
	Allocator  SequenceAllocator
	Logger     *logging.Logger
	Metrics    *metrics.Metrics
}

// FulfillmentService handles the outbound fulfillment use cases
type FulfillmentService struct {
	repo      domain.FulfillmentRepository
	inventory InventoryGateway
	products  ProductGateway
	tasks     TaskGateway
	accounts  AccountGateway
	shipping  ShippingGateway
	allocator SequenceAllocator
	saga      *reservationSaga
	logger    *logging.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewFulfillmentService creates a FulfillmentService
func NewFulfillmentService(deps Dependencies) *FulfillmentService {
	logger := deps.Logger.WithComponent("fulfillment-service")
	now := func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

	saga := newReservationSaga(deps.Inventory, deps.Allocator, deps.Logger, deps.Metrics)
	saga.now = now

	return &FulfillmentService{
		repo:      deps.Repository,
		inventory: deps.Inventory,
		products:  deps.Products,
		tasks:     deps.Tasks,
		accounts:  deps.Accounts,
		shipping:  deps.Shipping,
		allocator: deps.Allocator,
		saga:      saga,
		logger:    logger,
		metrics:   deps.Metrics,
		now:       now,
	}
}

// toAppError maps domain and repository errors onto the API taxonomy
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	if dup, ok := domain.AsDuplicateKey(err); ok {
		return errors.ErrDuplicate(dup.Field, dup.Value).Wrap(err)
	}

	switch {
	case stderrors.Is(err, domain.ErrFulfillmentNotFound):
		return errors.ErrNotFound("fulfillment").Wrap(err)
	case stderrors.Is(err, domain.ErrPackageNotFound):
		return errors.ErrNotFound("package").Wrap(err)
	case stderrors.Is(err, domain.ErrConcurrentModification):
		return errors.ErrConflict(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidTransition),
		stderrors.Is(err, domain.ErrInvalidStatus),
		stderrors.Is(err, domain.ErrNotOnHold),
		stderrors.Is(err, domain.ErrPackageNotDropped),
		stderrors.Is(err, domain.ErrGINNotIssued),
		stderrors.Is(err, domain.ErrGINAlreadyIssued),
		stderrors.Is(err, domain.ErrWrongFulfillmentType),
		stderrors.Is(err, domain.ErrDuplicatePackageBarcode),
		stderrors.Is(err, domain.ErrDuplicateInventoryUnit),
		stderrors.Is(err, domain.ErrQuantityMismatch),
		stderrors.Is(err, domain.ErrNoLineItems),
		stderrors.Is(err, domain.ErrInvalidApproach):
		return errors.ErrValidation(err.Error()).Wrap(err)
	default:
		return errors.ErrInternal("").Wrap(err)
	}
}

// load fetches an OFR by id or returns RESOURCE_NOT_FOUND
func (s *FulfillmentService) load(ctx context.Context, fulfillmentID string) (*domain.OrderFulfillmentRequest, error) {
	ofr, err := s.repo.FindByID(ctx, fulfillmentID)
	if err != nil {
		if stderrors.Is(err, domain.ErrFulfillmentNotFound) {
			return nil, errors.ErrNotFoundWithID("fulfillment", fulfillmentID)
		}
		return nil, toAppError(err)
	}
	return ofr, nil
}

// mutate loads an OFR, applies fn and saves it
func (s *FulfillmentService) mutate(ctx context.Context, fulfillmentID, action string, fn func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error) (*FulfillmentDTO, error) {
	ofr, err := s.load(ctx, fulfillmentID)
	if err != nil {
		return nil, err
	}

	by := logging.UserIDFromContext(ctx)
	before := ofr.Status()
	if err := fn(ofr, by, s.now()); err != nil {
		return nil, toAppError(err)
	}

	if err := s.repo.Save(ctx, ofr); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save fulfillment", "fulfillmentId", fulfillmentID, "action", action)
		return nil, toAppError(err)
	}

	if after := ofr.Status(); after != before {
		s.metrics.RecordStatusTransition(string(after))
	}
	s.logger.Audit(ctx, action, "fulfillment", fulfillmentID, by, map[string]any{
		"status": string(ofr.Status()),
	})
	return ToFulfillmentDTO(ofr, ""), nil
}

// newParams fills the fields every topology shares
func (s *FulfillmentService) newParams(ctx context.Context, id string, t domain.FulfillmentType, initial domain.Status) domain.NewFulfillmentParams {
	tc := tenant.FromContextOptional(ctx)
	return domain.NewFulfillmentParams{
		FulfillmentID:   id,
		FulfillmentType: t,
		InitialStatus:   initial,
		TenantID:        tc.TenantID,
		FacilityID:      tc.FacilityID,
		WarehouseID:     tc.WarehouseID,
		CreatedBy:       logging.UserIDFromContext(ctx),
		CreatedAt:       s.now(),
	}
}

// persistAfterDebit turns a persist failure into an error that still reports the applied debits.
// The persist error keeps its usual mapping; only unclassified failures become INTERNAL_ERROR.
func (s *FulfillmentService) persistAfterDebit(ctx context.Context, topology string, res *reservation, err error) error {
	mapped, _ := errors.AsAppError(toAppError(err))
	appErr := errors.NewAppError(mapped.Code, mapped.Message, mapped.HTTPStatus)
	if mapped.Code == errors.CodeInternalError {
		appErr.Message = fmt.Sprintf("failed to persist fulfillment %s", res.FulfillmentID)
	}
	for k, v := range mapped.Details {
		appErr.WithDetail(k, v)
	}
	return s.saga.abort(ctx, topology, res, appErr, err)
}

func toShippingDetails(in *ShippingInput) *domain.ShippingDetails {
	if in == nil {
		return nil
	}
	status := domain.LabelStatusNotRequested
	if in.AWBNumber != "" {
		status = domain.LabelStatusCreated
	}
	return &domain.ShippingDetails{
		CarrierCode:   in.CarrierCode,
		ServiceType:   in.ServiceType,
		ShipToName:    in.ShipToName,
		ShipToAddress: in.ShipToAddress,
		AWBNumber:     in.AWBNumber,
		LabelStatus:   status,
		VehicleNumber: in.VehicleNumber,
		DriverName:    in.DriverName,
	}
}

// validateShipping checks carrier preconditions before any side effect
func validateShipping(in *ShippingInput, markShipped bool) error {
	if markShipped {
		if in == nil || in.CarrierCode == "" || in.VehicleNumber == "" {
			return errors.ErrValidationWithFields("shipping details are required to ship immediately", map[string]string{
				"shipping.carrierCode":   "required",
				"shipping.vehicleNumber": "required",
			})
		}
	}
	if in != nil && in.CreateLabel {
		fields := map[string]string{}
		if in.CarrierCode == "" {
			fields["shipping.carrierCode"] = "required"
		}
		if in.ShipToName == "" {
			fields["shipping.shipToName"] = "required"
		}
		if in.ShipToAddress == nil {
			fields["shipping.shipToAddress"] = "required"
		}
		if len(fields) > 0 {
			return errors.ErrValidationWithFields("label creation needs a carrier and a ship-to address", fields)
		}
	}
	return nil
}

// createLabel requests a label after persist. A failure is recorded on the OFR, never returned.
func (s *FulfillmentService) createLabel(ctx context.Context, ofr *domain.OrderFulfillmentRequest) {
	details := ofr.ShippingDetails
	barcodes := make([]string, len(ofr.Packages))
	for i, p := range ofr.Packages {
		barcodes[i] = p.Barcode
	}

	label, err := s.shipping.CreateLabel(ctx, LabelRequest{
		FulfillmentID:   ofr.FulfillmentID,
		CarrierCode:     details.CarrierCode,
		ServiceType:     details.ServiceType,
		ShipToName:      details.ShipToName,
		ShipToAddress:   details.ShipToAddress,
		PackageBarcodes: barcodes,
		Packages:        ofr.Packages,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Label creation failed", "fulfillmentId", ofr.FulfillmentID)
		details.LabelStatus = domain.LabelStatusFailed
	} else {
		details.AWBNumber = label.AWBNumber
		details.TrackingNumber = label.TrackingNumber
		details.LabelURL = label.LabelURL
		details.LabelStatus = domain.LabelStatusCreated
	}

	if err := s.repo.Save(ctx, ofr); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to save label details", "fulfillmentId", ofr.FulfillmentID)
	}
}

// CurrentSequence returns the last value a counter handed out
func (s *FulfillmentService) CurrentSequence(ctx context.Context, name string) (int64, error) {
	if !domain.IsKnownSequenceName(name) {
		return 0, errors.ErrValidation(fmt.Sprintf("unknown sequence %q", name))
	}
	value, err := s.allocator.Current(ctx, name)
	if err != nil {
		return 0, errors.ErrInternal("sequence lookup failed").Wrap(err)
	}
	return value, nil
}

// ResetSequence sets a counter so the next allocation returns value+1
func (s *FulfillmentService) ResetSequence(ctx context.Context, name string, value int64) error {
	if !domain.IsKnownSequenceName(name) {
		return errors.ErrValidation(fmt.Sprintf("unknown sequence %q", name))
	}
	if value < 0 {
		return errors.ErrValidation("sequence value must not be negative")
	}
	if err := s.allocator.Reset(ctx, name, value); err != nil {
		return errors.ErrInternal("sequence reset failed").Wrap(err)
	}
	s.logger.Audit(ctx, "reset-sequence", "sequence", name, logging.UserIDFromContext(ctx), map[string]any{"value": value})
	return nil
}
