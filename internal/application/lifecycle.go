package application

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
)

// PackMoveDone moves packed goods to the dispatch area
func (s *FulfillmentService) PackMoveDone(ctx context.Context, fulfillmentID string) (*FulfillmentDTO, error) {
	return s.mutate(ctx, fulfillmentID, "pack-move-done", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		switch ofr.Status() {
		case domain.StatusPicked, domain.StatusPacking, domain.StatusPacked:
		default:
			return domain.ErrInvalidTransition
		}
		return ofr.TransitionTo(domain.StatusReadyToShip, by, "pack-move done", at)
	})
}

// DropAtDispatch flags packages as dropped in the dispatch area
func (s *FulfillmentService) DropAtDispatch(ctx context.Context, cmd PackageBarcodesCommand) (*FulfillmentDTO, error) {
	if len(cmd.PackageBarcodes) == 0 {
		return nil, errors.ErrValidation("at least one package barcode is required")
	}
	return s.mutate(ctx, cmd.FulfillmentID, "drop-at-dispatch", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		if ofr.Status() != domain.StatusReadyToShip {
			return domain.ErrInvalidTransition
		}
		return ofr.DropAtDispatch(cmd.PackageBarcodes, by, at)
	})
}

// Load flags packages as loaded. Once every package is on the truck the OFR
// ships and receives a GIN number if it has none.
func (s *FulfillmentService) Load(ctx context.Context, cmd PackageBarcodesCommand) (*FulfillmentDTO, error) {
	if len(cmd.PackageBarcodes) == 0 {
		return nil, errors.ErrValidation("at least one package barcode is required")
	}
	return s.mutate(ctx, cmd.FulfillmentID, "load", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		if ofr.Status() != domain.StatusReadyToShip {
			return domain.ErrInvalidTransition
		}
		if err := ofr.LoadOnTruck(cmd.PackageBarcodes, by, at); err != nil {
			return err
		}
		if cmd.VehicleNumber != "" || cmd.DriverName != "" {
			if ofr.ShippingDetails == nil {
				ofr.ShippingDetails = &domain.ShippingDetails{LabelStatus: domain.LabelStatusNotRequested}
			}
			if cmd.VehicleNumber != "" {
				ofr.ShippingDetails.VehicleNumber = cmd.VehicleNumber
			}
			if cmd.DriverName != "" {
				ofr.ShippingDetails.DriverName = cmd.DriverName
			}
		}
		if !ofr.AllPackagesLoaded() {
			return nil
		}

		if err := ofr.TransitionTo(domain.StatusShipped, by, "all packages loaded", at); err != nil {
			return err
		}
		ofr.MarkLinesShipped()
		if ofr.GINNumber != "" {
			return nil
		}
		gin, err := s.allocator.Allocate(ctx, domain.GINSequence(at))
		if err != nil {
			return errors.ErrInternal("gin number allocation failed").Wrap(err)
		}
		return ofr.IssueGIN(gin)
	})
}

// MarkGINSent records that the GIN notification was delivered
func (s *FulfillmentService) MarkGINSent(ctx context.Context, cmd MarkGINSentCommand) (*FulfillmentDTO, error) {
	return s.mutate(ctx, cmd.FulfillmentID, "gin-sent", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		return ofr.MarkGINSent(cmd.Recipients, by, at)
	})
}

// manualTransitions are the statuses a generic status change may set, with the
// statuses each may be set from. Every other status has a dedicated operation.
var manualTransitions = map[domain.Status][]domain.Status{
	domain.StatusPacking:   {domain.StatusPicked},
	domain.StatusPacked:    {domain.StatusPicked, domain.StatusPacking},
	domain.StatusDelivered: {domain.StatusShipped},
}

// UpdateStatus applies a generic status change: hold, resume, cancel, the
// manual packing steps and delivery. Requesting the held-from status of an
// ON_HOLD OFR resumes it.
func (s *FulfillmentService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*FulfillmentDTO, error) {
	if !cmd.Status.IsValid() {
		return nil, errors.ErrValidationWithFields("unknown status", map[string]string{"status": string(cmd.Status)})
	}
	if cmd.Status == domain.StatusCancelled {
		return s.Cancel(ctx, CancelCommand{FulfillmentID: cmd.FulfillmentID, Reason: cmd.Reason})
	}
	return s.mutate(ctx, cmd.FulfillmentID, "update-status", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		current := ofr.StatusHistory.Current()
		if current.Status == domain.StatusOnHold && cmd.Status == current.PreviousStatus {
			return ofr.Resume(by, cmd.Reason, at)
		}
		if cmd.Status == domain.StatusOnHold {
			return ofr.Hold(by, cmd.Reason, at)
		}
		from, ok := manualTransitions[cmd.Status]
		if !ok {
			return errors.ErrValidationWithFields(
				fmt.Sprintf("status %s is set by its own operation, not by a status update", cmd.Status),
				map[string]string{"status": string(cmd.Status)})
		}
		if !slices.Contains(from, current.Status) {
			return errors.ErrValidationWithFields(
				fmt.Sprintf("cannot move from %s to %s", current.Status, cmd.Status),
				map[string]string{"status": string(cmd.Status)})
		}
		return ofr.TransitionTo(cmd.Status, by, cmd.Reason, at)
	})
}

// Cancel cancels an OFR with a reason
func (s *FulfillmentService) Cancel(ctx context.Context, cmd CancelCommand) (*FulfillmentDTO, error) {
	if cmd.Reason == "" {
		return nil, errors.ErrValidationWithFields("cancellation reason is required", map[string]string{"reason": "required"})
	}
	return s.mutate(ctx, cmd.FulfillmentID, "cancel", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		return ofr.Cancel(by, cmd.Reason, at)
	})
}
