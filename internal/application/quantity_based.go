package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
)

// quantityPlan is a validated quantity-based command
type quantityPlan struct {
	lines     []domain.LineItem
	packages  []domain.Package
	barcodes  []string
	claims    []sourceClaim
	packageOf map[string]string // barcode -> package id
}

func (s *FulfillmentService) createQuantityBased(ctx context.Context, adapter topologyAdapter, cmd CreateQuantityBasedCommand) (*ReservationSummaryDTO, error) {
	topology := string(adapter.fulfillmentType())
	logger := s.logger.WithContext(ctx)

	plan, err := buildQuantityPlan(cmd)
	if err != nil {
		return nil, err
	}

	reference := cmd.ExternalOrderID
	if reference == "" {
		reference = cmd.AccountID
	}

	res, err := s.saga.run(ctx, adapter, sagaPlan{
		AccountID:       cmd.AccountID,
		Claims:          plan.claims,
		ConsumeBarcodes: plan.barcodes,
		Reference:       reference,
		IssueGIN:        true,
	})
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	ofr, err := s.assembleQuantityBased(ctx, adapter, cmd, plan, res)
	if err != nil {
		return nil, s.saga.abort(ctx, topology, res, errors.ErrInternal("failed to assemble fulfillment"), err)
	}

	if err := s.repo.Create(ctx, ofr); err != nil {
		logger.WithError(err).Error("Failed to persist fulfillment", "fulfillmentId", res.FulfillmentID)
		return nil, s.persistAfterDebit(ctx, topology, res, err)
	}
	s.metrics.RecordFulfillmentCreated(topology)

	if cmd.Shipping != nil && cmd.Shipping.CreateLabel {
		s.createLabel(ctx, ofr)
	}

	logger.Event(ctx, "fulfillment.created", map[string]any{
		"fulfillmentId":   ofr.FulfillmentID,
		"fulfillmentType": topology,
		"ginNumber":       ofr.GINNumber,
		"totalUnits":      ofr.TotalUnits(),
		"sourcesUsed":     len(res.Debits),
	})
	return toReservationSummary(ofr, res), nil
}

// buildQuantityPlan performs every structural check before any remote call
func buildQuantityPlan(cmd CreateQuantityBasedCommand) (*quantityPlan, error) {
	if cmd.AccountID == "" {
		return nil, errors.ErrValidationWithFields("account is required", map[string]string{"accountId": "required"})
	}
	if len(cmd.LineItems) == 0 {
		return nil, errors.ErrValidation(domain.ErrNoLineItems.Error())
	}
	if len(cmd.Packages) == 0 {
		return nil, errors.ErrValidation("at least one package is required")
	}
	if err := validateShipping(cmd.Shipping, cmd.MarkShipped); err != nil {
		return nil, err
	}

	plan := &quantityPlan{packageOf: make(map[string]string, len(cmd.Packages))}
	for _, p := range cmd.Packages {
		if p.Barcode == "" {
			return nil, errors.ErrValidation("package barcode is required")
		}
		if _, dup := plan.packageOf[p.Barcode]; dup {
			return nil, errors.ErrValidation(fmt.Sprintf("package barcode %s is declared twice", p.Barcode)).
				WithDetail("barcode", p.Barcode)
		}
		id := uuid.New().String()
		plan.packageOf[p.Barcode] = id
		plan.barcodes = append(plan.barcodes, p.Barcode)
		plan.packages = append(plan.packages, domain.Package{
			PackageID:  id,
			Barcode:    p.Barcode,
			Dimensions: p.Dimensions,
			Weight:     p.Weight,
		})
	}

	packed := make(map[string]map[string]int) // package id -> line id -> qty
	lineIDs := make(map[string]struct{}, len(cmd.LineItems))
	for i, in := range cmd.LineItems {
		lineID := in.LineItemID
		if lineID == "" {
			lineID = fmt.Sprintf("L%d", i+1)
		}
		if _, dup := lineIDs[lineID]; dup {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s is declared twice", lineID))
		}
		lineIDs[lineID] = struct{}{}

		if in.SKUID == "" {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s has no SKU", lineID))
		}
		if in.TotalQuantityPicked <= 0 {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s must pick a positive quantity", lineID))
		}
		ordered := in.OrderedQuantity
		if ordered == 0 {
			ordered = in.TotalQuantityPicked
		}
		if in.TotalQuantityPicked > ordered {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s picks %d of %d ordered", lineID, in.TotalQuantityPicked, ordered))
		}

		sum := 0
		for _, src := range in.Sources {
			pkgID, ok := plan.packageOf[src.PackageBarcode]
			if !ok {
				return nil, errors.ErrValidation(fmt.Sprintf("source %s targets undeclared package %s", src.BucketID, src.PackageBarcode)).
					WithDetail("barcode", src.PackageBarcode)
			}
			if src.BucketID == "" {
				return nil, errors.ErrValidation(fmt.Sprintf("line item %s has a source without bucket", lineID))
			}
			sum += src.QuantityPicked
			plan.claims = append(plan.claims, sourceClaim{
				LineItemID:  lineID,
				SKUID:       in.SKUID,
				PackageID:   pkgID,
				BucketID:    src.BucketID,
				ContainerID: src.ContainerID,
				LocationID:  src.LocationID,
				Barcode:     src.PackageBarcode,
				Quantity:    src.QuantityPicked,
			})
			if packed[pkgID] == nil {
				packed[pkgID] = make(map[string]int)
			}
			packed[pkgID][lineID] += src.QuantityPicked
		}
		if sum != in.TotalQuantityPicked {
			return nil, errors.ErrValidationWithFields(
				fmt.Sprintf("line item %s sources sum to %d, quantity picked is %d", lineID, sum, in.TotalQuantityPicked),
				map[string]string{"lineItemId": lineID},
			)
		}

		plan.lines = append(plan.lines, domain.LineItem{
			LineItemID:          lineID,
			SKUID:               in.SKUID,
			ItemType:            in.ItemType,
			OrderedQuantity:     ordered,
			TotalQuantityPicked: in.TotalQuantityPicked,
		})
	}

	for i := range plan.packages {
		p := &plan.packages[i]
		for _, line := range plan.lines {
			if qty := packed[p.PackageID][line.LineItemID]; qty > 0 {
				p.AssignedItems = append(p.AssignedItems, domain.PackageItem{LineItemID: line.LineItemID, SKUID: line.SKUID, Quantity: qty})
			}
		}
		if len(p.AssignedItems) == 0 {
			return nil, errors.ErrValidation(fmt.Sprintf("package %s holds no items", p.Barcode)).WithDetail("barcode", p.Barcode)
		}
	}
	return plan, nil
}

func (s *FulfillmentService) assembleQuantityBased(ctx context.Context, adapter topologyAdapter, cmd CreateQuantityBasedCommand, plan *quantityPlan, res *reservation) (*domain.OrderFulfillmentRequest, error) {
	lines := plan.lines
	for _, c := range plan.claims {
		d, _ := res.debitFor(c.BucketID)
		for i := range lines {
			if lines[i].LineItemID != c.LineItemID {
				continue
			}
			lines[i].QuantityInventoryReferences = append(lines[i].QuantityInventoryReferences, domain.QuantityInventoryReference{
				BucketID:       c.BucketID,
				ContainerID:    c.ContainerID,
				LocationID:     c.LocationID,
				PackageID:      c.PackageID,
				QuantityPicked: c.Quantity,
				BeforeQuantity: d.Result.BeforeQuantity,
				AfterQuantity:  d.Result.AfterQuantity,
				TransactionID:  d.TransactionID,
			})
		}
	}

	params := s.newParams(ctx, res.FulfillmentID, adapter.fulfillmentType(), domain.StatusReadyToShip)
	params.AccountID = cmd.AccountID
	params.ExternalOrderID = cmd.ExternalOrderID
	params.FulfillmentSource = cmd.FulfillmentSource
	params.LineItems = lines
	params.Packages = plan.packages
	params.ShippingDetails = toShippingDetails(cmd.Shipping)

	ofr, err := domain.NewOrderFulfillmentRequest(params)
	if err != nil {
		return nil, err
	}

	sourceType := "CONTAINER"
	if adapter.fulfillmentType() == domain.FulfillmentTypeLocationQuantity {
		sourceType = "LOCATION"
	}
	ofr.QuantitySourceDetails = &domain.QuantitySourceDetails{
		SourceType:  sourceType,
		SourcesUsed: len(res.Debits),
		TotalUnits:  ofr.TotalUnits(),
	}

	for _, d := range res.Debits {
		ofr.RecordInventoryDebit(d.toDomain())
	}
	if err := ofr.IssueGIN(res.GINNumber); err != nil {
		return nil, err
	}

	if cmd.MarkShipped {
		at := s.now()
		if err := ofr.DropAtDispatch(plan.barcodes, params.CreatedBy, at); err != nil {
			return nil, err
		}
		if err := ofr.LoadOnTruck(plan.barcodes, params.CreatedBy, at); err != nil {
			return nil, err
		}
		if err := ofr.TransitionTo(domain.StatusShipped, params.CreatedBy, "shipped on creation", at); err != nil {
			return nil, err
		}
		ofr.MarkLinesShipped()
	}
	return ofr, nil
}
