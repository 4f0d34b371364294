package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
)

// storageItemAdapter debits the buckets behind picked storage items
type storageItemAdapter struct{}

func (storageItemAdapter) fulfillmentType() domain.FulfillmentType {
	return domain.FulfillmentTypeTaskBased
}

func (storageItemAdapter) unitKey(c sourceClaim) string {
	return c.StorageItemID
}

func (storageItemAdapter) validateClaim(c sourceClaim) error {
	if c.StorageItemID == "" {
		return errors.ErrValidation(fmt.Sprintf("item %s is not a known storage item", c.Barcode))
	}
	return nil
}

func (storageItemAdapter) verify(src debitSource, bucket Bucket) error {
	if requested := src.quantity(); requested > bucket.AvailableQuantity {
		return errors.ErrInsufficientInventory(bucket.BucketID, requested, bucket.AvailableQuantity)
	}
	return nil
}

func (storageItemAdapter) debit(ctx context.Context, inv InventoryGateway, src debitSource, reference string) (*DebitResult, error) {
	return inv.DebitBucket(ctx, DebitRequest{
		BucketID:  src.BucketID,
		Quantity:  src.quantity(),
		Reference: reference,
	})
}

func (storageItemAdapter) transactionBreakdown(src debitSource) []domain.LocationQuantity {
	return src.breakdown()
}

// CreateTaskBased allocates locations for an order and hands it to warehouse tasks
func (s *FulfillmentService) CreateTaskBased(ctx context.Context, cmd CreateTaskBasedCommand) (*TaskBasedSummaryDTO, error) {
	logger := s.logger.WithContext(ctx)

	lines, err := validateTaskBased(cmd)
	if err != nil {
		return nil, err
	}

	tieBreaks := s.resolveTieBreaks(ctx, lines)

	allocations := make(map[string][]domain.LocationAllocation, len(lines))
	for i := range lines {
		line := &lines[i]
		line.TieBreakMethod = string(tieBreaks[line.SKUID])

		planned, err := s.inventory.AllocateLocations(ctx, AllocationRequest{
			AccountID: cmd.AccountID,
			SKUID:     line.SKUID,
			Quantity:  line.OrderedQuantity,
			TieBreak:  tieBreaks[line.SKUID],
		})
		if err != nil {
			return nil, dependencyError("inventory", "allocateLocations", err)
		}
		available := 0
		for _, a := range planned {
			available += a.Quantity
		}
		if available < line.OrderedQuantity {
			return nil, errors.ErrInsufficientInventory(line.SKUID, line.OrderedQuantity, available).
				WithDetail("skuId", line.SKUID)
		}
		line.PlannedLocations = planned
		allocations[line.LineItemID] = planned
	}

	id, err := s.allocator.Allocate(ctx, domain.FulfillmentIDSequence())
	if err != nil {
		return nil, errors.ErrInternal("fulfillment id allocation failed").Wrap(err)
	}

	kind := domain.TaskKindPicking
	if cmd.ExecutionApproach == domain.ApproachPickPackMoveTogether {
		kind = domain.TaskKindPickPackMove
	}
	taskLines := make([]TaskLine, len(lines))
	for i, l := range lines {
		taskLines[i] = TaskLine{LineItemID: l.LineItemID, SKUID: l.SKUID, Quantity: l.OrderedQuantity, Locations: l.PlannedLocations}
	}
	taskCode, err := s.tasks.CreateTask(ctx, kind, TaskPayload{FulfillmentID: id, AccountID: cmd.AccountID, Lines: taskLines})
	if err != nil {
		return nil, dependencyError("task", "createTask", err)
	}

	params := s.newParams(ctx, id, domain.FulfillmentTypeTaskBased, domain.StatusReceived)
	params.AccountID = cmd.AccountID
	params.ExternalOrderID = cmd.ExternalOrderID
	params.FulfillmentSource = cmd.FulfillmentSource
	params.ExecutionApproach = cmd.ExecutionApproach
	params.LineItems = lines
	params.ShippingDetails = toShippingDetails(cmd.Shipping)

	ofr, err := domain.NewOrderFulfillmentRequest(params)
	if err != nil {
		return nil, toAppError(err)
	}
	ofr.AssignPickingTask(taskCode, kind)
	if err := ofr.TransitionTo(domain.StatusAllocated, params.CreatedBy, "locations allocated", s.now()); err != nil {
		return nil, toAppError(err)
	}

	if err := s.repo.Create(ctx, ofr); err != nil {
		logger.WithError(err).Error("Failed to persist fulfillment", "fulfillmentId", id, "taskCode", taskCode)
		return nil, toAppError(err)
	}
	s.metrics.RecordFulfillmentCreated(string(domain.FulfillmentTypeTaskBased))

	logger.Event(ctx, "fulfillment.created", map[string]any{
		"fulfillmentId":     id,
		"fulfillmentType":   string(domain.FulfillmentTypeTaskBased),
		"executionApproach": string(cmd.ExecutionApproach),
		"taskCode":          taskCode,
	})

	units := 0
	for _, l := range lines {
		units += l.OrderedQuantity
	}
	return &TaskBasedSummaryDTO{
		FulfillmentID:     id,
		Status:            string(ofr.Status()),
		ExecutionApproach: string(cmd.ExecutionApproach),
		TaskCode:          taskCode,
		TaskKind:          kind,
		TotalLineItems:    len(lines),
		TotalUnits:        units,
		Allocations:       allocations,
	}, nil
}

func validateTaskBased(cmd CreateTaskBasedCommand) ([]domain.LineItem, error) {
	if cmd.AccountID == "" {
		return nil, errors.ErrValidationWithFields("account is required", map[string]string{"accountId": "required"})
	}
	if !cmd.ExecutionApproach.IsValid() {
		return nil, errors.ErrValidationWithFields("unknown execution approach", map[string]string{"executionApproach": string(cmd.ExecutionApproach)})
	}
	if len(cmd.LineItems) == 0 {
		return nil, errors.ErrValidation(domain.ErrNoLineItems.Error())
	}
	if err := validateShipping(cmd.Shipping, false); err != nil {
		return nil, err
	}

	lines := make([]domain.LineItem, 0, len(cmd.LineItems))
	seen := make(map[string]struct{}, len(cmd.LineItems))
	for i, in := range cmd.LineItems {
		id := in.LineItemID
		if id == "" {
			id = fmt.Sprintf("L%d", i+1)
		}
		if _, dup := seen[id]; dup {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s is declared twice", id))
		}
		seen[id] = struct{}{}
		if in.SKUID == "" || in.Quantity <= 0 {
			return nil, errors.ErrValidation(fmt.Sprintf("line item %s needs a SKU and a positive quantity", id))
		}
		lines = append(lines, domain.LineItem{
			LineItemID:      id,
			SKUID:           in.SKUID,
			ItemType:        in.ItemType,
			OrderedQuantity: in.Quantity,
		})
	}
	return lines, nil
}

// resolveTieBreaks is advisory: any catalog failure falls back to FIFO
func (s *FulfillmentService) resolveTieBreaks(ctx context.Context, lines []domain.LineItem) map[string]TieBreakMethod {
	out := make(map[string]TieBreakMethod, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := out[l.SKUID]; !ok {
			out[l.SKUID] = TieBreakFIFO
			ids = append(ids, l.SKUID)
		}
	}

	skus, err := s.products.GetSKUs(ctx, ids, []string{"tieBreakMethod"})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("SKU lookup failed, using FIFO tie-break", "skuCount", len(ids))
		return out
	}
	for _, sku := range skus {
		switch sku.TieBreakMethod {
		case TieBreakFIFO, TieBreakLIFO, TieBreakRandom:
			out[sku.SKUID] = sku.TieBreakMethod
		}
	}
	return out
}

// StartPicking marks a task-based OFR as being picked
func (s *FulfillmentService) StartPicking(ctx context.Context, fulfillmentID string) (*FulfillmentDTO, error) {
	return s.mutate(ctx, fulfillmentID, "start-picking", func(ofr *domain.OrderFulfillmentRequest, by string, at time.Time) error {
		if ofr.FulfillmentType != domain.FulfillmentTypeTaskBased {
			return domain.ErrWrongFulfillmentType
		}
		return ofr.TransitionTo(domain.StatusPicking, by, "", at)
	})
}

// PickupDone reconciles the storage items picked for a task-based OFR
func (s *FulfillmentService) PickupDone(ctx context.Context, cmd PickupDoneCommand) (*PickupDoneSummaryDTO, error) {
	logger := s.logger.WithContext(ctx)
	topology := string(domain.FulfillmentTypeTaskBased)

	ofr, err := s.load(ctx, cmd.FulfillmentID)
	if err != nil {
		return nil, err
	}
	if ofr.FulfillmentType != domain.FulfillmentTypeTaskBased {
		return nil, errors.ErrValidation(fmt.Sprintf("%s is %s, pickup-done applies to task-based fulfillments", ofr.FulfillmentID, ofr.FulfillmentType))
	}
	if awaitingPackMoveTask(ofr) {
		return s.resumePackMove(ctx, ofr, cmd.Packages)
	}
	switch ofr.Status() {
	case domain.StatusAllocated, domain.StatusPicking:
	default:
		return nil, errors.ErrValidation(fmt.Sprintf("cannot complete pickup in status %s", ofr.Status()))
	}

	itemBarcodes, packageBarcodes, err := validatePickedPackages(ofr, cmd.Packages)
	if err != nil {
		return nil, err
	}

	items, err := s.inventory.LookupStorageItems(ctx, itemBarcodes)
	if err != nil {
		return nil, dependencyError("inventory", "lookupStorageItems", err)
	}
	byBarcode := make(map[string]StorageItem, len(items))
	for _, it := range items {
		byBarcode[it.Barcode] = it
	}

	packages, claims, err := matchPickedItems(ofr, cmd.Packages, byBarcode)
	if err != nil {
		return nil, err
	}

	res, err := s.saga.run(ctx, storageItemAdapter{}, sagaPlan{
		AccountID:       ofr.AccountID,
		Claims:          claims,
		ConsumeBarcodes: packageBarcodes,
		Reference:       ofr.FulfillmentID,
		FulfillmentID:   ofr.FulfillmentID,
	})
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	by := logging.UserIDFromContext(ctx)
	at := s.now()
	if err := applyPickedItems(ofr, packages, claims, res); err != nil {
		return nil, s.saga.abort(ctx, topology, res, errors.ErrInternal("failed to apply picked items"), err)
	}

	next := domain.StatusPicked
	if ofr.ExecutionApproach == domain.ApproachPickPackMoveTogether {
		next = domain.StatusReadyToShip
	}
	if err := ofr.TransitionTo(next, by, "pickup done", at); err != nil {
		return nil, s.saga.abort(ctx, topology, res, errors.ErrInternal("failed to apply pickup status"), err)
	}

	if err := s.repo.Save(ctx, ofr); err != nil {
		logger.WithError(err).Error("Failed to persist pickup", "fulfillmentId", ofr.FulfillmentID)
		return nil, s.persistAfterDebit(ctx, topology, res, err)
	}
	s.metrics.RecordStatusTransition(string(next))

	summary := &PickupDoneSummaryDTO{
		FulfillmentID:       ofr.FulfillmentID,
		Status:              string(ofr.Status()),
		TotalUnits:          len(claims),
		TotalPackages:       len(packages),
		TransactionsCreated: res.transactionsCreated(),
		Reductions:          toReductions(res),
	}

	if ofr.ExecutionApproach == domain.ApproachSeparatedPicking {
		code, err := s.createPackMoveTask(ctx, ofr, packageBarcodes)
		if err != nil {
			return nil, err
		}
		summary.PackMoveTaskCode = code
	}

	logger.Event(ctx, "fulfillment.pickup-done", map[string]any{
		"fulfillmentId":    ofr.FulfillmentID,
		"status":           summary.Status,
		"packMoveTaskCode": summary.PackMoveTaskCode,
		"units":            summary.TotalUnits,
	})
	return summary, nil
}

// awaitingPackMoveTask reports a separated-picking OFR whose pickup was persisted
// but whose pack-move task was never recorded
func awaitingPackMoveTask(ofr *domain.OrderFulfillmentRequest) bool {
	return ofr.Status() == domain.StatusPicked &&
		ofr.ExecutionApproach == domain.ApproachSeparatedPicking &&
		ofr.TaskReferences.PackMoveTaskCode == ""
}

// resumePackMove finishes an earlier pickup by creating its pack-move task.
// Inventory is not touched again; resent packages must belong to the pickup.
func (s *FulfillmentService) resumePackMove(ctx context.Context, ofr *domain.OrderFulfillmentRequest, pkgs []PickedPackageInput) (*PickupDoneSummaryDTO, error) {
	barcodes := make([]string, len(ofr.Packages))
	known := make(map[string]struct{}, len(ofr.Packages))
	for i, p := range ofr.Packages {
		barcodes[i] = p.Barcode
		known[p.Barcode] = struct{}{}
	}
	for _, p := range pkgs {
		if _, ok := known[p.Barcode]; !ok {
			return nil, errors.ErrValidation(fmt.Sprintf("package %s is not part of the completed pickup", p.Barcode)).
				WithDetail("barcode", p.Barcode)
		}
	}

	code, err := s.createPackMoveTask(ctx, ofr, barcodes)
	if err != nil {
		return nil, err
	}

	s.logger.Event(ctx, "fulfillment.pack-move-resumed", map[string]any{
		"fulfillmentId":    ofr.FulfillmentID,
		"packMoveTaskCode": code,
	})
	return &PickupDoneSummaryDTO{
		FulfillmentID:    ofr.FulfillmentID,
		Status:           string(ofr.Status()),
		TotalUnits:       ofr.TotalUnits(),
		TotalPackages:    len(ofr.Packages),
		PackMoveTaskCode: code,
	}, nil
}

// createPackMoveTask opens the pack-move task for packages and records its code on ofr
func (s *FulfillmentService) createPackMoveTask(ctx context.Context, ofr *domain.OrderFulfillmentRequest, packages []string) (string, error) {
	logger := s.logger.WithContext(ctx)
	code, err := s.tasks.CreateTask(ctx, domain.TaskKindPackMove, TaskPayload{
		FulfillmentID: ofr.FulfillmentID,
		AccountID:     ofr.AccountID,
		Packages:      packages,
	})
	if err != nil {
		logger.WithError(err).Error("Pack-move task creation failed", "fulfillmentId", ofr.FulfillmentID)
		return "", dependencyError("task", "createTask", err)
	}
	ofr.AssignPackMoveTask(code)
	if err := s.repo.Save(ctx, ofr); err != nil {
		logger.WithError(err).Error("Failed to record pack-move task", "fulfillmentId", ofr.FulfillmentID, "taskCode", code)
		return "", toAppError(err)
	}
	return code, nil
}

// validatePickedPackages checks barcodes for duplicates before any remote call
func validatePickedPackages(ofr *domain.OrderFulfillmentRequest, pkgs []PickedPackageInput) (items, packages []string, err error) {
	if len(pkgs) == 0 {
		return nil, nil, errors.ErrValidation("at least one package is required")
	}

	existing := make(map[string]struct{}, len(ofr.Packages))
	for _, p := range ofr.Packages {
		existing[p.Barcode] = struct{}{}
	}
	seenItems := make(map[string]struct{})
	for _, p := range pkgs {
		if p.Barcode == "" {
			return nil, nil, errors.ErrValidation("package barcode is required")
		}
		if _, dup := existing[p.Barcode]; dup {
			return nil, nil, errors.ErrValidation(fmt.Sprintf("package barcode %s is declared twice", p.Barcode)).
				WithDetail("barcode", p.Barcode)
		}
		existing[p.Barcode] = struct{}{}
		if len(p.ItemBarcodes) == 0 {
			return nil, nil, errors.ErrValidation(fmt.Sprintf("package %s holds no items", p.Barcode)).
				WithDetail("barcode", p.Barcode)
		}
		for _, b := range p.ItemBarcodes {
			if _, dup := seenItems[b]; dup {
				return nil, nil, errors.ErrValidation(fmt.Sprintf("item %s is picked twice", b)).WithDetail("barcode", b)
			}
			seenItems[b] = struct{}{}
			items = append(items, b)
		}
		packages = append(packages, p.Barcode)
	}
	return items, packages, nil
}

// matchPickedItems assigns each storage item to an open line of the same SKU
func matchPickedItems(ofr *domain.OrderFulfillmentRequest, pkgs []PickedPackageInput, byBarcode map[string]StorageItem) ([]domain.Package, []sourceClaim, error) {
	remaining := make([]int, len(ofr.LineItems))
	for i, li := range ofr.LineItems {
		remaining[i] = li.OrderedQuantity - li.TotalQuantityPicked
	}

	var (
		packages []domain.Package
		claims   []sourceClaim
	)
	for _, p := range pkgs {
		pkg := domain.Package{
			PackageID:  uuid.New().String(),
			Barcode:    p.Barcode,
			Dimensions: p.Dimensions,
			Weight:     p.Weight,
		}
		perLine := make(map[int]int)
		for _, b := range p.ItemBarcodes {
			item, ok := byBarcode[b]
			if !ok {
				return nil, nil, errors.ErrNotFoundWithID("storage item", b)
			}
			line := -1
			for i, li := range ofr.LineItems {
				if li.SKUID == item.SKUID && remaining[i] > 0 {
					line = i
					break
				}
			}
			if line < 0 {
				return nil, nil, errors.ErrValidation(fmt.Sprintf("item %s (SKU %s) is not open on %s", b, item.SKUID, ofr.FulfillmentID)).
					WithDetail("barcode", b)
			}
			remaining[line]--
			perLine[line]++
			li := ofr.LineItems[line]
			claims = append(claims, sourceClaim{
				LineItemID:    li.LineItemID,
				SKUID:         li.SKUID,
				PackageID:     pkg.PackageID,
				BucketID:      item.BucketID,
				LocationID:    item.LocationID,
				StorageItemID: item.StorageItemID,
				Barcode:       item.Barcode,
				Quantity:      1,
			})
		}
		for i, li := range ofr.LineItems {
			if n := perLine[i]; n > 0 {
				pkg.AssignedItems = append(pkg.AssignedItems, domain.PackageItem{LineItemID: li.LineItemID, SKUID: li.SKUID, Quantity: n})
			}
		}
		packages = append(packages, pkg)
	}
	return packages, claims, nil
}

func applyPickedItems(ofr *domain.OrderFulfillmentRequest, packages []domain.Package, claims []sourceClaim, res *reservation) error {
	for _, c := range claims {
		d, _ := res.debitFor(c.BucketID)
		for i := range ofr.LineItems {
			li := &ofr.LineItems[i]
			if li.LineItemID != c.LineItemID {
				continue
			}
			li.AllocatedItems = append(li.AllocatedItems, domain.AllocatedItem{
				StorageItemID: c.StorageItemID,
				Barcode:       c.Barcode,
				BucketID:      c.BucketID,
				LocationID:    c.LocationID,
				PackageID:     c.PackageID,
				TransactionID: d.TransactionID,
			})
			li.TotalQuantityPicked++
		}
	}
	for _, d := range res.Debits {
		ofr.RecordInventoryDebit(d.toDomain())
	}
	if err := ofr.AddPackages(packages); err != nil {
		return err
	}
	return ofr.CheckInvariants()
}
