package domain

import (
	"errors"
	"fmt"
	"time"
)

// Aggregate errors
var (
	ErrFulfillmentNotFound     = errors.New("fulfillment not found")
	ErrMissingFulfillmentID    = errors.New("fulfillment id is required")
	ErrInvalidFulfillmentType  = errors.New("invalid fulfillment type")
	ErrInvalidApproach         = errors.New("invalid execution approach")
	ErrNoLineItems             = errors.New("fulfillment must have at least one line item")
	ErrQuantityMismatch        = errors.New("source quantities do not sum to quantity picked")
	ErrDuplicateInventoryUnit  = errors.New("inventory unit referenced more than once")
	ErrDuplicatePackageBarcode = errors.New("package barcode used more than once")
	ErrPackageNotFound         = errors.New("package not found")
	ErrPackageNotDropped       = errors.New("package not dropped at dispatch")
	ErrGINAlreadyIssued        = errors.New("gin number already issued")
	ErrGINNotIssued            = errors.New("gin number not issued")
	ErrWrongFulfillmentType    = errors.New("operation not supported for this fulfillment type")
	ErrConcurrentModification  = errors.New("fulfillment was modified concurrently")
)

// FulfillmentType is the inventory topology of an OFR
type FulfillmentType string

const (
	FulfillmentTypeTaskBased         FulfillmentType = "TASK_BASED"
	FulfillmentTypeContainerQuantity FulfillmentType = "CONTAINER_QUANTITY_BASED"
	FulfillmentTypeLocationQuantity  FulfillmentType = "LOCATION_QUANTITY_BASED"
)

// IsValid checks if the fulfillment type is known
func (t FulfillmentType) IsValid() bool {
	switch t {
	case FulfillmentTypeTaskBased, FulfillmentTypeContainerQuantity, FulfillmentTypeLocationQuantity:
		return true
	}
	return false
}

// IsQuantityBased reports whether the topology is recorded after the fact
func (t FulfillmentType) IsQuantityBased() bool {
	return t == FulfillmentTypeContainerQuantity || t == FulfillmentTypeLocationQuantity
}

// ExecutionApproach is how warehouse work is split into tasks
type ExecutionApproach string

const (
	ApproachSeparatedPicking     ExecutionApproach = "SEPARATED_PICKING"
	ApproachPickPackMoveTogether ExecutionApproach = "PICK_PACK_MOVE_TOGETHER"
)

// IsValid checks if the approach is known
func (a ExecutionApproach) IsValid() bool {
	return a == ApproachSeparatedPicking || a == ApproachPickPackMoveTogether
}

// LocationAllocation is a candidate pick location planned at creation
type LocationAllocation struct {
	LocationID string `bson:"locationId" json:"locationId"`
	BucketID   string `bson:"bucketId" json:"bucketId"`
	Quantity   int    `bson:"quantity" json:"quantity"`
}

// AllocatedItem is one picked storage item on a task-based line
type AllocatedItem struct {
	StorageItemID string `bson:"storageItemId" json:"storageItemId"`
	Barcode       string `bson:"barcode" json:"barcode"`
	BucketID      string `bson:"bucketId" json:"bucketId"`
	LocationID    string `bson:"locationId,omitempty" json:"locationId,omitempty"`
	PackageID     string `bson:"packageId" json:"packageId"`
	TransactionID string `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
}

// LocationQuantity is a per-location share of a debit
type LocationQuantity struct {
	LocationID string `bson:"locationId" json:"locationId"`
	Quantity   int    `bson:"quantity" json:"quantity"`
}

// QuantityInventoryReference records one source consumed by a quantity-based line
type QuantityInventoryReference struct {
	BucketID       string `bson:"bucketId" json:"bucketId"`
	ContainerID    string `bson:"containerId,omitempty" json:"containerId,omitempty"`
	LocationID     string `bson:"locationId,omitempty" json:"locationId,omitempty"`
	PackageID      string `bson:"packageId" json:"packageId"`
	QuantityPicked int    `bson:"quantityPicked" json:"quantityPicked"`
	BeforeQuantity int    `bson:"beforeQuantity" json:"beforeQuantity"`
	AfterQuantity  int    `bson:"afterQuantity" json:"afterQuantity"`
	TransactionID  string `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
}

// unitKey identifies the physical inventory unit a reference consumes.
// Location-quantity fulfillment consumes a bucket per location; every other
// topology consumes the bucket as a whole.
func (r QuantityInventoryReference) unitKey(ft FulfillmentType) string {
	if ft == FulfillmentTypeLocationQuantity {
		return r.BucketID + "@" + r.LocationID
	}
	return r.BucketID
}

// LineItem is one ordered SKU
type LineItem struct {
	LineItemID                  string                       `bson:"lineItemId" json:"lineItemId"`
	SKUID                       string                       `bson:"skuId" json:"skuId"`
	ItemType                    string                       `bson:"itemType,omitempty" json:"itemType,omitempty"`
	OrderedQuantity             int                          `bson:"orderedQuantity" json:"orderedQuantity"`
	TotalQuantityPicked         int                          `bson:"totalQuantityPicked" json:"totalQuantityPicked"`
	ShippedQuantity             int                          `bson:"shippedQuantity" json:"shippedQuantity"`
	TieBreakMethod              string                       `bson:"tieBreakMethod,omitempty" json:"tieBreakMethod,omitempty"`
	PlannedLocations            []LocationAllocation         `bson:"plannedLocations,omitempty" json:"plannedLocations,omitempty"`
	AllocatedItems              []AllocatedItem              `bson:"allocatedItems,omitempty" json:"allocatedItems,omitempty"`
	QuantityInventoryReferences []QuantityInventoryReference `bson:"quantityInventoryReferences,omitempty" json:"quantityInventoryReferences,omitempty"`
}

// SourcedQuantity sums what the line's sources account for
func (li LineItem) SourcedQuantity() int {
	if len(li.AllocatedItems) > 0 {
		return len(li.AllocatedItems)
	}
	total := 0
	for _, ref := range li.QuantityInventoryReferences {
		total += ref.QuantityPicked
	}
	return total
}

// Dimensions of a package in centimetres
type Dimensions struct {
	Length float64 `bson:"length" json:"length"`
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
}

// PackageItem is a quantity of one line placed in a package
type PackageItem struct {
	LineItemID string `bson:"lineItemId" json:"lineItemId"`
	SKUID      string `bson:"skuId" json:"skuId"`
	Quantity   int    `bson:"quantity" json:"quantity"`
}

// Package is a shippable unit
type Package struct {
	PackageID         string        `bson:"packageId" json:"packageId"`
	Barcode           string        `bson:"barcode" json:"barcode"`
	Dimensions        *Dimensions   `bson:"dimensions,omitempty" json:"dimensions,omitempty"`
	Weight            float64       `bson:"weight,omitempty" json:"weight,omitempty"`
	AssignedItems     []PackageItem `bson:"assignedItems" json:"assignedItems"`
	DroppedAtDispatch bool          `bson:"droppedAtDispatch" json:"droppedAtDispatch"`
	DroppedAt         *time.Time    `bson:"droppedAt,omitempty" json:"droppedAt,omitempty"`
	LoadedOnTruck     bool          `bson:"loadedOnTruck" json:"loadedOnTruck"`
	LoadedAt          *time.Time    `bson:"loadedAt,omitempty" json:"loadedAt,omitempty"`
}

// Units returns the number of units packed
func (p Package) Units() int {
	total := 0
	for _, item := range p.AssignedItems {
		total += item.Quantity
	}
	return total
}

// Address is a postal address
type Address struct {
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

// Label statuses
const (
	LabelStatusNotRequested = "NOT_REQUESTED"
	LabelStatusCreated      = "CREATED"
	LabelStatusFailed       = "FAILED"
)

// ShippingDetails carries carrier and vehicle information
type ShippingDetails struct {
	CarrierCode    string   `bson:"carrierCode,omitempty" json:"carrierCode,omitempty"`
	ServiceType    string   `bson:"serviceType,omitempty" json:"serviceType,omitempty"`
	ShipToName     string   `bson:"shipToName,omitempty" json:"shipToName,omitempty"`
	ShipToAddress  *Address `bson:"shipToAddress,omitempty" json:"shipToAddress,omitempty"`
	AWBNumber      string   `bson:"awbNumber,omitempty" json:"awbNumber,omitempty"`
	TrackingNumber string   `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	LabelURL       string   `bson:"labelUrl,omitempty" json:"labelUrl,omitempty"`
	LabelStatus    string   `bson:"labelStatus,omitempty" json:"labelStatus,omitempty"`
	VehicleNumber  string   `bson:"vehicleNumber,omitempty" json:"vehicleNumber,omitempty"`
	DriverName     string   `bson:"driverName,omitempty" json:"driverName,omitempty"`
}

// GINNotification tracks delivery of the goods issue note
type GINNotification struct {
	Sent       bool       `bson:"sent" json:"sent"`
	SentAt     *time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	Recipients []string   `bson:"recipients,omitempty" json:"recipients,omitempty"`
}

// QuantitySourceDetails summarises the sources of a quantity-based OFR
type QuantitySourceDetails struct {
	SourceType  string `bson:"sourceType" json:"sourceType"`
	SourcesUsed int    `bson:"sourcesUsed" json:"sourcesUsed"`
	TotalUnits  int    `bson:"totalUnits" json:"totalUnits"`
}

// Task kinds
const (
	TaskKindPicking      = "PICKING"
	TaskKindPickPackMove = "PICK_PACK_MOVE"
	TaskKindPackMove     = "PACK_MOVE"
)

// TaskReferences links an OFR to its warehouse tasks
type TaskReferences struct {
	PickingTaskCode  string `bson:"pickingTaskCode,omitempty" json:"pickingTaskCode,omitempty"`
	PickingTaskKind  string `bson:"pickingTaskKind,omitempty" json:"pickingTaskKind,omitempty"`
	PackMoveTaskCode string `bson:"packMoveTaskCode,omitempty" json:"packMoveTaskCode,omitempty"`
}

// OrderFulfillmentRequest is the aggregate root for one customer order being fulfilled
type OrderFulfillmentRequest struct {
	ID                    string                 `bson:"_id,omitempty" json:"-"`
	FulfillmentID         string                 `bson:"fulfillmentId" json:"fulfillmentId"`
	Version               int64                  `bson:"version" json:"version"`
	TenantID              string                 `bson:"tenantId,omitempty" json:"tenantId,omitempty"`
	FacilityID            string                 `bson:"facilityId,omitempty" json:"facilityId,omitempty"`
	WarehouseID           string                 `bson:"warehouseId,omitempty" json:"warehouseId,omitempty"`
	AccountID             string                 `bson:"accountId" json:"accountId"`
	ExternalOrderID       string                 `bson:"externalOrderId,omitempty" json:"externalOrderId,omitempty"`
	FulfillmentSource     string                 `bson:"fulfillmentSource,omitempty" json:"fulfillmentSource,omitempty"`
	FulfillmentType       FulfillmentType        `bson:"fulfillmentType" json:"fulfillmentType"`
	ExecutionApproach     ExecutionApproach      `bson:"executionApproach,omitempty" json:"executionApproach,omitempty"`
	FulfillmentStatus     StatusEntry            `bson:"fulfillmentStatus" json:"fulfillmentStatus"`
	StatusHistory         StatusLog              `bson:"statusHistory" json:"statusHistory"`
	LineItems             []LineItem             `bson:"lineItems" json:"lineItems"`
	Packages              []Package              `bson:"packages,omitempty" json:"packages"`
	QuantitySourceDetails *QuantitySourceDetails `bson:"quantitySourceDetails,omitempty" json:"quantitySourceDetails,omitempty"`
	ShippingDetails       *ShippingDetails       `bson:"shippingDetails,omitempty" json:"shippingDetails,omitempty"`
	TaskReferences        TaskReferences         `bson:"taskReferences" json:"taskReferences"`
	GINNumber             string                 `bson:"ginNumber,omitempty" json:"ginNumber,omitempty"`
	GINNotification       *GINNotification       `bson:"ginNotification,omitempty" json:"ginNotification,omitempty"`
	CancellationReason    string                 `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CreatedAt             time.Time              `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time              `bson:"updatedAt" json:"updatedAt"`
	CreatedBy             string                 `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy             string                 `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`

	// Domain events (not persisted)
	domainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewFulfillmentParams holds what every topology supplies at creation
type NewFulfillmentParams struct {
	FulfillmentID     string
	AccountID         string
	ExternalOrderID   string
	FulfillmentSource string
	FulfillmentType   FulfillmentType
	ExecutionApproach ExecutionApproach
	InitialStatus     Status
	LineItems         []LineItem
	Packages          []Package
	ShippingDetails   *ShippingDetails
	TenantID          string
	FacilityID        string
	WarehouseID       string
	CreatedBy         string
	CreatedAt         time.Time
}

// NewOrderFulfillmentRequest creates an OFR in its initial status
func NewOrderFulfillmentRequest(p NewFulfillmentParams) (*OrderFulfillmentRequest, error) {
	if !p.FulfillmentType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFulfillmentType, p.FulfillmentType)
	}
	if p.ExecutionApproach != "" && !p.ExecutionApproach.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidApproach, p.ExecutionApproach)
	}
	if p.FulfillmentID == "" {
		return nil, ErrMissingFulfillmentID
	}
	if len(p.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	log, err := NewStatusLog(p.InitialStatus, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return nil, err
	}

	ofr := &OrderFulfillmentRequest{
		FulfillmentID:     p.FulfillmentID,
		TenantID:          p.TenantID,
		FacilityID:        p.FacilityID,
		WarehouseID:       p.WarehouseID,
		AccountID:         p.AccountID,
		ExternalOrderID:   p.ExternalOrderID,
		FulfillmentSource: p.FulfillmentSource,
		FulfillmentType:   p.FulfillmentType,
		ExecutionApproach: p.ExecutionApproach,
		FulfillmentStatus: log.Current(),
		StatusHistory:     log,
		LineItems:         p.LineItems,
		Packages:          p.Packages,
		ShippingDetails:   p.ShippingDetails,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.CreatedAt,
		CreatedBy:         p.CreatedBy,
		UpdatedBy:         p.CreatedBy,
	}

	if err := ofr.CheckInvariants(); err != nil {
		return nil, err
	}

	ofr.addDomainEvent(NewFulfillmentCreatedEvent(ofr))
	return ofr, nil
}

// Status returns the current status
func (o *OrderFulfillmentRequest) Status() Status {
	return o.StatusHistory.Current().Status
}

// TransitionTo moves the OFR to a new status
func (o *OrderFulfillmentRequest) TransitionTo(to Status, by, reason string, at time.Time) error {
	next, err := o.StatusHistory.Transition(to, by, reason, at)
	if err != nil {
		return err
	}
	o.applyStatus(next, by, at)
	return nil
}

// Hold places the OFR on hold
func (o *OrderFulfillmentRequest) Hold(by, reason string, at time.Time) error {
	return o.TransitionTo(StatusOnHold, by, reason, at)
}

// Resume returns an ON_HOLD OFR to the status it was held from
func (o *OrderFulfillmentRequest) Resume(by, reason string, at time.Time) error {
	next, err := o.StatusHistory.Resume(by, reason, at)
	if err != nil {
		return err
	}
	o.applyStatus(next, by, at)
	return nil
}

// Cancel cancels the OFR; it is never deleted
func (o *OrderFulfillmentRequest) Cancel(by, reason string, at time.Time) error {
	if err := o.TransitionTo(StatusCancelled, by, reason, at); err != nil {
		return err
	}
	o.CancellationReason = reason
	return nil
}

func (o *OrderFulfillmentRequest) applyStatus(next StatusLog, by string, at time.Time) {
	o.StatusHistory = next
	o.FulfillmentStatus = next.Current()
	o.touch(by, at)
	o.addDomainEvent(NewStatusChangedEvent(o, o.FulfillmentStatus))
}

func (o *OrderFulfillmentRequest) touch(by string, at time.Time) {
	o.UpdatedAt = at
	if by != "" {
		o.UpdatedBy = by
	}
}

// AssignPickingTask records the picking task created for the OFR
func (o *OrderFulfillmentRequest) AssignPickingTask(code, kind string) {
	o.TaskReferences.PickingTaskCode = code
	o.TaskReferences.PickingTaskKind = kind
}

// AssignPackMoveTask records the pack-move task created after picking
func (o *OrderFulfillmentRequest) AssignPackMoveTask(code string) {
	o.TaskReferences.PackMoveTaskCode = code
}

// IssueGIN sets the goods issue note number exactly once
func (o *OrderFulfillmentRequest) IssueGIN(number string) error {
	if o.GINNumber != "" {
		return ErrGINAlreadyIssued
	}
	o.GINNumber = number
	o.GINNotification = &GINNotification{}
	o.addDomainEvent(NewGINIssuedEvent(o))
	return nil
}

// MarkGINSent records that the GIN notification went out
func (o *OrderFulfillmentRequest) MarkGINSent(recipients []string, by string, at time.Time) error {
	if o.GINNumber == "" {
		return ErrGINNotIssued
	}
	sentAt := at
	o.GINNotification = &GINNotification{Sent: true, SentAt: &sentAt, Recipients: recipients}
	o.touch(by, at)
	o.addDomainEvent(NewGINNotificationSentEvent(o))
	return nil
}

// GINSent reports whether a GIN exists and its notification was sent
func (o *OrderFulfillmentRequest) GINSent() bool {
	return o.GINNumber != "" && o.GINNotification != nil && o.GINNotification.Sent
}

// AddPackages appends new packages, rejecting barcodes already on the OFR
func (o *OrderFulfillmentRequest) AddPackages(pkgs []Package) error {
	seen := o.packageBarcodes()
	for _, p := range pkgs {
		if _, dup := seen[p.Barcode]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePackageBarcode, p.Barcode)
		}
		seen[p.Barcode] = struct{}{}
	}
	o.Packages = append(o.Packages, pkgs...)
	return nil
}

// DropAtDispatch flags packages as dropped at the dispatch area. The flag never reverts.
func (o *OrderFulfillmentRequest) DropAtDispatch(barcodes []string, by string, at time.Time) error {
	idx, err := o.packageIndexes(barcodes)
	if err != nil {
		return err
	}
	for _, i := range idx {
		p := &o.Packages[i]
		if !p.DroppedAtDispatch {
			dropped := at
			p.DroppedAtDispatch = true
			p.DroppedAt = &dropped
		}
	}
	o.touch(by, at)
	return nil
}

// LoadOnTruck flags dropped packages as loaded. The flag never reverts.
func (o *OrderFulfillmentRequest) LoadOnTruck(barcodes []string, by string, at time.Time) error {
	idx, err := o.packageIndexes(barcodes)
	if err != nil {
		return err
	}
	for _, i := range idx {
		if !o.Packages[i].DroppedAtDispatch {
			return fmt.Errorf("%w: %s", ErrPackageNotDropped, o.Packages[i].Barcode)
		}
	}
	for _, i := range idx {
		p := &o.Packages[i]
		if !p.LoadedOnTruck {
			loaded := at
			p.LoadedOnTruck = true
			p.LoadedAt = &loaded
		}
	}
	o.touch(by, at)
	return nil
}

// AllPackagesLoaded reports whether every package is on the truck
func (o *OrderFulfillmentRequest) AllPackagesLoaded() bool {
	if len(o.Packages) == 0 {
		return false
	}
	for _, p := range o.Packages {
		if !p.LoadedOnTruck {
			return false
		}
	}
	return true
}

// MarkLinesShipped sets shipped counters to the picked counters
func (o *OrderFulfillmentRequest) MarkLinesShipped() {
	for i := range o.LineItems {
		o.LineItems[i].ShippedQuantity = o.LineItems[i].TotalQuantityPicked
	}
}

func (o *OrderFulfillmentRequest) packageIndexes(barcodes []string) ([]int, error) {
	byBarcode := make(map[string]int, len(o.Packages))
	for i, p := range o.Packages {
		byBarcode[p.Barcode] = i
	}
	out := make([]int, 0, len(barcodes))
	for _, b := range barcodes {
		i, ok := byBarcode[b]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, b)
		}
		out = append(out, i)
	}
	return out, nil
}

func (o *OrderFulfillmentRequest) packageBarcodes() map[string]struct{} {
	seen := make(map[string]struct{}, len(o.Packages))
	for _, p := range o.Packages {
		seen[p.Barcode] = struct{}{}
	}
	return seen
}

// TotalUnits returns the number of units picked across all lines
func (o *OrderFulfillmentRequest) TotalUnits() int {
	total := 0
	for _, li := range o.LineItems {
		total += li.TotalQuantityPicked
	}
	return total
}

// Snapshot extracts the facts stage classification depends on
func (o *OrderFulfillmentRequest) Snapshot() Snapshot {
	return Snapshot{
		ExecutionApproach: o.ExecutionApproach,
		HasPickingTask:    o.TaskReferences.PickingTaskCode != "",
		HasPackMoveTask:   o.TaskReferences.PackMoveTaskCode != "",
		Current:           o.Status(),
		PickedInHistory:   o.StatusHistory.Contains(StatusPicked),
		GINSent:           o.GINSent(),
	}
}

// Stage derives the dashboard stage from persisted facts
func (o *OrderFulfillmentRequest) Stage() Stage {
	return ClassifyStage(o.Snapshot())
}

// CheckInvariants verifies the aggregate before it is persisted
func (o *OrderFulfillmentRequest) CheckInvariants() error {
	if err := o.StatusHistory.Validate(); err != nil {
		return err
	}
	if o.FulfillmentStatus != o.StatusHistory.Current() {
		return ErrStatusCacheMismatch
	}

	units := make(map[string]string)
	for _, li := range o.LineItems {
		if li.SourcedQuantity() != li.TotalQuantityPicked {
			return fmt.Errorf("%w: line %s has %d sourced, %d picked",
				ErrQuantityMismatch, li.LineItemID, li.SourcedQuantity(), li.TotalQuantityPicked)
		}
		for _, item := range li.AllocatedItems {
			if err := claimUnit(units, item.StorageItemID, li.LineItemID, item.PackageID); err != nil {
				return err
			}
		}
		for _, ref := range li.QuantityInventoryReferences {
			if err := claimUnit(units, ref.unitKey(o.FulfillmentType), li.LineItemID, ref.PackageID); err != nil {
				return err
			}
		}
	}

	seen := make(map[string]struct{}, len(o.Packages))
	for _, p := range o.Packages {
		if _, dup := seen[p.Barcode]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePackageBarcode, p.Barcode)
		}
		seen[p.Barcode] = struct{}{}
	}
	return nil
}

// claimUnit allows a unit to be referenced by exactly one line/package pairing
func claimUnit(units map[string]string, unit, lineItemID, packageID string) error {
	if owner, ok := units[unit]; ok {
		return fmt.Errorf("%w: %s already used by %s", ErrDuplicateInventoryUnit, unit, owner)
	}
	units[unit] = lineItemID + "/" + packageID
	return nil
}

// Domain event handling

func (o *OrderFulfillmentRequest) addDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}

// RecordInventoryDebit records an applied debit as a domain event
func (o *OrderFulfillmentRequest) RecordInventoryDebit(debit InventoryDebit) {
	o.addDomainEvent(NewInventoryDebitedEvent(o.FulfillmentID, debit))
}

// DomainEvents returns all pending domain events
func (o *OrderFulfillmentRequest) DomainEvents() []DomainEvent {
	return o.domainEvents
}

// ClearDomainEvents clears all pending domain events
func (o *OrderFulfillmentRequest) ClearDomainEvents() {
	o.domainEvents = nil
}
