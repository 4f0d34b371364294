package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/errors"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tracing"
)

const transactionTypeOutbound = "OUTBOUND_FULFILLMENT"

// Saga step names
const (
	stepVerify      = "verify-sources"
	stepDebit       = "debit-inventory"
	stepConsume     = "consume-package-barcodes"
	stepAllocateIDs = "allocate-identifiers"
	stepAudit       = "create-transactions"
)

// sourceClaim is one quantity of inventory a line/package pairing consumes
type sourceClaim struct {
	LineItemID    string
	SKUID         string
	PackageID     string
	BucketID      string
	ContainerID   string
	LocationID    string
	StorageItemID string
	Barcode       string
	Quantity      int
}

// debitSource groups the claims settled by one debit call
type debitSource struct {
	BucketID string
	SKUID    string
	Claims   []sourceClaim
}

func (s debitSource) quantity() int {
	total := 0
	for _, c := range s.Claims {
		total += c.Quantity
	}
	return total
}

func (s debitSource) containerID() string {
	if len(s.Claims) == 0 {
		return ""
	}
	return s.Claims[0].ContainerID
}

// breakdown sums claim quantities per location, in first-seen order
func (s debitSource) breakdown() []domain.LocationQuantity {
	var out []domain.LocationQuantity
	index := make(map[string]int)
	for _, c := range s.Claims {
		if c.LocationID == "" {
			continue
		}
		if i, ok := index[c.LocationID]; ok {
			out[i].Quantity += c.Quantity
			continue
		}
		index[c.LocationID] = len(out)
		out = append(out, domain.LocationQuantity{LocationID: c.LocationID, Quantity: c.Quantity})
	}
	return out
}

// groupSources groups claims by bucket, in first-seen order
func groupSources(claims []sourceClaim) []debitSource {
	var out []debitSource
	index := make(map[string]int)
	for _, c := range claims {
		if i, ok := index[c.BucketID]; ok {
			out[i].Claims = append(out[i].Claims, c)
			continue
		}
		index[c.BucketID] = len(out)
		out = append(out, debitSource{BucketID: c.BucketID, SKUID: c.SKUID, Claims: []sourceClaim{c}})
	}
	return out
}

// topologyAdapter is what differs between the inventory topologies
type topologyAdapter interface {
	fulfillmentType() domain.FulfillmentType
	// unitKey names the physical unit a claim consumes
	unitKey(c sourceClaim) string
	validateClaim(c sourceClaim) error
	verify(src debitSource, bucket Bucket) error
	debit(ctx context.Context, inv InventoryGateway, src debitSource, reference string) (*DebitResult, error)
	transactionBreakdown(src debitSource) []domain.LocationQuantity
}

// sagaPlan is the input of one reservation run
type sagaPlan struct {
	AccountID       string
	Claims          []sourceClaim
	ConsumeBarcodes []string
	// Reference is quoted on debits, before a fulfillment id may exist
	Reference string
	// FulfillmentID is allocated by the saga when empty
	FulfillmentID string
	IssueGIN      bool
}

// appliedDebit is one row of the reduction ledger
type appliedDebit struct {
	Source        debitSource
	Result        DebitResult
	Breakdown     []domain.LocationQuantity
	TransactionID string
}

func (d appliedDebit) toDomain() domain.InventoryDebit {
	return domain.InventoryDebit{
		BucketID:       d.Source.BucketID,
		SKUID:          d.Source.SKUID,
		Quantity:       d.Source.quantity(),
		BeforeQuantity: d.Result.BeforeQuantity,
		AfterQuantity:  d.Result.AfterQuantity,
		TransactionID:  d.TransactionID,
	}
}

// reservation is the outcome of a successful run
type reservation struct {
	FulfillmentID string
	GINNumber     string
	Debits        []appliedDebit
}

// transactionsCreated counts debits with an audit transaction
func (r *reservation) transactionsCreated() int {
	n := 0
	for _, d := range r.Debits {
		if d.TransactionID != "" {
			n++
		}
	}
	return n
}

// debitFor returns the ledger row of a bucket
func (r *reservation) debitFor(bucketID string) (appliedDebit, bool) {
	for _, d := range r.Debits {
		if d.Source.BucketID == bucketID {
			return d, true
		}
	}
	return appliedDebit{}, false
}

// reservationSaga verifies, debits and audits inventory for every topology.
// Debits are not compensated; a failure after the first debit reports the
// applied buckets so they can be reconciled.
type reservationSaga struct {
	inventory InventoryGateway
	allocator SequenceAllocator
	logger    *logging.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

func newReservationSaga(inventory InventoryGateway, allocator SequenceAllocator, logger *logging.Logger, m *metrics.Metrics) *reservationSaga {
	return &reservationSaga{
		inventory: inventory,
		allocator: allocator,
		logger:    logger.WithComponent("reservation-saga"),
		metrics:   m,
		tracer:    otel.Tracer("outbound-fulfillment/reservation-saga"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// validateClaims checks claim shape and unit uniqueness before any remote call
func validateClaims(adapter topologyAdapter, claims []sourceClaim) error {
	if len(claims) == 0 {
		return errors.ErrValidation("at least one inventory source is required")
	}
	seen := make(map[string]string, len(claims))
	for _, c := range claims {
		if c.Quantity <= 0 {
			return errors.ErrValidation(fmt.Sprintf("source %s must have a positive quantity", c.BucketID))
		}
		if err := adapter.validateClaim(c); err != nil {
			return err
		}
		key := adapter.unitKey(c)
		pairing := c.LineItemID + "/" + c.PackageID
		if owner, ok := seen[key]; ok {
			return errors.ErrValidation(fmt.Sprintf("inventory unit %s is referenced by %s and %s", key, owner, pairing)).
				WithDetail("unit", key)
		}
		seen[key] = pairing
	}
	return nil
}

func (s *reservationSaga) run(ctx context.Context, adapter topologyAdapter, plan sagaPlan) (res *reservation, err error) {
	topology := string(adapter.fulfillmentType())
	ctx, span := s.tracer.Start(ctx, "reservation-saga",
		trace.WithAttributes(attribute.String("fulfillment.type", topology)))
	defer func() { tracing.EndSpan(span, err) }()

	if err := validateClaims(adapter, plan.Claims); err != nil {
		return nil, err
	}
	sources := groupSources(plan.Claims)

	err = s.step(ctx, topology, stepVerify, func(ctx context.Context) error {
		return s.verify(ctx, adapter, sources)
	})
	if err != nil {
		return nil, err
	}

	// Past this point inventory changes; client cancellation no longer stops the run.
	ctx = context.WithoutCancel(ctx)
	res = &reservation{FulfillmentID: plan.FulfillmentID}

	err = s.step(ctx, topology, stepDebit, func(ctx context.Context) error {
		for _, src := range sources {
			result, err := adapter.debit(ctx, s.inventory, src, plan.Reference)
			s.metrics.RecordInventoryDebit(topology, err == nil)
			if err != nil {
				return s.abort(ctx, topology, res, errors.ErrDependencyFailed("inventory", "debit").
					WithDetail("bucketId", src.BucketID), err)
			}
			res.Debits = append(res.Debits, appliedDebit{
				Source:    src,
				Result:    *result,
				Breakdown: adapter.transactionBreakdown(src),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(plan.ConsumeBarcodes) > 0 {
		err = s.step(ctx, topology, stepConsume, func(ctx context.Context) error {
			if err := s.inventory.ConsumePackageBarcodes(ctx, plan.ConsumeBarcodes); err != nil {
				return s.abort(ctx, topology, res, errors.ErrDependencyFailed("inventory", "consumePackageBarcodes"), err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	err = s.step(ctx, topology, stepAllocateIDs, func(ctx context.Context) error {
		if res.FulfillmentID == "" {
			id, err := s.allocator.Allocate(ctx, domain.FulfillmentIDSequence())
			if err != nil {
				return s.abort(ctx, topology, res, errors.ErrInternal("fulfillment id allocation failed"), err)
			}
			res.FulfillmentID = id
		}
		if plan.IssueGIN {
			gin, err := s.allocator.Allocate(ctx, domain.GINSequence(s.now()))
			if err != nil {
				return s.abort(ctx, topology, res, errors.ErrInternal("gin number allocation failed"), err)
			}
			res.GINNumber = gin
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.step(ctx, topology, stepAudit, func(ctx context.Context) error {
		s.audit(ctx, plan.AccountID, res)
		return nil
	})

	span.SetAttributes(
		attribute.String("fulfillment.id", res.FulfillmentID),
		attribute.Int("inventory.debits", len(res.Debits)),
	)
	return res, nil
}

// verify fails before any debit on a missing bucket, a mismatch or a shortfall
func (s *reservationSaga) verify(ctx context.Context, adapter topologyAdapter, sources []debitSource) error {
	ids := make([]string, len(sources))
	for i, src := range sources {
		ids[i] = src.BucketID
	}

	buckets, err := s.inventory.GetBuckets(ctx, ids)
	if err != nil {
		return dependencyError("inventory", "getBuckets", err)
	}
	byID := make(map[string]Bucket, len(buckets))
	for _, b := range buckets {
		byID[b.BucketID] = b
	}

	for _, src := range sources {
		bucket, ok := byID[src.BucketID]
		if !ok {
			return errors.ErrNotFoundWithID("bucket", src.BucketID)
		}
		if bucket.SKUID != src.SKUID {
			return errors.ErrValidation(fmt.Sprintf("bucket %s holds SKU %s, not %s", bucket.BucketID, bucket.SKUID, src.SKUID)).
				WithDetail("bucketId", bucket.BucketID)
		}
		if err := adapter.verify(src, bucket); err != nil {
			return err
		}
	}
	return nil
}

// audit writes one transaction per debit; failures leave the transaction id empty
func (s *reservationSaga) audit(ctx context.Context, accountID string, res *reservation) {
	for i := range res.Debits {
		d := &res.Debits[i]
		txID, err := s.inventory.CreateTransaction(ctx, TransactionRequest{
			TransactionType:   transactionTypeOutbound,
			AccountID:         accountID,
			BucketID:          d.Source.BucketID,
			SKUID:             d.Source.SKUID,
			Quantity:          d.Source.quantity(),
			BeforeQuantity:    d.Result.BeforeQuantity,
			AfterQuantity:     d.Result.AfterQuantity,
			LocationBreakdown: d.Breakdown,
			Reference:         res.FulfillmentID,
		})
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to record inventory transaction",
				"fulfillmentId", res.FulfillmentID,
				"bucketId", d.Source.BucketID,
			)
			continue
		}
		d.TransactionID = txID
	}
}

// abort flags any debits already applied and returns appErr
func (s *reservationSaga) abort(ctx context.Context, topology string, res *reservation, appErr *errors.AppError, cause error) error {
	if len(res.Debits) > 0 {
		applied := make([]string, len(res.Debits))
		for i, d := range res.Debits {
			applied[i] = d.Source.BucketID
		}
		appErr.WithDetail("appliedDebits", strings.Join(applied, ","))
		s.logger.WithContext(ctx).WithError(cause).Error("Inventory debits left uncompensated",
			"topology", topology,
			"fulfillmentId", res.FulfillmentID,
			"appliedDebits", applied,
		)
		s.metrics.RecordUncompensatedDebits(topology, len(applied))
	}
	return appErr.Wrap(cause)
}

func (s *reservationSaga) step(ctx context.Context, topology, name string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "saga."+name)
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	tracing.EndSpan(span, err)
	s.logger.SagaStep(ctx, topology, name, duration, err)
	s.metrics.RecordSagaStep(name, err == nil, duration)
	return err
}

// dependencyError keeps typed gateway errors and wraps everything else as DEPENDENCY_FAILED
func dependencyError(service, operation string, err error) error {
	if appErr, ok := errors.AsAppError(err); ok && appErr.Code != errors.CodeInternalError {
		return appErr
	}
	return errors.ErrDependencyFailed(service, operation).Wrap(err)
}
