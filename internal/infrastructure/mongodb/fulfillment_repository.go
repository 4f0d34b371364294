package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	pkgmongo "github.com/wms-platform/outbound-fulfillment-service/pkg/mongodb"
	outboxMongo "github.com/wms-platform/outbound-fulfillment-service/pkg/outbox/mongodb"
)

const (
	CollectionFulfillments = "order_fulfillment_requests"

	indexFulfillmentID  = "idx_fulfillment_id"
	indexPackageBarcode = "idx_packages_barcode"

	maxPageSize = 100
)

// DatabaseResolver picks the database for the tenant carried by ctx
type DatabaseResolver interface {
	Database(ctx context.Context) (*mongo.Database, error)
}

// FulfillmentRepository implements domain.FulfillmentRepository using MongoDB.
// Every call resolves the tenant database first; indexes are created lazily per database.
type FulfillmentRepository struct {
	resolver     DatabaseResolver
	eventFactory *cloudevents.EventFactory
	logger       *logging.Logger
	metrics      *metrics.Metrics

	mu      sync.Mutex
	indexed map[string]bool
}

// NewFulfillmentRepository creates a new FulfillmentRepository
func NewFulfillmentRepository(resolver DatabaseResolver, eventFactory *cloudevents.EventFactory, logger *logging.Logger, m *metrics.Metrics) *FulfillmentRepository {
	return &FulfillmentRepository{
		resolver:     resolver,
		eventFactory: eventFactory,
		logger:       logger.WithComponent("fulfillment-repository"),
		metrics:      m,
		indexed:      make(map[string]bool),
	}
}

func fulfillmentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "fulfillmentId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexFulfillmentID),
		},
		{
			Keys: bson.D{{Key: "packages.barcode", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(indexPackageBarcode).
				SetPartialFilterExpression(bson.M{"packages.barcode": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{
				{Key: "fulfillmentStatus.status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "accountId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "externalOrderId", Value: 1}},
		},
	}
}

func (r *FulfillmentRepository) database(ctx context.Context) (*mongo.Database, error) {
	db, err := r.resolver.Database(ctx)
	if err != nil {
		return nil, err
	}
	r.ensureIndexes(ctx, db)
	return db, nil
}

func (r *FulfillmentRepository) collection(ctx context.Context) (*mongo.Collection, error) {
	db, err := r.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(CollectionFulfillments), nil
}

// ensureIndexes runs once per database; a failure is retried on the next call
func (r *FulfillmentRepository) ensureIndexes(ctx context.Context, db *mongo.Database) {
	key := db.Name()
	r.mu.Lock()
	done := r.indexed[key]
	r.mu.Unlock()
	if done {
		return
	}

	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := db.Collection(CollectionFulfillments).Indexes().CreateMany(ictx, fulfillmentIndexes()); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to create fulfillment indexes", "database", key)
		return
	}
	if err := outboxMongo.NewOutboxRepository(db).EnsureIndexes(ictx); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to create outbox indexes", "database", key)
		return
	}

	r.mu.Lock()
	r.indexed[key] = true
	r.mu.Unlock()
}

func (r *FulfillmentRepository) observe(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)
	r.metrics.RecordMongoDBOperation(CollectionFulfillments, operation, err == nil, duration)
	r.logger.DatabaseQuery(ctx, CollectionFulfillments, operation, duration, err)
}

// Create inserts a new aggregate with its domain events in a single transaction
func (r *FulfillmentRepository) Create(ctx context.Context, ofr *domain.OrderFulfillmentRequest) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "create", start, err) }()

	if err := ofr.CheckInvariants(); err != nil {
		return err
	}
	db, err := r.database(ctx)
	if err != nil {
		return err
	}

	ofr.ID = ofr.FulfillmentID
	ofr.Version = 1

	err = pkgmongo.WithTransaction(ctx, db, func(sessCtx mongo.SessionContext) error {
		if _, err := db.Collection(CollectionFulfillments).InsertOne(sessCtx, ofr); err != nil {
			if pkgmongo.IsDuplicateKey(err) {
				return duplicateKeyError(err)
			}
			return fmt.Errorf("failed to insert fulfillment: %w", err)
		}
		return r.saveEvents(sessCtx, db, ofr)
	})
	if err != nil {
		ofr.Version = 0
		return err
	}

	ofr.ClearDomainEvents()
	return nil
}

// Save replaces an aggregate if nobody else changed it since it was loaded
func (r *FulfillmentRepository) Save(ctx context.Context, ofr *domain.OrderFulfillmentRequest) (err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "save", start, err) }()

	if err := ofr.CheckInvariants(); err != nil {
		return err
	}
	db, err := r.database(ctx)
	if err != nil {
		return err
	}
	coll := db.Collection(CollectionFulfillments)

	if ofr.ID == "" {
		ofr.ID = ofr.FulfillmentID
	}
	loaded := ofr.Version
	ofr.Version = loaded + 1

	err = pkgmongo.WithTransaction(ctx, db, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{"fulfillmentId": ofr.FulfillmentID, "version": loaded}
		result, err := coll.ReplaceOne(sessCtx, filter, ofr)
		if err != nil {
			if pkgmongo.IsDuplicateKey(err) {
				return duplicateKeyError(err)
			}
			return fmt.Errorf("failed to replace fulfillment: %w", err)
		}
		if result.MatchedCount == 0 {
			n, err := coll.CountDocuments(sessCtx, bson.M{"fulfillmentId": ofr.FulfillmentID})
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrFulfillmentNotFound
			}
			return domain.ErrConcurrentModification
		}
		return r.saveEvents(sessCtx, db, ofr)
	})
	if err != nil {
		ofr.Version = loaded
		return err
	}

	ofr.ClearDomainEvents()
	return nil
}

func (r *FulfillmentRepository) saveEvents(sessCtx mongo.SessionContext, db *mongo.Database, ofr *domain.OrderFulfillmentRequest) error {
	events, err := toOutboxEvents(sessCtx, r.eventFactory, ofr)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := outboxMongo.NewOutboxRepository(db).SaveAll(sessCtx, events); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// FindByID retrieves a fulfillment by its FulfillmentID
func (r *FulfillmentRepository) FindByID(ctx context.Context, fulfillmentID string) (_ *domain.OrderFulfillmentRequest, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, domain.ErrFulfillmentNotFound) {
			r.observe(ctx, "find_by_id", start, nil)
			return
		}
		r.observe(ctx, "find_by_id", start, err)
	}()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	var ofr domain.OrderFulfillmentRequest
	if err := coll.FindOne(ctx, bson.M{"fulfillmentId": fulfillmentID}).Decode(&ofr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrFulfillmentNotFound
		}
		return nil, err
	}
	return &ofr, nil
}

// List returns one page of fulfillments matching filter, newest first
func (r *FulfillmentRepository) List(ctx context.Context, filter domain.ListFilter, page domain.Pagination) ([]*domain.OrderFulfillmentRequest, int64, error) {
	query := bson.M{}
	if filter.AccountID != "" {
		query["accountId"] = filter.AccountID
	}
	if filter.Status != "" {
		query["fulfillmentStatus.status"] = filter.Status
	}
	if filter.FulfillmentType != "" {
		query["fulfillmentType"] = filter.FulfillmentType
	}
	return r.findPage(ctx, "list", query, page)
}

// FindByStage returns one page of fulfillments currently in stage
func (r *FulfillmentRepository) FindByStage(ctx context.Context, stage domain.Stage, q domain.StageQuery, page domain.Pagination) ([]*domain.OrderFulfillmentRequest, int64, error) {
	rule, ok := domain.RuleFor(stage)
	if !ok {
		return nil, 0, fmt.Errorf("unknown stage %q", stage)
	}
	return r.findPage(ctx, "find_by_stage", stageQuery(rule, q), page)
}

// stageQuery narrows a stage filter by search prefix and creation window
func stageQuery(rule domain.StageRule, q domain.StageQuery) bson.M {
	clauses := []bson.M{StageFilter(rule)}
	if q.Search != "" {
		prefix := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Search), Options: "i"}
		clauses = append(clauses, bson.M{"$or": []bson.M{
			{"fulfillmentId": prefix},
			{"externalOrderId": prefix},
		}})
	}
	created := bson.M{}
	if q.DateFrom != nil {
		created["$gte"] = *q.DateFrom
	}
	if q.DateTo != nil {
		created["$lte"] = *q.DateTo
	}
	if len(created) > 0 {
		clauses = append(clauses, bson.M{"createdAt": created})
	}
	return bson.M{"$and": clauses}
}

// CountByStage counts fulfillments per queryable stage
func (r *FulfillmentRepository) CountByStage(ctx context.Context) (counts map[domain.Stage]int64, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, "count_by_stage", start, err) }()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	counts = make(map[domain.Stage]int64)
	for _, rule := range domain.StageRules() {
		n, err := coll.CountDocuments(ctx, StageFilter(rule))
		if err != nil {
			return nil, fmt.Errorf("count stage %s: %w", rule.Stage, err)
		}
		counts[rule.Stage] = n
	}
	return counts, nil
}

func (r *FulfillmentRepository) findPage(ctx context.Context, operation string, query bson.M, page domain.Pagination) (out []*domain.OrderFulfillmentRequest, total int64, err error) {
	start := time.Now()
	defer func() { r.observe(ctx, operation, start, err) }()

	coll, err := r.collection(ctx)
	if err != nil {
		return nil, 0, err
	}

	total, err = coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	p := pkgmongo.NewPagination(page.Page, page.PageSize, maxPageSize)
	opts := options.Find().
		SetSort(pkgmongo.SortDescending("createdAt")).
		SetSkip(p.Skip()).
		SetLimit(p.Limit())

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	out = make([]*domain.OrderFulfillmentRequest, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

var dupKeyPattern = regexp.MustCompile(`index: (\S+) dup key: \{ [^:]+: "?([^"}]*?)"? \}`)

// duplicateKeyError names the unique index that rejected a write
func duplicateKeyError(err error) error {
	dup := &domain.DuplicateKeyError{Field: "fulfillmentId"}
	if m := dupKeyPattern.FindStringSubmatch(err.Error()); m != nil {
		if m[1] == indexPackageBarcode {
			dup.Field = "barcode"
		}
		dup.Value = m[2]
	}
	return fmt.Errorf("%w: %v", dup, err)
}
