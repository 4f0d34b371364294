package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	pkgmongo "github.com/wms-platform/outbound-fulfillment-service/pkg/mongodb"
)

const CollectionSequences = "sequences"

type sequenceDocument struct {
	Name      string    `bson:"_id"`
	Value     int64     `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// SequenceRepository hands out gap-free counters from the tenant's datastore.
// Each allocation is a single atomic increment, so concurrent callers never
// observe the same value.
type SequenceRepository struct {
	resolver DatabaseResolver
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewSequenceRepository creates a new SequenceRepository
func NewSequenceRepository(resolver DatabaseResolver, logger *logging.Logger, m *metrics.Metrics) *SequenceRepository {
	return &SequenceRepository{
		resolver: resolver,
		logger:   logger.WithComponent("sequence-repository"),
		metrics:  m,
	}
}

// Next increments the named counter and returns the new value. A missing counter starts at 1.
func (r *SequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	db, err := r.resolver.Database(ctx)
	if err != nil {
		return 0, err
	}
	coll := db.Collection(CollectionSequences)

	start := time.Now()
	value, err := increment(ctx, coll, name)
	if mongo.IsDuplicateKeyError(err) {
		// two first-ever upserts raced; the loser's write did not apply
		value, err = increment(ctx, coll, name)
	}
	duration := time.Since(start)

	r.metrics.RecordMongoDBOperation(CollectionSequences, "increment", err == nil, duration)
	r.metrics.RecordSequenceAllocation(name, err == nil)
	r.logger.DatabaseQuery(ctx, CollectionSequences, "increment", duration, err)
	if err != nil {
		return 0, fmt.Errorf("allocate sequence %s: %w", name, err)
	}
	return value, nil
}

func increment(ctx context.Context, coll *mongo.Collection, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	update := bson.M{
		"$inc": bson.M{"value": int64(1)},
		"$set": bson.M{"updatedAt": pkgmongo.Now()},
	}

	var doc sequenceDocument
	if err := coll.FindOneAndUpdate(ctx, bson.M{"_id": name}, update, opts).Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Value, nil
}

// Allocate renders the next value of seq
func (r *SequenceRepository) Allocate(ctx context.Context, seq domain.Sequence) (string, error) {
	n, err := r.Next(ctx, seq.Name)
	if err != nil {
		return "", err
	}
	return seq.Format(n), nil
}

// Reset sets the counter so the next allocation returns value+1
func (r *SequenceRepository) Reset(ctx context.Context, name string, value int64) error {
	db, err := r.resolver.Database(ctx)
	if err != nil {
		return err
	}

	_, err = db.Collection(CollectionSequences).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{"value": value, "updatedAt": pkgmongo.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("reset sequence %s: %w", name, err)
	}

	r.logger.WithContext(ctx).Info("Sequence reset", "sequence", name, "value", value)
	return nil
}

// Current returns the last allocated value, or 0 when nothing was allocated
func (r *SequenceRepository) Current(ctx context.Context, name string) (int64, error) {
	db, err := r.resolver.Database(ctx)
	if err != nil {
		return 0, err
	}

	var doc sequenceDocument
	err = db.Collection(CollectionSequences).FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}
