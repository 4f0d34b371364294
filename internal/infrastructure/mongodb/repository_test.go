package mongodb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	outboxMongo "github.com/wms-platform/outbound-fulfillment-service/pkg/outbox/mongodb"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
	sharedtesting "github.com/wms-platform/outbound-fulfillment-service/pkg/testing"
)

var created = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func setupRepositories(t *testing.T) (*FulfillmentRepository, *SequenceRepository, *mongo.Database) {
	t.Helper()
	db := sharedtesting.NewTestDatabase(t, "fulfillment_test")
	router := tenant.NewRouter(db, nil, logging.Nop())
	factory := cloudevents.NewEventFactory(cloudevents.SourceOutboundFulfillment)
	return NewFulfillmentRepository(router, factory, logging.Nop(), nil),
		NewSequenceRepository(router, logging.Nop(), nil),
		db
}

// quantityOFR builds a READY_TO_SHIP container-quantity OFR shipping one package
func quantityOFR(t *testing.T, id, bucket, barcode string) *domain.OrderFulfillmentRequest {
	t.Helper()
	ofr, err := domain.NewOrderFulfillmentRequest(domain.NewFulfillmentParams{
		FulfillmentID:   id,
		AccountID:       "ACC-1",
		ExternalOrderID: "EXT-" + id,
		FulfillmentType: domain.FulfillmentTypeContainerQuantity,
		InitialStatus:   domain.StatusReadyToShip,
		LineItems: []domain.LineItem{{
			LineItemID:          "L1",
			SKUID:               "SKU-1",
			OrderedQuantity:     2,
			TotalQuantityPicked: 2,
			QuantityInventoryReferences: []domain.QuantityInventoryReference{
				{BucketID: bucket, ContainerID: "C-" + bucket, PackageID: "P-" + id, QuantityPicked: 2, BeforeQuantity: 10, AfterQuantity: 8},
			},
		}},
		Packages: []domain.Package{{
			PackageID:     "P-" + id,
			Barcode:       barcode,
			AssignedItems: []domain.PackageItem{{LineItemID: "L1", SKUID: "SKU-1", Quantity: 2}},
		}},
		CreatedBy: "tester",
		CreatedAt: created,
	})
	require.NoError(t, err)
	return ofr
}

// taskOFR builds an ALLOCATED task-based OFR with a picking task
func taskOFR(t *testing.T, id string, approach domain.ExecutionApproach) *domain.OrderFulfillmentRequest {
	t.Helper()
	ofr, err := domain.NewOrderFulfillmentRequest(domain.NewFulfillmentParams{
		FulfillmentID:     id,
		AccountID:         "ACC-2",
		FulfillmentType:   domain.FulfillmentTypeTaskBased,
		ExecutionApproach: approach,
		InitialStatus:     domain.StatusReceived,
		LineItems:         []domain.LineItem{{LineItemID: "L1", SKUID: "SKU-1", OrderedQuantity: 1}},
		CreatedBy:         "tester",
		CreatedAt:         created,
	})
	require.NoError(t, err)
	ofr.AssignPickingTask("TSK-"+id, domain.TaskKindPicking)
	require.NoError(t, ofr.TransitionTo(domain.StatusAllocated, "tester", "", created))
	return ofr
}

func TestFulfillmentRepository_CreateAndFind(t *testing.T) {
	repo, _, db := setupRepositories(t)
	ctx := context.Background()

	ofr := quantityOFR(t, "OFR-00000001", "B1", "PKG-1")
	require.NoError(t, ofr.IssueGIN("GIN/2026/000001"))
	require.NoError(t, repo.Create(ctx, ofr))
	assert.Empty(t, ofr.DomainEvents())
	assert.Equal(t, int64(1), ofr.Version)

	found, err := repo.FindByID(ctx, "OFR-00000001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReadyToShip, found.Status())
	assert.Equal(t, 1, found.StatusHistory.Len())
	assert.Equal(t, "GIN/2026/000001", found.GINNumber)
	assert.Equal(t, domain.StageReadyToDispatch, found.Stage())
	assert.NoError(t, found.CheckInvariants())

	n, err := db.Collection(outboxMongo.DefaultCollectionName).CountDocuments(ctx, bson.M{"aggregateId": "OFR-00000001"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.FindByID(ctx, "OFR-99999999")
	assert.ErrorIs(t, err, domain.ErrFulfillmentNotFound)
}

func TestFulfillmentRepository_UniqueConstraints(t *testing.T) {
	repo, _, _ := setupRepositories(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, quantityOFR(t, "OFR-00000001", "B1", "PKG-1")))

	err := repo.Create(ctx, quantityOFR(t, "OFR-00000002", "B2", "PKG-1"))
	dup, ok := domain.AsDuplicateKey(err)
	require.True(t, ok, "expected duplicate key, got %v", err)
	assert.Equal(t, "barcode", dup.Field)
	assert.Equal(t, "PKG-1", dup.Value)
	_, err = repo.FindByID(ctx, "OFR-00000002")
	assert.ErrorIs(t, err, domain.ErrFulfillmentNotFound)

	err = repo.Create(ctx, quantityOFR(t, "OFR-00000001", "B3", "PKG-3"))
	dup, ok = domain.AsDuplicateKey(err)
	require.True(t, ok, "expected duplicate key, got %v", err)
	assert.Equal(t, "fulfillmentId", dup.Field)

	// OFRs without packages do not collide on the barcode index
	require.NoError(t, repo.Create(ctx, taskOFR(t, "OFR-00000010", domain.ApproachSeparatedPicking)))
	require.NoError(t, repo.Create(ctx, taskOFR(t, "OFR-00000011", domain.ApproachSeparatedPicking)))
}

func TestFulfillmentRepository_SaveIsVersionGuarded(t *testing.T) {
	repo, _, _ := setupRepositories(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, quantityOFR(t, "OFR-00000001", "B1", "PKG-1")))

	first, err := repo.FindByID(ctx, "OFR-00000001")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, "OFR-00000001")
	require.NoError(t, err)

	require.NoError(t, first.Hold("alice", "damaged label", created.Add(time.Minute)))
	require.NoError(t, repo.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	require.NoError(t, second.Cancel("bob", "customer request", created.Add(2*time.Minute)))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Equal(t, int64(1), second.Version)

	stored, err := repo.FindByID(ctx, "OFR-00000001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, stored.Status())
	assert.Equal(t, 2, stored.StatusHistory.Len())

	missing := quantityOFR(t, "OFR-00000404", "B4", "PKG-4")
	assert.ErrorIs(t, repo.Save(ctx, missing), domain.ErrFulfillmentNotFound)
}

func TestFulfillmentRepository_StageQueriesMatchClassification(t *testing.T) {
	repo, _, _ := setupRepositories(t)
	ctx := context.Background()

	ready := quantityOFR(t, "OFR-00000001", "B1", "PKG-1")

	shipped := quantityOFR(t, "OFR-00000002", "B2", "PKG-2")
	require.NoError(t, shipped.IssueGIN("GIN/2026/000002"))
	require.NoError(t, shipped.TransitionTo(domain.StatusShipped, "tester", "", created))

	sent := quantityOFR(t, "OFR-00000003", "B3", "PKG-3")
	require.NoError(t, sent.IssueGIN("GIN/2026/000003"))
	require.NoError(t, sent.TransitionTo(domain.StatusShipped, "tester", "", created))
	require.NoError(t, sent.MarkGINSent([]string{"ops@acme.test"}, "tester", created))

	picking := taskOFR(t, "OFR-00000004", domain.ApproachSeparatedPicking)
	together := taskOFR(t, "OFR-00000005", domain.ApproachPickPackMoveTogether)

	packMove := taskOFR(t, "OFR-00000006", domain.ApproachSeparatedPicking)
	packMove.AssignPackMoveTask("TSK-PM-6")
	require.NoError(t, packMove.TransitionTo(domain.StatusPicked, "tester", "", created))

	cancelled := taskOFR(t, "OFR-00000007", domain.ApproachSeparatedPicking)
	require.NoError(t, cancelled.Cancel("tester", "duplicate order", created))

	all := []*domain.OrderFulfillmentRequest{ready, shipped, sent, picking, together, packMove, cancelled}
	expected := make(map[domain.Stage][]string)
	for _, o := range all {
		expected[o.Stage()] = append(expected[o.Stage()], o.FulfillmentID)
		require.NoError(t, repo.Create(ctx, o))
	}

	counts, err := repo.CountByStage(ctx)
	require.NoError(t, err)

	for _, rule := range domain.StageRules() {
		page, total, err := repo.FindByStage(ctx, rule.Stage, domain.StageQuery{}, domain.Pagination{Page: 1, PageSize: 50})
		require.NoError(t, err)

		ids := make([]string, 0, len(page))
		for _, o := range page {
			ids = append(ids, o.FulfillmentID)
		}
		sort.Strings(ids)
		assert.ElementsMatch(t, expected[rule.Stage], ids, "stage %s", rule.Stage)
		assert.Equal(t, int64(len(expected[rule.Stage])), total)
		assert.Equal(t, total, counts[rule.Stage])
	}

	page, _, err := repo.FindByStage(ctx, domain.StageReadyToDispatch, domain.StageQuery{Search: "ext-ofr-00000001"}, domain.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "OFR-00000001", page[0].FulfillmentID)

	later := created.Add(time.Hour)
	page, total, err := repo.FindByStage(ctx, domain.StageReadyToDispatch, domain.StageQuery{DateFrom: &later}, domain.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, int64(0), total)
}

func TestFulfillmentRepository_List(t *testing.T) {
	repo, _, _ := setupRepositories(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("OFR-%08d", i)
		require.NoError(t, repo.Create(ctx, quantityOFR(t, id, fmt.Sprintf("B%d", i), fmt.Sprintf("PKG-%d", i))))
	}
	require.NoError(t, repo.Create(ctx, taskOFR(t, "OFR-00000009", domain.ApproachSeparatedPicking)))

	items, total, err := repo.List(ctx, domain.ListFilter{AccountID: "ACC-1"}, domain.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, domain.ListFilter{FulfillmentType: domain.FulfillmentTypeTaskBased, Status: domain.StatusAllocated}, domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "OFR-00000009", items[0].FulfillmentID)
}

func TestSequenceRepository_ConcurrentAllocationsAreContiguous(t *testing.T) {
	_, seqs, _ := setupRepositories(t)
	ctx := context.Background()

	const n = 50
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := seqs.Allocate(ctx, domain.FulfillmentIDSequence())
			assert.NoError(t, err)
			mu.Lock()
			ids = append(ids, id)
			mu.Unlock()
		}()
	}
	wg.Wait()

	expected := make([]string, n)
	for i := range expected {
		expected[i] = fmt.Sprintf("OFR-%08d", i+1)
	}
	assert.ElementsMatch(t, expected, ids)

	current, err := seqs.Current(ctx, domain.FulfillmentSequenceName)
	require.NoError(t, err)
	assert.Equal(t, int64(n), current)
}

func TestSequenceRepository_Reset(t *testing.T) {
	_, seqs, _ := setupRepositories(t)
	ctx := context.Background()

	gin := domain.GINSequence(created)
	first, err := seqs.Allocate(ctx, gin)
	require.NoError(t, err)
	assert.Equal(t, "GIN/2026/000001", first)

	require.NoError(t, seqs.Reset(ctx, gin.Name, 99))
	next, err := seqs.Allocate(ctx, gin)
	require.NoError(t, err)
	assert.Equal(t, "GIN/2026/000100", next)

	other, err := seqs.Allocate(ctx, domain.FulfillmentIDSequence())
	require.NoError(t, err)
	assert.Equal(t, "OFR-00000001", other)
}
