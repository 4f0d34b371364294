package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

func clausesOf(t *testing.T, filter bson.M) []bson.M {
	t.Helper()
	clauses, ok := filter["$and"].([]bson.M)
	require.True(t, ok, "filter is not an $and of clauses")
	return clauses
}

func hasClause(clauses []bson.M, field string) bool {
	for _, c := range clauses {
		if _, ok := c[field]; ok {
			return true
		}
	}
	return false
}

func TestStageFilter(t *testing.T) {
	tests := []struct {
		stage   domain.Stage
		present []string
		absent  []string
	}{
		{
			stage:   domain.StagePickingPending,
			present: []string{"executionApproach", "taskReferences.pickingTaskCode"},
			absent:  []string{"taskReferences.packMoveTaskCode", "statusHistory.status", "ginNumber"},
		},
		{
			stage:   domain.StagePackMovePending,
			present: []string{"executionApproach", "taskReferences.packMoveTaskCode", "statusHistory.status"},
			absent:  []string{"ginNumber"},
		},
		{
			stage:   domain.StageReadyToDispatch,
			present: []string{"fulfillmentStatus.status"},
			absent:  []string{"executionApproach", "$or", "ginNotification.sent"},
		},
		{
			stage:   domain.StageLoadingDoneGINPending,
			present: []string{"$or"},
			absent:  []string{"ginNotification.sent"},
		},
		{
			stage:   domain.StageGINSent,
			present: []string{"ginNumber", "ginNotification.sent"},
			absent:  []string{"$or"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			rule, ok := domain.RuleFor(tt.stage)
			require.True(t, ok)

			clauses := clausesOf(t, StageFilter(rule))

			assert.Equal(t, bson.M{"$in": rule.Statuses}, clauses[0]["fulfillmentStatus.status"])
			for _, f := range tt.present {
				assert.True(t, hasClause(clauses, f), "expected clause on %s", f)
			}
			for _, f := range tt.absent {
				assert.False(t, hasClause(clauses, f), "unexpected clause on %s", f)
			}
		})
	}
}

func TestStageQuery_SearchAndWindow(t *testing.T) {
	rule, _ := domain.RuleFor(domain.StageReadyToDispatch)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	clauses := clausesOf(t, stageQuery(rule, domain.StageQuery{Search: "OFR-0000.1", DateFrom: &from, DateTo: &to}))

	require.Len(t, clauses, 3)
	or, ok := clauses[1]["$or"].([]bson.M)
	require.True(t, ok)
	assert.Equal(t, primitive.Regex{Pattern: `^OFR-0000\.1`, Options: "i"}, or[0]["fulfillmentId"])
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, clauses[2]["createdAt"])
}

func TestStageQuery_NoExtras(t *testing.T) {
	rule, _ := domain.RuleFor(domain.StageGINSent)

	clauses := clausesOf(t, stageQuery(rule, domain.StageQuery{}))

	assert.Len(t, clauses, 1)
}

func TestDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name  string
		msg   string
		field string
		value string
	}{
		{
			name:  "package barcode",
			msg:   `E11000 duplicate key error collection: wms.order_fulfillment_requests index: idx_packages_barcode dup key: { packages.barcode: "PKG-1" }`,
			field: "barcode",
			value: "PKG-1",
		},
		{
			name:  "fulfillment id",
			msg:   `E11000 duplicate key error collection: wms.order_fulfillment_requests index: idx_fulfillment_id dup key: { fulfillmentId: "OFR-00000001" }`,
			field: "fulfillmentId",
			value: "OFR-00000001",
		},
		{
			name:  "unparseable",
			msg:   "E11000 duplicate key error",
			field: "fulfillmentId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := duplicateKeyError(errString(tt.msg))

			dup, ok := domain.AsDuplicateKey(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, dup.Field)
			assert.Equal(t, tt.value, dup.Value)
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
