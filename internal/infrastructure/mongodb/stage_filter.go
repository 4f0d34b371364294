package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/wms-platform/outbound-fulfillment-service/internal/domain"
)

func present(field string) bson.M {
	return bson.M{field: bson.M{"$exists": true, "$ne": ""}}
}

// StageFilter translates one stage rule into a query over persisted fields.
// It must select exactly the documents domain.ClassifyStage puts in the stage.
func StageFilter(rule domain.StageRule) bson.M {
	clauses := []bson.M{
		{"fulfillmentStatus.status": bson.M{"$in": rule.Statuses}},
	}
	if rule.Approach != "" {
		clauses = append(clauses, bson.M{"executionApproach": rule.Approach})
	}
	if rule.RequirePickingTask {
		clauses = append(clauses, present("taskReferences.pickingTaskCode"))
	}
	if rule.RequirePackMoveTask {
		clauses = append(clauses, present("taskReferences.packMoveTaskCode"))
	}
	if rule.RequirePicked {
		clauses = append(clauses, bson.M{"statusHistory.status": domain.StatusPicked})
	}

	switch rule.GIN {
	case domain.GINSentRequired:
		clauses = append(clauses, present("ginNumber"), bson.M{"ginNotification.sent": true})
	case domain.GINNotSent:
		clauses = append(clauses, bson.M{"$or": []bson.M{
			{"ginNumber": bson.M{"$in": []any{nil, ""}}},
			{"ginNotification.sent": bson.M{"$ne": true}},
		}})
	}
	return bson.M{"$and": clauses}
}
