package domain

import "fmt"

// Stage is the dashboard bucket an OFR is shown in
type Stage string

const (
	StagePickingPending        Stage = "PICKING_PENDING"
	StagePickPackMovePending   Stage = "PICK_PACK_MOVE_PENDING"
	StagePackMovePending       Stage = "PACK_MOVE_PENDING"
	StageReadyToDispatch       Stage = "READY_TO_DISPATCH"
	StageLoadingDoneGINPending Stage = "LOADING_DONE_GIN_PENDING"
	StageGINSent               Stage = "GIN_SENT"
	StageNone                  Stage = "NONE"
)

// ParseStage parses a stage name; StageNone is not queryable
func ParseStage(s string) (Stage, error) {
	for _, rule := range stageRules {
		if string(rule.Stage) == s {
			return rule.Stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// GINCondition constrains the goods issue note state of a stage
type GINCondition int

const (
	GINAny GINCondition = iota
	GINSentRequired
	GINNotSent
)

// StageRule is one row of the stage derivation table. A zero field does not constrain.
type StageRule struct {
	Stage               Stage
	Approach            ExecutionApproach
	RequirePickingTask  bool
	RequirePackMoveTask bool
	RequirePicked       bool
	Statuses            []Status
	GIN                 GINCondition
}

// Snapshot holds the persisted facts a stage is derived from
type Snapshot struct {
	ExecutionApproach ExecutionApproach
	HasPickingTask    bool
	HasPackMoveTask   bool
	Current           Status
	PickedInHistory   bool
	GINSent           bool
}

var stageRules = []StageRule{
	{
		Stage:              StagePickingPending,
		Approach:           ApproachSeparatedPicking,
		RequirePickingTask: true,
		Statuses:           []Status{StatusReceived, StatusAllocated, StatusPicking},
	},
	{
		Stage:              StagePickPackMovePending,
		Approach:           ApproachPickPackMoveTogether,
		RequirePickingTask: true,
		Statuses: []Status{
			StatusReceived, StatusAllocated, StatusPicking, StatusPicked, StatusPacking, StatusPacked,
		},
	},
	{
		Stage:               StagePackMovePending,
		Approach:            ApproachSeparatedPicking,
		RequirePackMoveTask: true,
		RequirePicked:       true,
		Statuses:            []Status{StatusPicked, StatusPacking, StatusPacked},
	},
	{
		Stage:    StageReadyToDispatch,
		Statuses: []Status{StatusReadyToShip},
	},
	{
		Stage:    StageLoadingDoneGINPending,
		Statuses: []Status{StatusShipped},
		GIN:      GINNotSent,
	},
	{
		Stage:    StageGINSent,
		Statuses: []Status{StatusShipped, StatusDelivered},
		GIN:      GINSentRequired,
	},
}

// StageRules returns the derivation table
func StageRules() []StageRule {
	out := make([]StageRule, len(stageRules))
	copy(out, stageRules)
	return out
}

// RuleFor returns the rule of a queryable stage
func RuleFor(stage Stage) (StageRule, bool) {
	for _, rule := range stageRules {
		if rule.Stage == stage {
			return rule, true
		}
	}
	return StageRule{}, false
}

// Matches reports whether the snapshot satisfies the rule
func (r StageRule) Matches(s Snapshot) bool {
	if r.Approach != "" && s.ExecutionApproach != r.Approach {
		return false
	}
	if r.RequirePickingTask && !s.HasPickingTask {
		return false
	}
	if r.RequirePackMoveTask && !s.HasPackMoveTask {
		return false
	}
	if r.RequirePicked && !s.PickedInHistory {
		return false
	}
	switch r.GIN {
	case GINSentRequired:
		if !s.GINSent {
			return false
		}
	case GINNotSent:
		if s.GINSent {
			return false
		}
	}
	for _, status := range r.Statuses {
		if s.Current == status {
			return true
		}
	}
	return false
}

// ClassifyStage returns the single stage whose rule matches, or StageNone
func ClassifyStage(s Snapshot) Stage {
	for _, rule := range stageRules {
		if rule.Matches(s) {
			return rule.Stage
		}
	}
	return StageNone
}
