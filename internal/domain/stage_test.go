package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// every combination of the facts a stage depends on
func allSnapshots() []Snapshot {
	var out []Snapshot
	approaches := []ExecutionApproach{"", ApproachSeparatedPicking, ApproachPickPackMoveTogether}
	flags := []bool{false, true}
	for _, a := range approaches {
		for _, picking := range flags {
			for _, packMove := range flags {
				for _, picked := range flags {
					for _, gin := range flags {
						for _, s := range AllStatuses {
							out = append(out, Snapshot{
								ExecutionApproach: a,
								HasPickingTask:    picking,
								HasPackMoveTask:   packMove,
								Current:           s,
								PickedInHistory:   picked,
								GINSent:           gin,
							})
						}
					}
				}
			}
		}
	}
	return out
}

func TestStageRules_MutuallyExclusive(t *testing.T) {
	for _, snap := range allSnapshots() {
		var matched []Stage
		for _, rule := range StageRules() {
			if rule.Matches(snap) {
				matched = append(matched, rule.Stage)
			}
		}
		assert.LessOrEqual(t, len(matched), 1, "snapshot %+v matched %v", snap, matched)
	}
}

func TestClassifyStage_Exhaustive(t *testing.T) {
	for _, snap := range allSnapshots() {
		stage := ClassifyStage(snap)
		assert.NotEmpty(t, stage)
		if stage == StageNone {
			continue
		}
		rule, ok := RuleFor(stage)
		require.True(t, ok)
		assert.True(t, rule.Matches(snap))
	}
}

func TestClassifyStage(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want Stage
	}{
		{
			name: "separated picking allocated",
			snap: Snapshot{ExecutionApproach: ApproachSeparatedPicking, HasPickingTask: true, Current: StatusAllocated},
			want: StagePickingPending,
		},
		{
			name: "together packing",
			snap: Snapshot{ExecutionApproach: ApproachPickPackMoveTogether, HasPickingTask: true, Current: StatusPacking},
			want: StagePickPackMovePending,
		},
		{
			name: "separated picked with pack move task",
			snap: Snapshot{ExecutionApproach: ApproachSeparatedPicking, HasPickingTask: true, HasPackMoveTask: true, Current: StatusPicked, PickedInHistory: true},
			want: StagePackMovePending,
		},
		{
			name: "separated picked without pack move task",
			snap: Snapshot{ExecutionApproach: ApproachSeparatedPicking, HasPickingTask: true, Current: StatusPicked, PickedInHistory: true},
			want: StageNone,
		},
		{
			name: "quantity based ready",
			snap: Snapshot{Current: StatusReadyToShip},
			want: StageReadyToDispatch,
		},
		{
			name: "shipped gin pending",
			snap: Snapshot{Current: StatusShipped},
			want: StageLoadingDoneGINPending,
		},
		{
			name: "shipped gin sent",
			snap: Snapshot{Current: StatusShipped, GINSent: true},
			want: StageGINSent,
		},
		{
			name: "delivered gin sent",
			snap: Snapshot{Current: StatusDelivered, GINSent: true},
			want: StageGINSent,
		},
		{
			name: "delivered without gin",
			snap: Snapshot{Current: StatusDelivered},
			want: StageNone,
		},
		{
			name: "cancelled",
			snap: Snapshot{ExecutionApproach: ApproachSeparatedPicking, HasPickingTask: true, Current: StatusCancelled},
			want: StageNone,
		},
		{
			name: "on hold",
			snap: Snapshot{ExecutionApproach: ApproachSeparatedPicking, HasPickingTask: true, Current: StatusOnHold},
			want: StageNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStage(tt.snap))
		})
	}
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage("GIN_SENT")
	require.NoError(t, err)
	assert.Equal(t, StageGINSent, s)

	_, err = ParseStage("NONE")
	assert.Error(t, err)
}
