package telemetry

import (
	"github.com/google/uuid"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/collision"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

// BuildResult assembles the final EpisodeResult from the
// collision node's accumulated metrics, the blackboard's latched
// termination reason (if any), and the Executor's own loop-exit reason.
// Priority follows: a reason latched on the blackboard
// (collision/off_track/goal_reached) always wins over a bare executor
// timeout, since it reflects a condition detected on the very tick the
// episode ended. episodeID identifies this run across telemetry tables;
// callers generate it once per episode with uuid.New().
func BuildResult(board *blackboard.Blackboard, metrics collision.Metrics, executorReason string, durationSim float64, erroringNode, episodeID string) model.EpisodeResult {
	status := model.ReasonTimeout
	if executorReason == "error" {
		status = model.ReasonError
	} else if reason, ok := blackboard.Get[model.TerminationReason](board, blackboard.TopicTerminationReason); ok && reason != model.ReasonNone {
		status = reason
	}

	if episodeID == "" {
		episodeID = uuid.NewString()
	}

	return model.EpisodeResult{
		EpisodeID:           episodeID,
		Status:              status,
		DistanceTravelled:   metrics.DistanceTravelled,
		CheckpointsPassed:   metrics.CheckpointsPassed,
		MaxLateralDeviation: metrics.MaxLateralDeviation,
		DurationSim:         durationSim,
		ErroringNode:        erroringNode,
	}
}
