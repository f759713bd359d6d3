package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/collision"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

func TestBuildResultLatchedReasonWinsOverTimeout(t *testing.T) {
	board := blackboard.New()
	board.Publish(blackboard.TopicTerminationReason, model.ReasonCollision)

	result := BuildResult(board, collision.Metrics{}, "timeout", 12.3, "", "")
	assert.Equal(t, model.ReasonCollision, result.Status)
	assert.Equal(t, 12.3, result.DurationSim)
}

func TestBuildResultDefaultsToTimeoutWithNoLatchedReason(t *testing.T) {
	board := blackboard.New()
	result := BuildResult(board, collision.Metrics{}, "timeout", 30, "", "")
	assert.Equal(t, model.ReasonTimeout, result.Status)
}

func TestBuildResultErrorReasonOverridesEverything(t *testing.T) {
	board := blackboard.New()
	board.Publish(blackboard.TopicTerminationReason, model.ReasonGoalReached)

	result := BuildResult(board, collision.Metrics{}, "error", 5, "dynamics", "")
	assert.Equal(t, model.ReasonError, result.Status)
	assert.Equal(t, "dynamics", result.ErroringNode)
}

func TestBuildResultCarriesMetrics(t *testing.T) {
	board := blackboard.New()
	metrics := collision.Metrics{DistanceTravelled: 42, CheckpointsPassed: 3, MaxLateralDeviation: 0.7}
	result := BuildResult(board, metrics, "timeout", 10, "", "")
	assert.Equal(t, 42.0, result.DistanceTravelled)
	assert.Equal(t, 3, result.CheckpointsPassed)
	assert.Equal(t, 0.7, result.MaxLateralDeviation)
}

func TestBuildResultGeneratesEpisodeIDWhenOmitted(t *testing.T) {
	board := blackboard.New()
	result := BuildResult(board, collision.Metrics{}, "timeout", 1, "", "")
	assert.NotEmpty(t, result.EpisodeID)
}

func TestBuildResultPreservesProvidedEpisodeID(t *testing.T) {
	board := blackboard.New()
	result := BuildResult(board, collision.Metrics{}, "timeout", 1, "", "fixed-id")
	assert.Equal(t, "fixed-id", result.EpisodeID)
}
