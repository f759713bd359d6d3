package collision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/obstacle"
)

func egoParams() model.VehicleParams {
	return model.VehicleParams{Width: 1.8, Length: 4.5}
}

func straightWorld() model.WorldGeometry {
	return model.WorldGeometry{
		Centreline: []model.CentrelinePoint{
			{S: 0, X: 0, Y: 0, YawRef: 0},
			{S: 100, X: 100, Y: 0, YawRef: 0},
		},
		Checkpoints:    []float64{10, 50, 90},
		RoadHalfWidth:  2,
		OffTrackMargin: 0.5,
	}
}

// Scenario 4: a single static box directly ahead registers a
// collision on contact.
func TestOnRunDetectsStaticBoxCollision(t *testing.T) {
	board := blackboard.New()
	board.Publish(blackboard.TopicWorldGeometry, straightWorld())
	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 5, Y: 0, Yaw: 0})

	mgr := obstacle.NewManager([]model.Obstacle{{
		ID: "box", Kind: model.ObstacleStatic, Shape: model.ShapeRectangle,
		X: 5, Y: 0, RectWidth: 2, RectLength: 2,
	}})
	board.Publish(blackboard.TopicObstaclePoses, mgr.Update(0))

	n := NewNode("collision", 50, 2, egoParams(), board)
	status, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "OK", status.String())

	reason, ok := blackboard.Get[model.TerminationReason](board, blackboard.TopicTerminationReason)
	require.True(t, ok)
	assert.Equal(t, model.ReasonCollision, reason)
	assert.True(t, board.Terminated())
}

func TestOnRunDetectsOffTrack(t *testing.T) {
	board := blackboard.New()
	board.Publish(blackboard.TopicWorldGeometry, straightWorld())
	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 5, Y: 5, Yaw: 0})

	n := NewNode("collision", 50, 2, egoParams(), board)
	_, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)

	reason, ok := blackboard.Get[model.TerminationReason](board, blackboard.TopicTerminationReason)
	require.True(t, ok)
	assert.Equal(t, model.ReasonOffTrack, reason)
	assert.True(t, board.Terminated())
	assert.InDelta(t, 5.0, n.Metrics().MaxLateralDeviation, 1e-9)
}

func TestOnRunTracksGoalProgressAndReachesGoal(t *testing.T) {
	board := blackboard.New()
	world := straightWorld()
	board.Publish(blackboard.TopicWorldGeometry, world)

	n := NewNode("collision", 50, 2, egoParams(), board)

	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 20, Y: 0, Yaw: 0})
	_, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Metrics().CheckpointsPassed)
	assert.False(t, board.Terminated())

	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 95, Y: 0, Yaw: 0})
	_, err = n.OnRun(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n.Metrics().CheckpointsPassed)
	assert.True(t, board.Terminated())

	reason, _ := blackboard.Get[model.TerminationReason](board, blackboard.TopicTerminationReason)
	assert.Equal(t, model.ReasonGoalReached, reason)
}

// collision > off_track > goal_reached priority: when a vehicle is both
// colliding and off-track on the same tick, collision wins.
func TestCollisionTakesPriorityOverOffTrack(t *testing.T) {
	board := blackboard.New()
	board.Publish(blackboard.TopicWorldGeometry, straightWorld())
	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 5, Y: 5, Yaw: 0})

	mgr := obstacle.NewManager([]model.Obstacle{{
		ID: "box", Kind: model.ObstacleStatic, Shape: model.ShapeRectangle,
		X: 5, Y: 5, RectWidth: 2, RectLength: 2,
	}})
	board.Publish(blackboard.TopicObstaclePoses, mgr.Update(0))

	n := NewNode("collision", 50, 2, egoParams(), board)
	_, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)

	reason, _ := blackboard.Get[model.TerminationReason](board, blackboard.TopicTerminationReason)
	assert.Equal(t, model.ReasonCollision, reason)
}

func TestOnRunSkipsWithoutVehicleStateOrWorld(t *testing.T) {
	board := blackboard.New()
	n := NewNode("collision", 50, 2, egoParams(), board)
	status, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "SKIPPED", status.String())
	assert.False(t, board.Terminated())
}

func TestAccumulateDistanceAcrossTicks(t *testing.T) {
	board := blackboard.New()
	board.Publish(blackboard.TopicWorldGeometry, straightWorld())

	n := NewNode("collision", 50, 2, egoParams(), board)

	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 0, Y: 0})
	_, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, n.Metrics().DistanceTravelled)

	board.Publish(blackboard.TopicVehicleState, model.VehicleState{X: 3, Y: 4})
	_, err = n.OnRun(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, n.Metrics().DistanceTravelled, 1e-9)
}
