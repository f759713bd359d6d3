// Package collision implements the termination node: per tick
// it evaluates collision, off-track and goal conditions against the ego
// polygon, obstacle polygons, and centreline, and latches the blackboard's
// termination signal when any fires. Priority among simultaneously-true
// conditions is collision > off_track > goal_reached > timeout; the
// Executor itself owns the timeout path.
package collision

import (
	"context"
	"math"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/geometry"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
	"github.com/banshee-data/velocity.report/internal/simcore/obstacle"
)

// Metrics accumulates the running totals the EpisodeResult needs:
// distance travelled, checkpoints passed, and the peak lateral deviation
// observed. The collision node owns this as its private state: each node
// exclusively owns its internal state.
type Metrics struct {
	DistanceTravelled   float64
	CheckpointsPassed   int
	MaxLateralDeviation float64

	lastX, lastY float64
	haveLast     bool
	nextCheckpoint int
}

// Node is the schedulable collision/termination unit.
type Node struct {
	name     string
	rateHz   float64
	priority int
	board    *blackboard.Blackboard
	vehicle  model.VehicleParams

	metrics Metrics
}

// NewNode constructs the collision node. Its priority must be
// numerically greater than the dynamics node's priority so it always
// observes the current tick's post-step ego pose, never the previous
// tick's.
func NewNode(name string, rateHz float64, priority int, vehicle model.VehicleParams, board *blackboard.Blackboard) *Node {
	return &Node{
		name:     name,
		rateHz:   rateHz,
		priority: priority,
		board:    board,
		vehicle:  vehicle,
	}
}

func (n *Node) Name() string    { return n.name }
func (n *Node) RateHz() float64 { return n.rateHz }
func (n *Node) Priority() int   { return n.priority }

func (n *Node) OnInit(ctx context.Context) error { return nil }

// Metrics returns a copy of the accumulated episode metrics, read by the
// telemetry node/result builder at shutdown.
func (n *Node) Metrics() Metrics { return n.metrics }

func (n *Node) OnRun(ctx context.Context, simTime float64) (node.Status, error) {
	state, ok := blackboard.Get[model.VehicleState](n.board, blackboard.TopicVehicleState)
	if !ok {
		return node.Skipped, nil
	}
	world, ok := blackboard.Get[model.WorldGeometry](n.board, blackboard.TopicWorldGeometry)
	if !ok {
		return node.Skipped, nil
	}

	n.accumulateDistance(state.X, state.Y)

	reason := n.checkCollision(state)
	if reason == model.ReasonNone {
		reason = n.checkOffTrack(state, world)
	}
	if reason == model.ReasonNone {
		reason = n.checkGoal(state, world)
	}

	if reason != model.ReasonNone {
		n.board.Publish(blackboard.TopicTerminationReason, reason)
		n.board.SetTermination()
	}
	return node.OK, nil
}

func (n *Node) accumulateDistance(x, y float64) {
	if n.metrics.haveLast {
		dx, dy := x-n.metrics.lastX, y-n.metrics.lastY
		n.metrics.DistanceTravelled += math.Hypot(dx, dy)
	}
	n.metrics.lastX, n.metrics.lastY = x, y
	n.metrics.haveLast = true
}

func (n *Node) checkCollision(state model.VehicleState) model.TerminationReason {
	snap, ok := blackboard.Get[obstacle.Snapshot](n.board, blackboard.TopicObstaclePoses)
	if !ok || len(snap.Polygons) == 0 {
		return model.ReasonNone
	}
	egoPose := geometry.Pose2D{X: state.X, Y: state.Y, Yaw: state.Yaw}
	egoVerts := geometry.RectangleCorners(egoPose, n.vehicle.Width, n.vehicle.Length)
	egoPoly := model.Polygon{Vertices: egoVerts}

	for _, obsPoly := range snap.Polygons {
		if geometry.SATOverlap(egoPoly, obsPoly) {
			return model.ReasonCollision
		}
	}
	return model.ReasonNone
}

func (n *Node) checkOffTrack(state model.VehicleState, world model.WorldGeometry) model.TerminationReason {
	_, lateral := geometry.ProjectFrenet(world.Centreline, state.X, state.Y)
	abs := lateral
	if abs < 0 {
		abs = -abs
	}
	if abs > n.metrics.MaxLateralDeviation {
		n.metrics.MaxLateralDeviation = abs
	}
	if abs > world.RoadHalfWidth+world.OffTrackMargin {
		return model.ReasonOffTrack
	}
	return model.ReasonNone
}

func (n *Node) checkGoal(state model.VehicleState, world model.WorldGeometry) model.TerminationReason {
	if len(world.Checkpoints) == 0 {
		return model.ReasonNone
	}
	s, _ := geometry.ProjectFrenet(world.Centreline, state.X, state.Y)
	for n.metrics.nextCheckpoint < len(world.Checkpoints) && s >= world.Checkpoints[n.metrics.nextCheckpoint] {
		n.metrics.CheckpointsPassed++
		n.metrics.nextCheckpoint++
	}
	if n.metrics.nextCheckpoint >= len(world.Checkpoints) {
		return model.ReasonGoalReached
	}
	return model.ReasonNone
}
