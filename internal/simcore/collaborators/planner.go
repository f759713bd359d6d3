// Package collaborators provides a reference implementation of the
// planner/controller external-collaborator contract. Map and obstacle
// definitions are decoded by package config, not here. This is not a
// production planner or dashboard —
// the dashboard front-end and obstacle-placement editor remain explicitly
// out of scope — they exist so an episode can be run end-to-end in tests
// and the cmd/simcore CLI without depending on an unimplemented ML
// planning stack.
package collaborators

import (
	"context"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
)

// ConstantPlannerNode is a trivial planner/controller collaborator: it
// ignores the LidarScan and VehicleState it is notionally supposed to
// consume and publishes the same ControlCommand every time it runs. Useful
// for dynamics-only and LiDAR-only tests, which drive the dynamics node
// with exactly this shape of fixed command.
type ConstantPlannerNode struct {
	name     string
	rateHz   float64
	priority int
	board    *blackboard.Blackboard
	cmd      model.ControlCommand
}

// NewConstantPlannerNode constructs a planner node that always publishes cmd.
func NewConstantPlannerNode(name string, rateHz float64, priority int, cmd model.ControlCommand, board *blackboard.Blackboard) *ConstantPlannerNode {
	return &ConstantPlannerNode{name: name, rateHz: rateHz, priority: priority, board: board, cmd: cmd}
}

func (n *ConstantPlannerNode) Name() string    { return n.name }
func (n *ConstantPlannerNode) RateHz() float64 { return n.rateHz }
func (n *ConstantPlannerNode) Priority() int   { return n.priority }

func (n *ConstantPlannerNode) OnInit(ctx context.Context) error { return nil }

func (n *ConstantPlannerNode) OnRun(ctx context.Context, simTime float64) (node.Status, error) {
	cmd := n.cmd
	cmd.Timestamp = simTime
	n.board.Publish(blackboard.TopicControlCommand, cmd)
	return node.OK, nil
}

func (n *ConstantPlannerNode) OnShutdown(ctx context.Context) error { return nil }

// SetCommand updates the command the planner publishes on its next tick,
// letting tests drive a step change (e.g. a commanded step at t=0).
func (n *ConstantPlannerNode) SetCommand(cmd model.ControlCommand) {
	n.cmd = cmd
}
