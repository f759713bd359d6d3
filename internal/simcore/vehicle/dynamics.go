// Package vehicle implements the FOPDT steering actuator and non-linear
// longitudinal model, integrated via a midpoint-in-speed
// kinematic bicycle step.
package vehicle

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
)

// delayRingBuffer is the fixed-capacity ring buffer that supplies the
// dead-time-delayed steering command, sized to ceil(LDeadSteer*rate)+1 per
// 
type delayRingBuffer struct {
	buf   []float64
	times []float64
	head  int
	size  int
}

func newDelayRingBuffer(capacity int) *delayRingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &delayRingBuffer{
		buf:   make([]float64, capacity),
		times: make([]float64, capacity),
	}
}

// push records a new command sample at simTime, overwriting the oldest
// slot once the buffer is full.
func (r *delayRingBuffer) push(simTime, value float64) {
	r.buf[r.head] = value
	r.times[r.head] = simTime
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// delayed returns the newest sample whose timestamp is <= simTime-deadTime
// (the delayed command), or the oldest available sample if none is old
// enough yet, or 0 if the buffer is still empty.
func (r *delayRingBuffer) delayed(simTime, deadTime float64) float64 {
	if r.size == 0 {
		return 0
	}
	target := simTime - deadTime
	// Oldest-to-newest scan; the buffer holds at most a handful of ticks'
	// worth of samples so a linear scan is cheap and allocation-free.
	oldestIdx := (r.head - r.size + len(r.buf)) % len(r.buf)
	best := r.buf[oldestIdx]
	for i := 0; i < r.size; i++ {
		idx := (oldestIdx + i) % len(r.buf)
		if r.times[idx] <= target {
			best = r.buf[idx]
			continue
		}
		break
	}
	return best
}

// Dynamics holds the mutable actuator/state-integration internals for one
// ego vehicle. It is deliberately separate from model.VehicleState so that
// the ring buffer (internal actuator memory, not part of the published
// state) never leaks onto the blackboard.
type Dynamics struct {
	params VehicleParamsProvider
	delay  *delayRingBuffer
}

// VehicleParamsProvider decouples Dynamics from any particular config
// representation; the node package supplies a concrete model.VehicleParams.
type VehicleParamsProvider interface {
	Params() model.VehicleParams
}

// staticParams is the trivial VehicleParamsProvider used by NewNode.
type staticParams struct{ p model.VehicleParams }

func (s staticParams) Params() model.VehicleParams { return s.p }

// New creates a Dynamics instance for the given params and base tick rate
// (used to size the dead-time ring buffer).
func New(params model.VehicleParams, rateHz float64) *Dynamics {
	capacity := int(math.Ceil(params.LDeadSteer*rateHz)) + 1
	return &Dynamics{
		params: staticParams{params},
		delay:  newDelayRingBuffer(capacity),
	}
}

// ErrNonFinite is returned (wrapped in a node.FatalError by the owning
// node) when a dynamics update would propagate non-finite state.
var ErrNonFinite = fmt.Errorf("vehicle: non-finite input or state")

// Step advances state by dt seconds given the current command, applying
// FOPDT steering with dead time, then the non-linear
// longitudinal model, then midpoint-in-speed kinematic bicycle
// integration. pitch defaults to 0 when the caller has no grade model.
func (d *Dynamics) Step(simTime, dt float64, state model.VehicleState, cmd model.ControlCommand, pitch float64) (model.VehicleState, error) {
	p := d.params.Params()

	if !finite(state.X, state.Y, state.Yaw, state.Vx, state.SteerEff, cmd.SteerCmd, cmd.AccelCmd, dt) {
		return state, ErrNonFinite
	}

	d.delay.push(simTime, cmd.SteerCmd)
	delayedCmd := d.delay.delayed(simTime, p.LDeadSteer)

	steerEff := state.SteerEff + (dt/p.TauSteer)*(p.KSteer*delayedCmd-state.SteerEff)
	steerEff = clamp(steerEff, -p.MaxSteer, p.MaxSteer)

	accel := p.KAcc*cmd.AccelCmd + p.Offset -
		p.CDrag*state.Vx*state.Vx -
		p.CCorner*math.Abs(steerEff)*state.Vx*state.Vx -
		9.80665*math.Sin(pitch)
	accel = clamp(accel, p.AMin, p.AMax)

	vNext := math.Max(0, state.Vx+accel*dt)
	vAvg := 0.5 * (state.Vx + vNext)
	yawRate := (vAvg / p.Wheelbase) * math.Tan(steerEff)

	xNext := state.X + vAvg*math.Cos(state.Yaw)*dt
	yNext := state.Y + vAvg*math.Sin(state.Yaw)*dt
	yawNext := model.NormalizeAngle(state.Yaw + yawRate*dt)

	if !finite(xNext, yNext, yawNext, vNext, steerEff) {
		return state, ErrNonFinite
	}

	return model.VehicleState{
		X:            xNext,
		Y:            yNext,
		Yaw:          yawNext,
		Vx:           vNext,
		SteerEff:     steerEff,
		SteerCmdLast: cmd.SteerCmd,
	}, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Node is the schedulable dynamics unit: it reads the latest
// ControlCommand and VehicleState from the blackboard, steps the model,
// and republishes VehicleState.
type Node struct {
	name     string
	rateHz   float64
	priority int
	dyn      *Dynamics
	board    *blackboard.Blackboard
	initial  model.VehicleState
	lastCmd  model.ControlCommand
	pitch    float64
}

// NewNode constructs the dynamics node. priority must place it before the
// collision node in the same tick (see DESIGN.md for the rationale).
func NewNode(name string, rateHz float64, priority int, params model.VehicleParams, initial model.VehicleState, board *blackboard.Blackboard) *Node {
	return &Node{
		name:     name,
		rateHz:   rateHz,
		priority: priority,
		dyn:      New(params, rateHz),
		board:    board,
		initial:  initial,
	}
}

func (n *Node) Name() string     { return n.name }
func (n *Node) RateHz() float64  { return n.rateHz }
func (n *Node) Priority() int    { return n.priority }

func (n *Node) OnInit(ctx context.Context) error {
	n.board.Publish(blackboard.TopicVehicleState, n.initial)
	return nil
}

func (n *Node) OnRun(ctx context.Context, simTime float64) (node.Status, error) {
	state, ok := blackboard.Get[model.VehicleState](n.board, blackboard.TopicVehicleState)
	if !ok {
		state = n.initial
	}
	cmd, ok := blackboard.Get[model.ControlCommand](n.board, blackboard.TopicControlCommand)
	if !ok {
		// If absent, dynamics reuses the last published command.
		cmd = n.lastCmd
	} else {
		n.lastCmd = cmd
	}

	next, err := n.dyn.Step(simTime, 1/n.rateHz, state, cmd, n.pitch)
	if err != nil {
		return node.Failed, &node.FatalError{Node: n.name, Err: err}
	}
	n.board.Publish(blackboard.TopicVehicleState, next)
	return node.OK, nil
}

func (n *Node) OnShutdown(ctx context.Context) error { return nil }
