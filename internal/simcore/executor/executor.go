// Package executor implements the rate-based cooperative scheduler: it
// drives the virtual Clock, fires registered Nodes on their declared
// periods in priority order, and guarantees the shutdown sweep on every
// terminating path.
package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/clock"
	"github.com/banshee-data/velocity.report/internal/simcore/node"
)

// epsilon is the floating-point eligibility tolerance : a
// node is eligible when clock.Now() + epsilon >= node.nextTime.
const epsilon = 1e-9

// State is the Executor's lifecycle state machine.
type State int

const (
	Created State = iota
	Initialized
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Initialized:
		return "INITIALIZED"
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// registeredNode bundles a Node with the scheduling bookkeeping the
// Executor owns on its behalf: each node has its own period and a private
// next-fire time, tracked here rather than on the Node interface itself,
// since a Node is not required to know about scheduling.
type registeredNode struct {
	n        node.Node
	period   float64
	nextTime float64
	inited   bool
}

// TickResult records one node's outcome for a single tick, used for
// fairness/telemetry bookkeeping and tests.
type TickResult struct {
	Tick     int64
	Node     string
	Status   node.Status
	Err      error
}

// Executor owns the Node list, the Clock, and the Blackboard exclusively —
// no package-level globals, no node ever reaches another node directly.
type Executor struct {
	clock      clock.Clock
	board      *blackboard.Blackboard
	nodes      []*registeredNode
	state      State
	invocations map[string]int
	history    []TickResult
}

// New creates an Executor bound to the given Clock and Blackboard.
func New(c clock.Clock, b *blackboard.Blackboard) *Executor {
	return &Executor{
		clock:       c,
		board:       b,
		state:       Created,
		invocations: make(map[string]int),
	}
}

// Register adds a node to the schedule. Registration order breaks ties
// between nodes of equal priority. Register must be called before Run.
func (e *Executor) Register(n node.Node) {
	if e.state != Created {
		panic("executor: Register called after Run has started")
	}
	rate := n.RateHz()
	if rate <= 0 {
		panic(fmt.Sprintf("executor: node %q has non-positive rate %v", n.Name(), rate))
	}
	e.nodes = append(e.nodes, &registeredNode{
		n:      n,
		period: 1 / rate,
	})
}

// sortNodes stable-sorts registered nodes by ascending priority, preserving
// registration order among ties (sort.SliceStable satisfies this directly
// since nodes are appended in registration order).
func (e *Executor) sortNodes() {
	sort.SliceStable(e.nodes, func(i, j int) bool {
		return e.nodes[i].n.Priority() < e.nodes[j].n.Priority()
	})
}

// Invocations returns how many times the named node's OnRun has fired so
// far, for fairness assertions in tests.
func (e *Executor) Invocations(name string) int {
	return e.invocations[name]
}

// History returns the full per-tick, per-node outcome log.
func (e *Executor) History() []TickResult {
	return e.history
}

// State returns the Executor's current lifecycle state.
func (e *Executor) State() State {
	return e.state
}

// Board returns the Blackboard backing this episode.
func (e *Executor) Board() *blackboard.Blackboard {
	return e.board
}

// Clock returns the virtual clock backing this episode.
func (e *Executor) Clock() clock.Clock {
	return e.clock
}

// StopCondition is an optional external predicate checked at the top of
// every tick, alongside the termination signal and the duration cap.
type StopCondition func() bool

// Run drives the simulation until duration seconds of virtual time have
// elapsed, the termination signal is latched, stopCondition (if non-nil)
// returns true, or a node raises a fatal error. It returns the reason the
// loop ended and, for a fatal error, the error itself. The shutdown sweep
// runs on every path, including panics recovered from a node (re-raised
// after shutdown completes).
func (e *Executor) Run(ctx context.Context, duration float64, stopCondition StopCondition) (reason string, err error) {
	e.sortNodes()

	defer func() {
		if r := recover(); r != nil {
			e.runShutdown(ctx)
			panic(r)
		}
	}()

	if err := e.runInit(ctx); err != nil {
		e.runShutdown(ctx)
		e.state = Stopped
		return "error", err
	}

	e.state = Running

	for {
		if stopCondition != nil && stopCondition() {
			reason = "stop_condition"
			break
		}
		if e.board.Terminated() {
			reason = "termination_signal"
			break
		}
		if e.clock.Now() >= duration {
			reason = "timeout"
			break
		}

		now := e.clock.Now()
		for _, rn := range e.nodes {
			if now+epsilon < rn.nextTime {
				continue
			}
			status, runErr := rn.n.OnRun(ctx, now)
			e.invocations[rn.n.Name()]++
			e.history = append(e.history, TickResult{
				Tick:   e.tickIndex(),
				Node:   rn.n.Name(),
				Status: status,
				Err:    runErr,
			})
			rn.nextTime = now + rn.period

			if runErr != nil {
				if _, fatal := runErr.(*node.FatalError); fatal {
					e.runShutdown(ctx)
					e.state = Stopped
					return "error", runErr
				}
				// Non-fatal: Failed/Skipped statuses (and their errors, if
				// any) are recorded above and the loop continues.
			}
		}

		e.clock.Tick()
	}

	e.runShutdown(ctx)
	e.state = Stopped
	return reason, nil
}

func (e *Executor) tickIndex() int64 {
	type ticker interface{ Ticks() int64 }
	if t, ok := e.clock.(ticker); ok {
		return t.Ticks()
	}
	return 0
}

func (e *Executor) runInit(ctx context.Context) error {
	for _, rn := range e.nodes {
		if err := rn.n.OnInit(ctx); err != nil {
			return fmt.Errorf("executor: OnInit failed for node %q: %w", rn.n.Name(), err)
		}
		rn.inited = true
	}
	e.state = Initialized
	return nil
}

// runShutdown calls OnShutdown for every inited node, in reverse priority
// order, unconditionally. A shutdown error from one node never prevents
// the remaining nodes from also receiving their shutdown call — this is
// the hard guarantee 
func (e *Executor) runShutdown(ctx context.Context) {
	for i := len(e.nodes) - 1; i >= 0; i-- {
		rn := e.nodes[i]
		if !rn.inited {
			continue
		}
		if err := rn.n.OnShutdown(ctx); err != nil {
			e.history = append(e.history, TickResult{
				Node:   rn.n.Name(),
				Status: node.Failed,
				Err:    fmt.Errorf("executor: OnShutdown failed for node %q: %w", rn.n.Name(), err),
			})
		}
		rn.inited = false
	}
}
