// Package node defines the uniform schedulable unit the Executor drives:
// every sensor, dynamics, obstacle, collision and logger component in the
// simulation core implements this contract rather than being special-cased
// by the scheduler.
package node

import "context"

// Status is the per-tick return code a node reports from OnRun.
type Status int

const (
	// OK is the normal path: the node ran and produced fresh output.
	OK Status = iota
	// Skipped means the node deliberately did no work this tick
	// (e.g. waiting on a precondition). Recorded, non-fatal.
	Skipped
	// Failed means the node hit a recoverable problem this tick
	// (e.g. a malformed single-tick input). Recorded, non-fatal.
	Failed
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Skipped:
		return "SKIPPED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Node is the capability set every schedulable unit exposes. The Executor
// owns all Nodes by value (boxed behind this interface); a Node owns only
// its own internal state.
type Node interface {
	// Name identifies the node in logs, episode-result error fields, and
	// fairness/shutdown bookkeeping.
	Name() string

	// RateHz is the node's declared invocation rate. The Executor derives
	// the node's period and eligibility from this value; it is read once
	// at registration time.
	RateHz() float64

	// Priority orders nodes within a tick: lower priority numbers run
	// first. Ties are broken by registration order.
	Priority() int

	// OnInit runs once, in priority order, before the first tick.
	OnInit(ctx context.Context) error

	// OnRun executes the node's per-tick work. simTime is the virtual
	// clock's value observed at the top of the current tick, identical
	// for every node in that tick.
	OnRun(ctx context.Context, simTime float64) (Status, error)

	// OnShutdown runs once, in reverse priority order, on every
	// terminating path (normal, termination signal, stop predicate,
	// fatal error). The Executor guarantees exactly one call per
	// OnInit-ed node.
	OnShutdown(ctx context.Context) error
}

// FatalError wraps an error a node raised from OnRun that must break the
// episode loop (the node's contract was violated or its state would be
// corrupted by continuing). Returning any other error from OnRun is
// treated as a non-fatal Failed tick.
type FatalError struct {
	Node string
	Err  error
}

func (e *FatalError) Error() string {
	return "fatal error in node " + e.Node + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

// NodeName returns the name of the node that raised the fatal error, for
// episode-result reporting ("surface ... with the offending node
// name").
func (e *FatalError) NodeName() string { return e.Node }
