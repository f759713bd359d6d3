// Package blackboard implements the per-episode shared latest-value store:
// a single-writer, many-reader mapping from topic key to the most recently
// published message, plus the latched termination flag. The store keeps
// no history — readers always observe the current value — and is safe to
// use only from the single goroutine that drives the Executor: there is
// no locking, because there is no concurrency to guard against inside a
// tick.
package blackboard

import "fmt"

// Well-known topic keys published and consumed by the built-in nodes.
// External collaborators may publish under additional topic strings.
const (
	TopicVehicleState    = "vehicle_state"
	TopicControlCommand  = "control_command"
	TopicLidarScan       = "lidar_scan"
	TopicWorldGeometry   = "world_geometry"
	TopicObstaclePolygons = "obstacle_polygons"
	TopicObstaclePoses   = "obstacle_poses"
	TopicTerminationReason = "termination_reason"
)

// Blackboard is the typed per-tick shared state. Zero value is not usable;
// construct with New.
type Blackboard struct {
	values      map[string]any
	termination bool
}

// New creates an empty Blackboard with the termination flag clear.
func New() *Blackboard {
	return &Blackboard{values: make(map[string]any)}
}

// Publish overwrites the current value for topic. The caller (the topic's
// single writer) is responsible for always publishing the same concrete
// type under a given topic key.
func (b *Blackboard) Publish(topic string, value any) {
	b.values[topic] = value
}

// Lookup returns the raw value for topic and whether it has ever been
// published.
func (b *Blackboard) Lookup(topic string) (any, bool) {
	v, ok := b.values[topic]
	return v, ok
}

// Get type-asserts the stored value for topic into T, returning
// ok == false if the topic has never been published or holds a different
// type — a programming error the caller should usually treat as fatal
// rather than silently defaulting.
func Get[T any](b *Blackboard, topic string) (T, bool) {
	var zero T
	raw, ok := b.values[topic]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// MustGet is Get, panicking with a descriptive message on a missing or
// mistyped topic. Intended for nodes reading a topic they know a prior
// higher-priority node has already published this tick.
func MustGet[T any](b *Blackboard, topic string) T {
	v, ok := Get[T](b, topic)
	if !ok {
		panic(fmt.Sprintf("blackboard: topic %q missing or wrong type", topic))
	}
	return v
}

// SetTermination latches the termination signal. Once set, it remains set
// for the rest of the episode — ClearTermination does not exist, by
// design: termination is a one-way door within an episode.
func (b *Blackboard) SetTermination() {
	b.termination = true
}

// Terminated reports whether the termination signal has been latched.
func (b *Blackboard) Terminated() bool {
	return b.termination
}
