// Package clock provides the virtual simulation clock the Executor and every
// node consult for scheduling and physics. Unlike a wall-clock abstraction,
// Clock never reads real time: it advances only when Tick is called, which
// is what makes two episode runs with the same seed and config produce
// bit-identical per-tick state.
package clock

// Clock is the virtual time source. Now is the only time the simulation
// core consults; Tick is called exactly once per Executor loop iteration.
type Clock interface {
	// Now returns the current virtual simulation time in seconds.
	Now() float64

	// Tick advances virtual time by exactly one base period.
	Tick()

	// RateHz returns the clock's fixed base rate.
	RateHz() float64
}

// VirtualClock is the production Clock: a monotonic counter advanced by
// 1/RateHz per Tick, with no relation to wall-clock time.
type VirtualClock struct {
	rateHz float64
	ticks  int64
}

// New creates a VirtualClock with the given base rate. rateHz must be > 0.
func New(rateHz float64) *VirtualClock {
	if rateHz <= 0 {
		panic("clock: rateHz must be positive")
	}
	return &VirtualClock{rateHz: rateHz}
}

// Now returns ticks * (1/rateHz), computed from the integer tick count so
// that repeated calls within the same tick are bit-identical and floating
// point error does not accumulate across many ticks the way repeated
// addition would.
func (c *VirtualClock) Now() float64 {
	return float64(c.ticks) / c.rateHz
}

// Tick advances the clock by one base period.
func (c *VirtualClock) Tick() {
	c.ticks++
}

// RateHz returns the clock's fixed base rate.
func (c *VirtualClock) RateHz() float64 {
	return c.rateHz
}

// Ticks returns the raw integer tick count, mainly useful for tests that
// want to assert exact scheduling behaviour without floating-point slop.
func (c *VirtualClock) Ticks() int64 {
	return c.ticks
}
