package blackboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishAndGet(t *testing.T) {
	b := New()
	_, ok := Get[int](b, "missing")
	assert.False(t, ok)

	b.Publish("count", 42)
	v, ok := Get[int](b, "count")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetWrongTypeFails(t *testing.T) {
	b := New()
	b.Publish("count", 42)
	_, ok := Get[string](b, "count")
	assert.False(t, ok)
}

func TestMustGetPanicsOnMiss(t *testing.T) {
	b := New()
	assert.Panics(t, func() { MustGet[int](b, "nope") })
}

func TestPublishOverwrites(t *testing.T) {
	b := New()
	b.Publish("x", 1)
	b.Publish("x", 2)
	v, _ := Get[int](b, "x")
	assert.Equal(t, 2, v)
}

func TestTerminationLatches(t *testing.T) {
	b := New()
	assert.False(t, b.Terminated())
	b.SetTermination()
	assert.True(t, b.Terminated())
	// One-way door: no way to clear it within an episode.
	b.SetTermination()
	assert.True(t, b.Terminated())
}
