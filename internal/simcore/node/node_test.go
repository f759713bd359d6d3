package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "SKIPPED", Skipped.String())
	assert.Equal(t, "FAILED", Failed.String())
	assert.Equal(t, "UNKNOWN", Status(99).String())
}

func TestFatalErrorUnwrapAndName(t *testing.T) {
	inner := errors.New("boom")
	fe := &FatalError{Node: "dynamics", Err: inner}

	assert.Equal(t, "dynamics", fe.NodeName())
	assert.ErrorIs(t, fe, inner)
	assert.Contains(t, fe.Error(), "dynamics")
	assert.Contains(t, fe.Error(), "boom")

	var target *FatalError
	assert.True(t, errors.As(error(fe), &target))
	assert.Same(t, fe, target)
}
