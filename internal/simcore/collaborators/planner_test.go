package collaborators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/velocity.report/internal/simcore/blackboard"
	"github.com/banshee-data/velocity.report/internal/simcore/model"
)

func TestConstantPlannerPublishesCommandWithCurrentTimestamp(t *testing.T) {
	board := blackboard.New()
	n := NewConstantPlannerNode("planner", 50, 0, model.ControlCommand{SteerCmd: 0.1, AccelCmd: 1}, board)

	status, err := n.OnRun(context.Background(), 2.5)
	require.NoError(t, err)
	assert.Equal(t, "OK", status.String())

	cmd, ok := blackboard.Get[model.ControlCommand](board, blackboard.TopicControlCommand)
	require.True(t, ok)
	assert.Equal(t, 0.1, cmd.SteerCmd)
	assert.Equal(t, 1.0, cmd.AccelCmd)
	assert.Equal(t, 2.5, cmd.Timestamp)
}

func TestSetCommandChangesSubsequentPublications(t *testing.T) {
	board := blackboard.New()
	n := NewConstantPlannerNode("planner", 50, 0, model.ControlCommand{}, board)

	_, err := n.OnRun(context.Background(), 0)
	require.NoError(t, err)
	cmd, _ := blackboard.Get[model.ControlCommand](board, blackboard.TopicControlCommand)
	assert.Equal(t, 0.0, cmd.SteerCmd)

	n.SetCommand(model.ControlCommand{SteerCmd: 0.3})
	_, err = n.OnRun(context.Background(), 1)
	require.NoError(t, err)
	cmd, _ = blackboard.Get[model.ControlCommand](board, blackboard.TopicControlCommand)
	assert.Equal(t, 0.3, cmd.SteerCmd)
}
