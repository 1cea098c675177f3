package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTask(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage("a", "auto", MessageTaskRequest, &TaskPayload{
		TaskID:             "t-1",
		RequiredCapability: "summarize",
		Exclude:            []string{"agent-b"},
	})
	require.NoError(t, err)

	task, err := DecodeTask(msg)
	require.NoError(t, err)
	assert.Equal(t, "summarize", task.RequiredCapability)
	assert.Equal(t, []string{"agent-b"}, task.Exclude)
}

func TestDecodeTask_WrongType(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage("a", "b", MessageHealthCheck, &TaskPayload{RequiredCapability: "x"})
	require.NoError(t, err)

	_, err = DecodeTask(msg)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidMessageType, GetErrorCode(err))
}

func TestDecodeTask_MissingCapability(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage("a", "auto", MessageTaskRequest, &TaskPayload{TaskID: "t-1"})
	require.NoError(t, err)

	_, err = DecodeTask(msg)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidMessage, GetErrorCode(err))
}

func TestDecodeWorkflow(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage("user", "supervisor", MessageWorkflowStart, &WorkflowPayload{
		Content:       "review this deployment plan",
		MaxIterations: 5,
	})
	require.NoError(t, err)

	wf, err := DecodeWorkflow(msg)
	require.NoError(t, err)
	assert.Equal(t, 5, wf.MaxIterations)

	empty, err := NewMessage("user", "supervisor", MessageWorkflowStart, &WorkflowPayload{})
	require.NoError(t, err)
	_, err = DecodeWorkflow(empty)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidMessage, GetErrorCode(err))
}

func TestDecode_EmptyAndMalformedPayload(t *testing.T) {
	t.Parallel()

	msg := &Message{ID: "m", From: "a", To: "b", Type: MessageTaskDelegate}
	_, err := DecodeDelegation(msg)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidMessage, GetErrorCode(err))

	msg.Payload = json.RawMessage(`{"target_agent":`)
	_, err = DecodeDelegation(msg)
	require.Error(t, err)
	assert.Equal(t, ErrInvalidMessage, GetErrorCode(err))
}

func TestDecodeCapabilityQuery(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage("a", "broadcast", MessageCapabilityRequest, &CapabilityQuery{
		Name:           "translate",
		MinReliability: 0.7,
		Limit:          3,
	})
	require.NoError(t, err)

	query, err := DecodeCapabilityQuery(msg)
	require.NoError(t, err)
	assert.Equal(t, "translate", query.Name)
	assert.Equal(t, 0.7, query.MinReliability)
	assert.Equal(t, 3, query.Limit)
}
