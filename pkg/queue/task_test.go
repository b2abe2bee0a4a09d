package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/game"
)

func TestTaskJSON(t *testing.T) {
	task := NewTask(TaskEnvState, uuid.New(), 12)
	task.Narrative = "The bells ring."
	task.WorldState = &game.WorldState{TurnCount: 12, Environment: game.Environment{Time: "19:00", Location: "Chapel"}}

	data, err := task.ToJSON()
	require.NoError(t, err)

	got, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, task.TaskID, got.TaskID)
	assert.Equal(t, task.SessionID, got.SessionID)
	assert.Equal(t, TaskEnvState, got.Type)
	assert.Equal(t, 12, got.Turn)
	assert.Equal(t, "The bells ring.", got.Narrative)
	require.NotNil(t, got.WorldState)
	assert.Equal(t, "Chapel", got.WorldState.Environment.Location)
	assert.True(t, task.EnqueuedAt.Equal(got.EnqueuedAt))
}

func TestFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "nope"},
		{"bad session id", `{"type":"compress","session_id":"abc"}`},
		{"missing session id", `{"type":"compress"}`},
		{"unknown type", `{"type":"reindex","session_id":"` + uuid.NewString() + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
