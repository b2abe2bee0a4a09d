// Package queue defines the maintenance tasks handed from the API to the
// background executor.
package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/game"
)

// TaskType identifies the kind of maintenance work.
type TaskType string

const (
	// TaskCompress folds older history into the running summary
	TaskCompress TaskType = "compress"

	// TaskEnvState regenerates the sensory snapshot
	TaskEnvState TaskType = "envstate"
)

// Task is one unit of per-session maintenance.
type Task struct {
	TaskID    string    `json:"task_id"`
	Type      TaskType  `json:"type"`
	SessionID uuid.UUID `json:"session_id"`

	// Turn is the turn that triggered the task
	Turn int `json:"turn"`

	// Envstate-specific fields
	Narrative  string           `json:"narrative,omitempty"`
	WorldState *game.WorldState `json:"world_state,omitempty"` // world after the triggering turn

	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempts   int       `json:"attempts,omitempty"`
}

// NewTask creates a task with a fresh id.
func NewTask(t TaskType, sessionID uuid.UUID, turn int) *Task {
	return &Task{
		TaskID:     uuid.NewString(),
		Type:       t,
		SessionID:  sessionID,
		Turn:       turn,
		EnqueuedAt: time.Now().UTC(),
	}
}

func (t *Task) Validate() error {
	if t.SessionID == uuid.Nil {
		return errors.New("session_id is required")
	}
	switch t.Type {
	case TaskCompress, TaskEnvState:
		return nil
	}
	return errors.New("unknown task type: " + string(t.Type))
}

// ToJSON converts the task to JSON bytes for Redis
func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// FromJSON parses and validates a task from JSON bytes
func FromJSON(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
