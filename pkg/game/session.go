package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the unit of persistence: one per active game.
type Session struct {
	ID                  uuid.UUID     `json:"session_id"`
	WorldTemplateID     string        `json:"world_template_id"`
	WorldTemplate       string        `json:"world_template"`
	HardRules           string        `json:"hard_rules"`
	WorldState          WorldState    `json:"world_state"`
	PlayerProfile       PlayerProfile `json:"player_profile"`
	QuestState          *QuestState   `json:"quest_state"`
	History             []HistoryItem `json:"history"`
	CompressedHistory   string        `json:"compressed_history,omitempty"`
	LastCompressionTurn int           `json:"last_compression_turn,omitempty"`
	LastEnvStateTurn    *int          `json:"last_envstate_turn,omitempty"` // nil until the first snapshot
	EnvState            *EnvState     `json:"env_state,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// DeepCopy returns an independent copy of the session via a JSON round trip.
func (s *Session) DeepCopy() (*Session, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &out, nil
}

// RecentHistory returns the newest n history items.
func (s *Session) RecentHistory(n int) []HistoryItem {
	if n <= 0 || len(s.History) <= n {
		return append([]HistoryItem(nil), s.History...)
	}
	return append([]HistoryItem(nil), s.History[len(s.History)-n:]...)
}
