package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

var (
	ErrSessionNotFound = errors.New("Session not found")
	ErrInvalidRequest  = errors.New("Invalid request body")
	ErrLootNotFound    = errors.New("Loot item not found")
	ErrArchiveFailed   = errors.New("Failed to archive")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ExtraItem is an item the player brings into a new run.
type ExtraItem struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Description  string                       `json:"description,omitempty"`
	Type         string                       `json:"type,omitempty"`
	CarryPenalty *settlement.ItemCarryPenalty `json:"carry_penalty,omitempty"`
}

type StartRequest struct {
	WorldTemplateID        string      `json:"world_template_id,omitempty"`
	WorldID                string      `json:"world_id,omitempty"`
	WorldIDCamel           string      `json:"worldId,omitempty"`
	KnownLore              []string    `json:"known_lore,omitempty"`
	GeneratedWorldTemplate string      `json:"generated_world_template,omitempty"`
	ExtraItems             []ExtraItem `json:"extra_items,omitempty"`
}

func (r *StartRequest) worldKey(def string) string {
	for _, k := range []string{r.WorldTemplateID, r.WorldIDCamel, r.WorldID} {
		if k != "" {
			return k
		}
	}
	return def
}

func (r *StartRequest) Validate() error {
	for i, item := range r.ExtraItems {
		if item.ID == "" || item.Name == "" {
			return invalid("extra_items[%d]: id and name are required", i)
		}
		if item.CarryPenalty != nil && !item.CarryPenalty.Type.Valid() {
			return invalid("extra_items[%d]: unknown carry_penalty type %q", i, item.CarryPenalty.Type)
		}
	}
	return nil
}

type StartResponse struct {
	SessionID      uuid.UUID          `json:"session_id"`
	InitialVerdict game.Verdict       `json:"initial_verdict"`
	PlayerProfile  game.PlayerProfile `json:"player_profile"`
	WorldState     game.WorldState    `json:"world_state"`
	QuestState     *game.PublicQuest  `json:"quest_state"`
	EnvState       *game.EnvState     `json:"env_state"`
	Warnings       []string           `json:"warnings"`
}

type TurnRequest struct {
	SessionID    uuid.UUID         `json:"session_id"`
	PlayerAction game.PlayerAction `json:"player_action"`
	KnownLore    []string          `json:"known_lore,omitempty"`
}

func (r *TurnRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return invalid("session_id is required")
	}
	if err := r.PlayerAction.Validate(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

type turnBody struct {
	SessionID    string             `json:"session_id"`
	PlayerAction *game.PlayerAction `json:"player_action"`
	KnownLore    []string           `json:"known_lore"`

	// Older clients send {sessionId, action}, where a choice may carry its
	// option id instead of content.
	LegacySessionID string `json:"sessionId"`
	LegacyAction    *struct {
		Type    game.ActionType `json:"type"`
		Content string          `json:"content"`
		ID      string          `json:"id"`
	} `json:"action"`
}

// ParseTurnRequest decodes a turn body in either the current or the legacy
// shape.
func ParseTurnRequest(data []byte) (*TurnRequest, error) {
	var body turnBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, invalid("malformed JSON")
	}

	raw := body.SessionID
	if raw == "" {
		raw = body.LegacySessionID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("session_id must be a uuid")
	}

	req := &TurnRequest{SessionID: id, KnownLore: body.KnownLore}
	switch {
	case body.PlayerAction != nil:
		req.PlayerAction = *body.PlayerAction
	case body.LegacyAction != nil:
		req.PlayerAction = game.PlayerAction{Type: body.LegacyAction.Type, Content: body.LegacyAction.Content}
		if req.PlayerAction.Type == game.ActionChoice && req.PlayerAction.Content == "" {
			req.PlayerAction.Content = body.LegacyAction.ID
		}
	default:
		return nil, invalid("player_action is required")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

type TurnResponse struct {
	Verdict           game.Verdict       `json:"verdict"`
	NextWorldState    game.WorldState    `json:"next_world_state"`
	NextPlayerProfile game.PlayerProfile `json:"next_player_profile"`
	NextQuestState    *game.PublicQuest  `json:"next_quest_state"`
	EnvState          *game.EnvState     `json:"env_state"`
	// EnvStatePending is set when a fresh snapshot is being generated and
	// will arrive as an envstate.updated event.
	EnvStatePending bool `json:"env_state_pending,omitempty"`
}

type PrefetchRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Options   []string  `json:"options"`
}

// PrefetchResult is a speculative turn, or an error when it could not be
// generated.
type PrefetchResult struct {
	Verdict           *game.Verdict       `json:"verdict,omitempty"`
	NextWorldState    *game.WorldState    `json:"next_world_state,omitempty"`
	NextPlayerProfile *game.PlayerProfile `json:"next_player_profile,omitempty"`
	NextQuestState    *game.PublicQuest   `json:"next_quest_state,omitempty"`
	Error             string              `json:"error,omitempty"`
}

type SyncRequest struct {
	SessionID         uuid.UUID           `json:"session_id"`
	NextWorldState    *game.WorldState    `json:"next_world_state"`
	NextPlayerProfile *game.PlayerProfile `json:"next_player_profile"`
	NextQuestState    *game.QuestState    `json:"next_quest_state"`
	Verdict           *game.Verdict       `json:"verdict,omitempty"`
}

func (r *SyncRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return invalid("session_id is required")
	}
	if r.NextWorldState == nil || r.NextPlayerProfile == nil {
		return invalid("next_world_state and next_player_profile are required")
	}
	return nil
}

type SyncResponse struct {
	Success  bool           `json:"success"`
	EnvState *game.EnvState `json:"env_state"`
}

type CompressRequest struct {
	SessionID uuid.UUID          `json:"session_id"`
	History   []game.HistoryItem `json:"history"`
}

type CompressResponse struct {
	CompressedHistory string `json:"compressed_history"`
	CompressedTurns   int    `json:"compressed_turns"`
	RemainingTurns    int    `json:"remaining_turns"`
	Message           string `json:"message,omitempty"`
}

// SettleRequest covers both settlement flows. A valid outcome together with
// game_history selects the agent flow; otherwise chosen_loot_id and
// loot_source select the loot flow.
type SettleRequest struct {
	SessionID      uuid.UUID                `json:"session_id"`
	Outcome        settlement.Outcome       `json:"outcome,omitempty"`
	GameHistory    []game.HistoryItem       `json:"game_history,omitempty"`
	CarriedItems   []settlement.CarriedItem `json:"carried_items,omitempty"`
	WorldTemplate  string                   `json:"world_template,omitempty"`
	ExistingTopics []string                 `json:"existing_topics,omitempty"`

	ChosenLootID string                `json:"chosen_loot_id,omitempty"`
	LootSource   settlement.LootSource `json:"loot_source,omitempty"`
}

func (r *SettleRequest) agentFlow() bool {
	return r.Outcome.Valid() && r.GameHistory != nil
}

func (r *SettleRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return invalid("session_id is required")
	}
	if r.agentFlow() {
		return nil
	}
	if r.ChosenLootID == "" || !r.LootSource.Valid() {
		return invalid("expected outcome and game_history, or chosen_loot_id and loot_source")
	}
	return nil
}

type SettleResponse struct {
	Success          bool                  `json:"success"`
	SettlementResult *settlement.EndResult `json:"settlement_result,omitempty"`
	ChosenLoot       *settlement.LootItem  `json:"chosen_loot"`

	// Loot flow only
	NewAtlasEntries []settlement.AtlasEntry `json:"new_atlas_entries,omitempty"`
	RunSummary      *settlement.RunSummary  `json:"run_summary,omitempty"`
}

type ArchiveRequest struct {
	WorldTemplate  string             `json:"world_template,omitempty"`
	WorldID        string             `json:"world_id,omitempty"`
	History        []game.HistoryItem `json:"history"`
	ExistingTopics []string           `json:"existing_topics"`
}

// AtlasView is everything the atlas store has learned across runs.
type AtlasView struct {
	Entries []storage.AtlasRecord `json:"entries"`
	Runs    []storage.RunRecord   `json:"runs"`
}

// SessionView is a session as shown to its player. Templates, rules and
// the hidden quest agenda stay on the server.
type SessionView struct {
	SessionID         uuid.UUID          `json:"session_id"`
	WorldTemplateID   string             `json:"world_template_id"`
	WorldState        game.WorldState    `json:"world_state"`
	PlayerProfile     game.PlayerProfile `json:"player_profile"`
	QuestState        *game.PublicQuest  `json:"quest_state"`
	History           []game.HistoryItem `json:"history"`
	CompressedHistory string             `json:"compressed_history,omitempty"`
	EnvState          *game.EnvState     `json:"env_state"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func viewSession(s *game.Session) *SessionView {
	history := s.History
	if history == nil {
		history = []game.HistoryItem{}
	}
	return &SessionView{
		SessionID:         s.ID,
		WorldTemplateID:   s.WorldTemplateID,
		WorldState:        s.WorldState,
		PlayerProfile:     s.PlayerProfile,
		QuestState:        game.SanitizeQuest(s.QuestState),
		History:           history,
		CompressedHistory: s.CompressedHistory,
		EnvState:          s.EnvState,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}
