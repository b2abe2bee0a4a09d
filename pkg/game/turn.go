package game

import "fmt"

type ActionType string

const (
	ActionChoice   ActionType = "choice"
	ActionFreeText ActionType = "free_text"
)

type PlayerAction struct {
	Type    ActionType `json:"type"`
	Content string     `json:"content"`
}

// Validate checks the action the way the turn endpoint requires.
func (a PlayerAction) Validate() error {
	if a.Type != ActionChoice && a.Type != ActionFreeText {
		return fmt.Errorf("invalid action type %q", a.Type)
	}
	if a.Content == "" {
		return fmt.Errorf("action content cannot be empty")
	}
	return nil
}

type Option struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	RiskLevel RiskLevel  `json:"risk_level"`
	Type      OptionType `json:"type"`
}

type DeathReport struct {
	CauseOfDeath        string   `json:"cause_of_death"`
	TriggerAction       string   `json:"trigger_action"`
	MissedClues         []string `json:"missed_clues"`
	AvoidanceSuggestion string   `json:"avoidance_suggestion"`
}

type Narrative struct {
	Content string `json:"content"`
	Tone    string `json:"tone"`
}

type StateUpdates struct {
	HPChange    int `json:"hp_change"`
	PowerChange int `json:"power_change"`
}

// Verdict is the player-facing record of one turn.
type Verdict struct {
	TurnID       int          `json:"turn_id"`
	IsDeath      bool         `json:"is_death"`
	IsVictory    bool         `json:"is_victory"`
	DiceRoll     int          `json:"dice_roll"` // 1-100
	Narrative    Narrative    `json:"narrative"`
	StateUpdates StateUpdates `json:"state_updates"`
	Options      []Option     `json:"options"`
	DeathReport  *DeathReport `json:"death_report"`
}

// HistoryItem pairs the action text with the verdict it produced.
type HistoryItem struct {
	Action  string  `json:"action"`
	Verdict Verdict `json:"verdict"`
}

// TurnContext bundles everything the orchestrator needs for one turn.
// TurnID is the turn being played, i.e. the previous turn count plus one.
type TurnContext struct {
	TurnID            int           `json:"turn_id"`
	WorldTemplate     string        `json:"world_template"`
	HardRules         string        `json:"hard_rules"`
	PlayerAction      PlayerAction  `json:"player_action"`
	WorldState        WorldState    `json:"world_state"`
	PlayerProfile     PlayerProfile `json:"player_profile"`
	QuestState        *QuestState   `json:"quest_state"`
	KnownLore         []string      `json:"known_lore,omitempty"`
	RecentHistory     []HistoryItem `json:"recent_history,omitempty"`
	CompressedHistory string        `json:"compressed_history,omitempty"`
}

type TurnResult struct {
	Verdict           Verdict       `json:"verdict"`
	NextWorldState    WorldState    `json:"next_world_state"`
	NextPlayerProfile PlayerProfile `json:"next_player_profile"`
	NextQuestState    QuestState    `json:"next_quest_state"`
}
