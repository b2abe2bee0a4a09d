// Package settlement handles the start and end of a run: carry penalties
// applied to the opening profile, and lore extraction plus a run summary
// when the run is over.
package settlement

import "github.com/jwebster45206/adventure-engine/pkg/game"

// PenaltyType is the kind of cost an item carries across worlds.
type PenaltyType string

const (
	PenaltyMaxHPReduction PenaltyType = "max_hp_reduction"
	PenaltyPowerReduction PenaltyType = "power_reduction"
	PenaltyTraitCurse     PenaltyType = "trait_curse"
)

// Valid reports whether p is a known penalty type.
func (p PenaltyType) Valid() bool {
	switch p {
	case PenaltyMaxHPReduction, PenaltyPowerReduction, PenaltyTraitCurse:
		return true
	}
	return false
}

type ItemCarryPenalty struct {
	Type        PenaltyType `json:"type"`
	Value       int         `json:"value"`
	Description string      `json:"description"` // shown to the player
}

// CarriedItem is an item brought into a run from an earlier one.
type CarriedItem struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	CarryPenalty *ItemCarryPenalty `json:"carry_penalty,omitempty"`
}

// AppliedPenalty records one penalty for audit.
type AppliedPenalty struct {
	ItemName           string         `json:"item_name"`
	PenaltyDescription string         `json:"penalty_description"`
	StatChange         map[string]int `json:"stat_change"`
}

type InitResult struct {
	ModifiedProfile  game.PlayerProfile `json:"modified_profile"`
	AppliedPenalties []AppliedPenalty   `json:"applied_penalties"`
	Warnings         []string           `json:"warnings"`
}

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeDeath   Outcome = "death"
	OutcomeVictory Outcome = "victory"
	OutcomeEscape  Outcome = "escape"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeDeath, OutcomeVictory, OutcomeEscape:
		return true
	}
	return false
}

// RunOutcome is the outcome as recorded in a run summary. A victory is
// recorded as mastery.
type RunOutcome string

const (
	RunDeath   RunOutcome = "death"
	RunEscape  RunOutcome = "escape"
	RunMastery RunOutcome = "mastery"
)

func (o Outcome) RunOutcome() RunOutcome {
	if o == OutcomeVictory {
		return RunMastery
	}
	return RunOutcome(o)
}

// AtlasEntry is one piece of lore learned during a run.
type AtlasEntry struct {
	Topic       string             `json:"topic"`
	Category    game.AtlasCategory `json:"category"`
	Description string             `json:"description"`
}

type RunSummary struct {
	WorldID       string     `json:"world_id"`
	Summary       string     `json:"summary"`
	Outcome       RunOutcome `json:"outcome"`
	TurnsSurvived int        `json:"turns_survived"`
}

// LootType is the kind of reward a run can yield.
type LootType string

const (
	LootItemType LootType = "item"
	LootInfo     LootType = "info"
	LootAbility  LootType = "ability"
)

func (t LootType) Valid() bool {
	return t == LootItemType || t == LootInfo || t == LootAbility
}

type LootItem struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Type        LootType `json:"type" yaml:"type"`
	SideEffect  string   `json:"side_effect" yaml:"side_effect"`
}

// EndRequest carries everything needed to settle a finished run.
type EndRequest struct {
	Outcome        Outcome
	History        []game.HistoryItem
	FinalProfile   game.PlayerProfile
	FinalWorld     game.WorldState
	CarriedItems   []CarriedItem
	WorldTemplate  string
	ExistingTopics []string
}

type EndResult struct {
	NewAtlasEntries      []AtlasEntry   `json:"new_atlas_entries"`
	RunSummary           RunSummary     `json:"run_summary"`
	UnlockedItems        []LootItem     `json:"unlocked_items"`
	PermanentStatChanges map[string]int `json:"permanent_stat_changes"`
}

// Archive is what the archivist extracts from a play history.
type Archive struct {
	NewEntries []AtlasEntry `json:"new_entries"`
	RunSummary string       `json:"run_summary"`
}
