package engine

import (
	"context"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

// profileView is the slice of the player profile agents get to see.
type profileView struct {
	Stats     game.Stats           `json:"stats"`
	Inventory []game.InventoryItem `json:"inventory"`
	Traits    []game.Trait         `json:"traits"`
}

func viewProfile(p game.PlayerProfile) profileView {
	return profileView{Stats: p.Stats, Inventory: p.Inventory, Traits: p.Traits}
}

type worldInput struct {
	WorldTemplate   string             `json:"world_template"`
	CurrentState    game.WorldState    `json:"current_state"`
	PlayerAction    game.PlayerAction  `json:"player_action"`
	RecentHistory   []game.DigestEntry `json:"recent_history"`
	ArchivedHistory string             `json:"archived_history"`
}

type questVisible struct {
	VisibleObjectives []game.Objective `json:"visible_objectives"`
	IntelLogs         []game.IntelLog  `json:"intel_logs"`
}

type playerKnowledge struct {
	WorldState      game.WorldState    `json:"world_state"`
	PlayerProfile   profileView        `json:"player_profile"`
	QuestState      *questVisible      `json:"quest_state"`
	RecentHistory   []game.DigestEntry `json:"recent_history"`
	ArchivedHistory string             `json:"archived_history"`
}

type questInput struct {
	WorldTruth      string          `json:"world_truth"`
	PlayerKnowledge playerKnowledge `json:"player_knowledge"`
}

type judgeInput struct {
	TurnID          int                `json:"turn_id"`
	PlayerAction    game.PlayerAction  `json:"player_action"`
	DiceRoll        int                `json:"dice_roll"`
	WorldContext    *WorldOutput       `json:"world_context"`
	QuestContext    game.QuestState    `json:"quest_context"`
	PlayerProfile   profileView        `json:"player_profile"`
	HardRules       string             `json:"hard_rules"`
	RecentHistory   []game.DigestEntry `json:"recent_history"`
	ArchivedHistory string             `json:"archived_history"`
}

type narratorInput struct {
	JudgeOutcome         string             `json:"judge_outcome"`
	PreviousNarrative    string             `json:"previous_narrative"`
	DiceRoll             int                `json:"dice_roll"`
	ToneInstruction      string             `json:"tone_instruction"`
	WorldStyle           string             `json:"world_style"`
	ArchivedHistory      string             `json:"archived_history"`
	RecentHistorySummary []game.DigestEntry `json:"recent_history_summary"`
}

// turnPrompts holds the composed system prompts for one turn.
type turnPrompts struct {
	world, quest, judge, narrator string
}

func buildTurnPrompts(tc game.TurnContext) turnPrompts {
	lore := strings.Join(tc.KnownLore, "\n")
	return turnPrompts{
		world: prompts.New(prompts.WorldPrompt).
			WithSection(prompts.SectionWorldTemplate, tc.WorldTemplate).
			WithSection(prompts.SectionKnownLore, lore).
			Build(),
		quest: prompts.New(prompts.QuestPrompt).
			WithSection(prompts.SectionWorldTemplate, tc.WorldTemplate).
			Build(),
		judge: prompts.New(prompts.JudgePrompt).
			WithSection(prompts.SectionWorldTemplate, tc.WorldTemplate).
			WithSection(prompts.SectionHardRules, tc.HardRules).
			WithSection(prompts.SectionKnownLore, lore).
			Build(),
		narrator: prompts.New(prompts.NarratorPrompt).
			WithSection(prompts.SectionWorldStyle, InferWorldStyle(tc.WorldTemplate)).
			WithSection(prompts.SectionKnownLore, lore).
			Build(),
	}
}

// ShouldRunQuest reports whether the quest agent runs on this turn
// (turns 1, 5, 9, ...).
func ShouldRunQuest(turnID int) bool {
	return turnID%4 == 1
}

func (e *Engine) runWorld(ctx context.Context, system string, tc game.TurnContext, digest []game.DigestEntry) (*WorldOutput, error) {
	return agent.Invoke[WorldOutput](ctx, e.inv, agent.Call{
		Agent:  prompts.AgentWorld,
		System: system,
		Input: worldInput{
			WorldTemplate:   tc.WorldTemplate,
			CurrentState:    tc.WorldState,
			PlayerAction:    tc.PlayerAction,
			RecentHistory:   digest,
			ArchivedHistory: tc.CompressedHistory,
		},
		Temperature: mechanicalTemperature,
		MaxTokens:   worldMaxTokens,
		Template:    worldTemplate,
		Fallback:    worldFallback,
		Schema:      worldSchema,
	})
}

func (e *Engine) runQuest(ctx context.Context, system string, tc game.TurnContext, digest []game.DigestEntry) (*game.QuestState, error) {
	var visible *questVisible
	if tc.QuestState != nil {
		visible = &questVisible{
			VisibleObjectives: tc.QuestState.VisibleObjectives,
			IntelLogs:         tc.QuestState.IntelLogs,
		}
	}
	out, err := agent.Invoke[QuestOutput](ctx, e.inv, agent.Call{
		Agent:  prompts.AgentQuest,
		System: system,
		Input: questInput{
			WorldTruth: tc.WorldTemplate,
			PlayerKnowledge: playerKnowledge{
				WorldState:      tc.WorldState,
				PlayerProfile:   viewProfile(tc.PlayerProfile),
				QuestState:      visible,
				RecentHistory:   digest,
				ArchivedHistory: tc.CompressedHistory,
			},
		},
		Temperature: mechanicalTemperature,
		MaxTokens:   questMaxTokens,
		Template:    questTemplate,
		Fallback:    questFallback,
		Schema:      questSchema,
	})
	if err != nil {
		return nil, err
	}
	q := game.QuestState(*out)
	return &q, nil
}

func (e *Engine) runJudge(ctx context.Context, system string, tc game.TurnContext, roll int, world *WorldOutput, quest game.QuestState, digest []game.DigestEntry) (*JudgeOutput, error) {
	return agent.Invoke[JudgeOutput](ctx, e.inv, agent.Call{
		Agent:  prompts.AgentJudge,
		System: system,
		Input: judgeInput{
			TurnID:          tc.TurnID,
			PlayerAction:    tc.PlayerAction,
			DiceRoll:        roll,
			WorldContext:    world,
			QuestContext:    quest,
			PlayerProfile:   viewProfile(tc.PlayerProfile),
			HardRules:       tc.HardRules,
			RecentHistory:   digest,
			ArchivedHistory: tc.CompressedHistory,
		},
		Temperature: mechanicalTemperature,
		MaxTokens:   judgeMaxTokens,
		Template:    judgeTemplate,
		Fallback:    judgeFallback,
		Schema:      judgeSchema,
	})
}

func (e *Engine) runNarrator(ctx context.Context, system string, tc game.TurnContext, roll int, judge *JudgeOutput, digest []game.DigestEntry) (string, error) {
	out, err := agent.Invoke[NarratorOutput](ctx, e.inv, agent.Call{
		Agent:  prompts.AgentNarrator,
		System: system,
		Input: narratorInput{
			JudgeOutcome:         judge.OutcomeSummary(),
			PreviousNarrative:    game.PreviousNarrative(tc.RecentHistory),
			DiceRoll:             roll,
			ToneInstruction:      judge.Tone(),
			WorldStyle:           InferWorldStyle(tc.WorldTemplate),
			ArchivedHistory:      tc.CompressedHistory,
			RecentHistorySummary: digest,
		},
		Temperature: narratorTemperature,
		MaxTokens:   narratorMaxTokens,
		Template:    narratorTemplate,
		Fallback:    narratorFallback,
		Schema:      narratorSchema,
	})
	if err != nil {
		return "", err
	}
	return *out.NarrativeText, nil
}
