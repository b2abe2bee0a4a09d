package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/chat"
	"github.com/jwebster45206/adventure-engine/pkg/game"
)

// Sampling parameters per agent.
const (
	worldMaxTokens      = 350
	questMaxTokens      = 450
	judgeMaxTokens      = 600
	narratorMaxTokens   = 700
	compressorMaxTokens = 500
	envStateMaxTokens   = 400

	mechanicalTemperature = 0
	narratorTemperature   = 0.3
)

// JSON templates shown to the repairer.
const (
	worldTemplate    = `{ "environment_change": "...", "npc_reactions": "...", "emerging_risks": ["..."], "sensory_feedback": { "visual": "...", "audio": "...", "smell": "...", "tactile": "...", "mental": "..." } }`
	questTemplate    = `{ "visible_objectives": [ { "id": "obj_1", "text": "...", "status": "active" } ], "intel_logs": [ { "source": "...", "content": "...", "reliability": "unknown" } ], "hidden_agenda": "..." }`
	judgeTemplate    = `{ "turn_id": 1, "is_death": false, "narrative_directives": { "outcome_summary": "...", "tone_instruction": "suspense" }, "state_updates": { "hp_change": 0, "power_change": 0 }, "inventory_updates": [], "options": [ { "id": "opt_1", "text": "...", "risk_level": "medium", "type": "action" } ], "death_report": null }`
	narratorTemplate = `{ "narrative_text": "..." }`
	compressTemplate = `{ "compressed_summary": "..." }`
	envTemplate      = `{ "core": { "time": "...", "location": "...", "weather": "..." }, "senses": [ { "id": "...", "category": "...", "summary": "...", "details": "...", "threat_level": "safe" } ] }`
)

// Static fallbacks, used when output cannot be repaired.
const (
	worldFallback    = `{ "environment_change": "", "npc_reactions": "", "emerging_risks": [], "sensory_feedback": { "visual": "blurry", "audio": "silence", "smell": "none", "tactile": "none", "mental": "none" } }`
	questFallback    = `{ "visible_objectives": [], "intel_logs": [], "hidden_agenda": "" }`
	judgeFallback    = `{ "turn_id": 1, "is_death": false, "narrative_directives": { "outcome_summary": "The system could not reliably parse this turn's verdict; a conservative default was applied.", "tone_instruction": "suspense" }, "state_updates": { "hp_change": 0, "power_change": 0 }, "inventory_updates": [], "options": [], "death_report": null }`
	narratorFallback = `{ "narrative_text": "The fog hangs heavy. You rely on instinct to stay calm and carefully take the next step." }`
)

type SensoryFeedback struct {
	Visual  string `json:"visual"`
	Audio   string `json:"audio"`
	Smell   string `json:"smell"`
	Tactile string `json:"tactile"`
	Mental  string `json:"mental"`
}

// WorldOutput is advisory: only EmergingRisks is merged into state.
type WorldOutput struct {
	EnvironmentChange string           `json:"environment_change"`
	NPCReactions      string           `json:"npc_reactions"`
	EmergingRisks     agent.StringList `json:"emerging_risks"`
	SensoryFeedback   *SensoryFeedback `json:"sensory_feedback"`
}

func (w *WorldOutput) Validate() error {
	if w.SensoryFeedback == nil {
		return errors.New("sensory_feedback is required")
	}
	if w.EmergingRisks == nil {
		w.EmergingRisks = agent.StringList{}
	}
	return nil
}

// QuestOutput decodes into the full quest state; enums are lenient.
type QuestOutput game.QuestState

// Validate only normalizes: blank strings are kept as the model sent them.
func (q *QuestOutput) Validate() error {
	if q.VisibleObjectives == nil {
		q.VisibleObjectives = []game.Objective{}
	}
	if q.IntelLogs == nil {
		q.IntelLogs = []game.IntelLog{}
	}
	return nil
}

type NarrativeDirectives struct {
	OutcomeSummary  *string `json:"outcome_summary"`
	ToneInstruction *string `json:"tone_instruction"`
}

type JudgeStateUpdates struct {
	HPChange    agent.Number `json:"hp_change"`
	PowerChange agent.Number `json:"power_change"`
}

type JudgeOption struct {
	ID        *string         `json:"id"`
	Text      *string         `json:"text"`
	RiskLevel game.RiskLevel  `json:"risk_level"`
	Type      game.OptionType `json:"type"`
}

// JudgeOutput is the mechanical ruling for a turn.
type JudgeOutput struct {
	TurnID              agent.Number           `json:"turn_id"`
	IsDeath             bool                   `json:"is_death"`
	IsVictory           bool                   `json:"is_victory"`
	NarrativeDirectives *NarrativeDirectives   `json:"narrative_directives"`
	StateUpdates        *JudgeStateUpdates     `json:"state_updates"`
	InventoryUpdates    []game.InventoryUpdate `json:"inventory_updates"`
	Options             []JudgeOption          `json:"options"`
	DeathReport         DeathReportField       `json:"death_report"`
}

func (j *JudgeOutput) Validate() error {
	if !j.TurnID.Set {
		return errors.New("turn_id is required")
	}
	if j.NarrativeDirectives == nil ||
		j.NarrativeDirectives.OutcomeSummary == nil ||
		j.NarrativeDirectives.ToneInstruction == nil {
		return errors.New("narrative_directives.outcome_summary and tone_instruction are required")
	}
	if j.StateUpdates == nil {
		return errors.New("state_updates is required")
	}
	for i, u := range j.InventoryUpdates {
		if u.Action != game.InventoryAdd && u.Action != game.InventoryRemove {
			return fmt.Errorf("inventory_updates[%d]: invalid action %q", i, u.Action)
		}
		if u.Item.ID == "" || u.Item.Name == "" {
			return fmt.Errorf("inventory_updates[%d]: item id and name are required", i)
		}
	}
	for i, o := range j.Options {
		if o.ID == nil || o.Text == nil {
			return fmt.Errorf("options[%d]: id and text are required", i)
		}
	}
	return nil
}

// GameOptions converts the ruling's options to domain options.
func (j *JudgeOutput) GameOptions() []game.Option {
	out := make([]game.Option, 0, len(j.Options))
	for _, o := range j.Options {
		out = append(out, game.Option{ID: *o.ID, Text: *o.Text, RiskLevel: o.RiskLevel, Type: o.Type})
	}
	return out
}

// OutcomeSummary and Tone are safe to call after Validate.
func (j *JudgeOutput) OutcomeSummary() string { return *j.NarrativeDirectives.OutcomeSummary }
func (j *JudgeOutput) Tone() string           { return *j.NarrativeDirectives.ToneInstruction }

// DeathReportField normalizes whatever the judge put in death_report. Falsy
// values become nil; missing fields get placeholder text.
type DeathReportField struct {
	Report *game.DeathReport
}

func (d *DeathReportField) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !truthy(raw) {
		d.Report = nil
		return nil
	}

	obj, _ := raw.(map[string]any)
	cause, err := firstString(obj, "Unknown Cause", "cause_of_death", "cause")
	if err != nil {
		return err
	}
	trigger, err := firstString(obj, "Unknown Action", "trigger_action", "reason")
	if err != nil {
		return err
	}
	suggestion, err := firstString(obj, "No suggestion provided.", "avoidance_suggestion")
	if err != nil {
		return err
	}

	clues := []string{}
	if v, ok := obj["missed_clues"]; ok && truthy(v) {
		list, ok := v.([]any)
		if !ok {
			return errors.New("death_report.missed_clues must be a list of strings")
		}
		for _, c := range list {
			s, ok := c.(string)
			if !ok {
				return errors.New("death_report.missed_clues must be a list of strings")
			}
			clues = append(clues, s)
		}
	}

	d.Report = &game.DeathReport{
		CauseOfDeath:        cause,
		TriggerAction:       trigger,
		MissedClues:         clues,
		AvoidanceSuggestion: suggestion,
	}
	return nil
}

func (d DeathReportField) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Report)
}

// firstString returns the first truthy value among keys, or def. A truthy
// value that is not a string is an error.
func firstString(obj map[string]any, def string, keys ...string) (string, error) {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || !truthy(v) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("death_report.%s must be a string", k)
		}
		return s, nil
	}
	return def, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

type NarratorOutput struct {
	NarrativeText *string `json:"narrative_text"`
}

func (n *NarratorOutput) Validate() error {
	if n.NarrativeText == nil {
		return errors.New("narrative_text is required")
	}
	return nil
}

type compressorOutput struct {
	CompressedSummary *string `json:"compressed_summary"`
}

func (c *compressorOutput) Validate() error {
	if c.CompressedSummary == nil {
		return errors.New("compressed_summary is required")
	}
	return nil
}

type envStateOutput struct {
	Core   *game.EnvCore    `json:"core"`
	Senses []game.SenseItem `json:"senses"`
}

func (e *envStateOutput) Validate() error {
	if e.Core == nil {
		return errors.New("core is required")
	}
	if e.Senses == nil {
		return errors.New("senses is required")
	}
	for i, s := range e.Senses {
		if !s.ThreatLevel.Valid() {
			return fmt.Errorf("senses[%d]: invalid threat_level %q", i, s.ThreatLevel)
		}
	}
	return nil
}

// Output schemas for providers that support structured output.
var (
	stringType = map[string]any{"type": "string"}

	worldSchema = &chat.Schema{Name: "WorldAgentResponse", Schema: object(map[string]any{
		"environment_change": stringType,
		"npc_reactions":      stringType,
		"emerging_risks":     map[string]any{"type": "array", "items": stringType},
		"sensory_feedback": object(map[string]any{
			"visual": stringType, "audio": stringType, "smell": stringType, "tactile": stringType, "mental": stringType,
		}, "visual", "audio", "smell", "tactile", "mental"),
	}, "sensory_feedback")}

	questSchema = &chat.Schema{Name: "QuestAgentResponse", Schema: object(map[string]any{
		"visible_objectives": array(object(map[string]any{
			"id": stringType, "text": stringType, "status": enum("active", "completed", "failed"),
		}, "id", "text", "status")),
		"intel_logs": array(object(map[string]any{
			"source": stringType, "content": stringType, "reliability": enum("low", "med", "high", "unknown"),
		}, "source", "content", "reliability")),
		"hidden_agenda": stringType,
	})}

	judgeSchema = &chat.Schema{Name: "JudgeAgentResult", Schema: object(map[string]any{
		"turn_id":    map[string]any{"type": "integer"},
		"is_death":   map[string]any{"type": "boolean"},
		"is_victory": map[string]any{"type": "boolean"},
		"narrative_directives": object(map[string]any{
			"outcome_summary": stringType, "tone_instruction": stringType,
		}, "outcome_summary", "tone_instruction"),
		"state_updates": object(map[string]any{
			"hp_change": map[string]any{"type": "integer"}, "power_change": map[string]any{"type": "integer"},
		}, "hp_change", "power_change"),
		"inventory_updates": array(object(map[string]any{
			"action": enum("add", "remove"),
			"item": object(map[string]any{
				"id": stringType, "name": stringType, "description": stringType,
				"type": enum("weapon", "tool", "consumable", "key", "misc"),
			}, "id", "name", "type"),
		}, "action", "item")),
		"options": array(object(map[string]any{
			"id": stringType, "text": stringType,
			"risk_level": enum("low", "medium", "high", "critical"),
			"type":       enum("action", "stealth", "observation", "interact", "examine"),
		}, "id", "text", "risk_level", "type")),
		"death_report": map[string]any{"type": []string{"object", "null"}},
	}, "turn_id", "is_death", "narrative_directives", "state_updates", "options")}

	narratorSchema = &chat.Schema{Name: "NarratorResult", Schema: object(map[string]any{
		"narrative_text": stringType,
	}, "narrative_text")}

	compressorSchema = &chat.Schema{Name: "CompressorOutput", Schema: object(map[string]any{
		"compressed_summary": stringType,
	}, "compressed_summary")}

	envStateSchema = &chat.Schema{Name: "EnvStateData", Schema: object(map[string]any{
		"core": object(map[string]any{
			"time": stringType, "location": stringType, "weather": stringType,
		}, "time", "location", "weather"),
		"senses": array(object(map[string]any{
			"id": stringType, "category": stringType, "summary": stringType, "details": stringType,
			"threat_level": enum("safe", "notice", "warning", "danger"),
		}, "id", "category", "summary", "details", "threat_level")),
	}, "core", "senses")}
)

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func array(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func enum(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}
