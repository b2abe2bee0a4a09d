package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/chat"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

// agentGenerator answers each request according to the agent whose base
// prompt appears in the system instruction.
type agentGenerator struct {
	mu       sync.Mutex
	handlers map[string]func(req *chat.Request) (string, error)
	calls    map[string][]*chat.Request
}

var agentMarkers = map[string]string{
	prompts.AgentWorld:      "You are the World agent",
	prompts.AgentQuest:      "You are the Quest agent",
	prompts.AgentJudge:      "You are the Judge agent",
	prompts.AgentNarrator:   "You are the Narrator of",
	prompts.AgentCompressor: "You are the History Compressor",
	prompts.AgentEnvState:   "You are the Environment Sensor",
	"repair":                "You are a JSON output repairer",
}

func newAgentGenerator() *agentGenerator {
	return &agentGenerator{
		handlers: map[string]func(*chat.Request) (string, error){},
		calls:    map[string][]*chat.Request{},
	}
}

func (g *agentGenerator) on(agentName, response string) *agentGenerator {
	g.handlers[agentName] = func(*chat.Request) (string, error) { return response, nil }
	return g
}

func (g *agentGenerator) fail(agentName string, err error) *agentGenerator {
	g.handlers[agentName] = func(*chat.Request) (string, error) { return "", err }
	return g
}

func (g *agentGenerator) Generate(_ context.Context, req *chat.Request) (*chat.Response, error) {
	name := ""
	for agentName, marker := range agentMarkers {
		if strings.Contains(req.System, marker) {
			name = agentName
			break
		}
	}
	g.mu.Lock()
	g.calls[name] = append(g.calls[name], req)
	h := g.handlers[name]
	g.mu.Unlock()
	if h == nil {
		return nil, errors.New("no handler for agent " + name)
	}
	text, err := h(req)
	if err != nil {
		return nil, err
	}
	return &chat.Response{Content: text}, nil
}

func (g *agentGenerator) callCount(agentName string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls[agentName])
}

func (g *agentGenerator) lastPayload(t *testing.T, agentName string) map[string]any {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	calls := g.calls[agentName]
	if len(calls) == 0 {
		t.Fatalf("agent %s was never called", agentName)
	}
	content := calls[len(calls)-1].Messages[0].Content
	idx := strings.Index(content, "INPUT_JSON:\n")
	if idx == -1 {
		t.Fatalf("payload for %s has no INPUT_JSON marker", agentName)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(content[idx+len("INPUT_JSON:\n"):]), &payload); err != nil {
		t.Fatalf("payload for %s is not JSON: %v", agentName, err)
	}
	return payload
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(gen agent.Generator, roll int) *Engine {
	inv := agent.NewInvoker(gen, agent.NewModelRegistry("test-model", nil), testLogger())
	return New(inv, FixedRoller(roll), testLogger())
}

const (
	worldOK    = `{"environment_change":"The fog thickens.","npc_reactions":"","emerging_risks":["wolves","fog"],"sensory_feedback":{"visual":"grey","audio":"howls","smell":"damp","tactile":"cold","mental":"watched"}}`
	questOK    = `{"visible_objectives":[{"id":"obj_1","text":"Find the radio station","status":"active"}],"intel_logs":[{"source":"sign","content":"Station is north","reliability":"high"}],"hidden_agenda":"The mayor is dead."}`
	judgeOK    = `{"turn_id":99,"is_death":false,"narrative_directives":{"outcome_summary":"You find a lantern.","tone_instruction":"dread"},"state_updates":{"hp_change":-15,"power_change":"2"},"inventory_updates":[{"action":"add","item":{"id":"lantern","name":"Lantern","type":"tool"}}],"options":[{"id":"opt_1","text":"Light the lantern","risk_level":"low","type":"action"}],"death_report":null}`
	narratorOK = `{"narrative_text":"The lantern is cold in your hand."}`
)

func baseTurnContext(turnID int) game.TurnContext {
	return game.TurnContext{
		TurnID:        turnID,
		WorldTemplate: "# Mistwood\nA town in the fog.",
		HardRules:     "Death at 0 HP.",
		PlayerAction:  game.PlayerAction{Type: game.ActionFreeText, Content: "look around"},
		WorldState: game.WorldState{
			WorldID:       "world_mistwood_001",
			TurnCount:     turnID - 1,
			Environment:   game.Environment{Time: "23:58", Weather: "fog", Location: "Square"},
			Flags:         map[string]any{},
			ActiveThreats: []string{"fog"},
		},
		PlayerProfile: game.PlayerProfile{
			ID:     "p1",
			Name:   "Operative",
			Status: game.StatusAlive,
			Stats:  game.Stats{HP: 10, MaxHP: 100, Power: 10},
			Inventory: []game.InventoryItem{
				{ID: "knife", Name: "Knife", Type: game.ItemWeapon},
			},
			Traits: []game.Trait{},
		},
		KnownLore: []string{"The well is cursed.", "Never answer the bell."},
	}
}

func TestRunTurn_FirstTurn(t *testing.T) {
	gen := newAgentGenerator().
		on(prompts.AgentWorld, worldOK).
		on(prompts.AgentQuest, questOK).
		on(prompts.AgentJudge, judgeOK).
		on(prompts.AgentNarrator, narratorOK)
	e := newTestEngine(gen, 42)

	res, err := e.RunTurn(context.Background(), baseTurnContext(1))
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	v := res.Verdict
	if v.TurnID != 1 {
		t.Errorf("verdict turn_id = %d, want the context's 1", v.TurnID)
	}
	if v.DiceRoll != 42 {
		t.Errorf("dice_roll = %d, want 42", v.DiceRoll)
	}
	if v.Narrative.Content != "The lantern is cold in your hand." || v.Narrative.Tone != "dread" {
		t.Errorf("narrative = %+v", v.Narrative)
	}
	if len(v.Options) != 3 || v.Options[0].ID != "opt_1" || v.Options[1].ID != "opt_observe" || v.Options[2].ID != "opt_move" {
		t.Errorf("options = %+v", v.Options)
	}
	if v.DeathReport != nil {
		t.Errorf("death_report = %+v, want nil", v.DeathReport)
	}

	p := res.NextPlayerProfile
	if p.Stats.HP != 0 {
		t.Errorf("hp = %d, want 0 (clamped)", p.Stats.HP)
	}
	if p.Stats.Power != 12 {
		t.Errorf("power = %d, want 12", p.Stats.Power)
	}
	if len(p.Inventory) != 2 || p.Inventory[1].ID != "lantern" {
		t.Errorf("inventory = %+v", p.Inventory)
	}
	if p.Status != game.StatusAlive {
		t.Errorf("status = %q, judge did not declare death", p.Status)
	}

	w := res.NextWorldState
	if w.TurnCount != 1 {
		t.Errorf("turn_count = %d, want 1", w.TurnCount)
	}
	if w.Environment.Time != "00:03" {
		t.Errorf("time = %q, want 00:03", w.Environment.Time)
	}
	if strings.Join(w.ActiveThreats, ",") != "fog,wolves" {
		t.Errorf("active_threats = %v", w.ActiveThreats)
	}

	q := res.NextQuestState
	if q.HiddenAgenda != "The mayor is dead." || len(q.VisibleObjectives) != 1 {
		t.Errorf("quest = %+v", q)
	}
	if gen.callCount(prompts.AgentQuest) != 1 {
		t.Errorf("quest agent calls = %d, want 1", gen.callCount(prompts.AgentQuest))
	}
}

func TestRunTurn_ExpectedAgentInputs(t *testing.T) {
	gen := newAgentGenerator().
		on(prompts.AgentWorld, worldOK).
		on(prompts.AgentQuest, questOK).
		on(prompts.AgentJudge, judgeOK).
		on(prompts.AgentNarrator, narratorOK)
	e := newTestEngine(gen, 77)

	tc := baseTurnContext(5)
	tc.CompressedHistory = "Earlier, you arrived."
	for i := 1; i <= 4; i++ {
		tc.RecentHistory = append(tc.RecentHistory, game.HistoryItem{
			Action:  "step",
			Verdict: game.Verdict{TurnID: i, Narrative: game.Narrative{Content: "n" + string(rune('0'+i))}},
		})
	}
	if _, err := e.RunTurn(context.Background(), tc); err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}

	judge := gen.lastPayload(t, prompts.AgentJudge)
	if judge["dice_roll"].(float64) != 77 || judge["turn_id"].(float64) != 5 {
		t.Errorf("judge payload dice/turn = %v/%v", judge["dice_roll"], judge["turn_id"])
	}
	if judge["archived_history"] != "Earlier, you arrived." {
		t.Errorf("judge archived_history = %v", judge["archived_history"])
	}
	if _, ok := judge["world_context"].(map[string]any)["sensory_feedback"]; !ok {
		t.Error("judge payload is missing the world agent output")
	}

	narr := gen.lastPayload(t, prompts.AgentNarrator)
	if narr["previous_narrative"] != "n4" {
		t.Errorf("previous_narrative = %v, want n4", narr["previous_narrative"])
	}
	if narr["judge_outcome"] != "You find a lantern." || narr["tone_instruction"] != "dread" {
		t.Errorf("narrator payload = %v", narr)
	}
	if narr["world_style"] != mistwoodStyle {
		t.Errorf("world_style = %v", narr["world_style"])
	}

	quest := gen.lastPayload(t, prompts.AgentQuest)
	knowledge := quest["player_knowledge"].(map[string]any)
	if knowledge["quest_state"] != nil {
		t.Errorf("quest_state should be null without prior quest, got %v", knowledge["quest_state"])
	}

	gen.mu.Lock()
	judgeSystem := gen.calls[prompts.AgentJudge][0].System
	narrSystem := gen.calls[prompts.AgentNarrator][0].System
	narrTemp := *gen.calls[prompts.AgentNarrator][0].Temperature
	gen.mu.Unlock()
	if !strings.HasPrefix(judgeSystem, "### WORLD_TEMPLATE\n# Mistwood") {
		t.Errorf("judge system prompt should open with the world template: %q", judgeSystem[:40])
	}
	if !strings.Contains(judgeSystem, "### HARD_RULES\nDeath at 0 HP.") {
		t.Error("judge system prompt is missing hard rules")
	}
	if !strings.Contains(judgeSystem, "### KNOWN_LORE\nThe well is cursed.\nNever answer the bell.") {
		t.Error("judge system prompt is missing known lore")
	}
	if !strings.HasPrefix(narrSystem, "### WORLD_STYLE\n") {
		t.Error("narrator system prompt should open with the world style")
	}
	if narrTemp != narratorTemperature {
		t.Errorf("narrator temperature = %v", narrTemp)
	}
}

func TestRunTurn_QuestCadence(t *testing.T) {
	prior := &game.QuestState{
		VisibleObjectives: []game.Objective{{ID: "obj_prev", Text: "Old goal", Status: game.ObjectiveActive}},
		IntelLogs:         []game.IntelLog{},
		HiddenAgenda:      "kept",
	}

	tests := []struct {
		name       string
		turnID     int
		prior      *game.QuestState
		wantCalls  int
		wantAgenda string
	}{
		{"turn 2 carries prior", 2, prior, 0, "kept"},
		{"turn 4 without prior is empty", 4, nil, 0, ""},
		{"turn 9 runs", 9, prior, 1, "The mayor is dead."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newAgentGenerator().
				on(prompts.AgentWorld, worldOK).
				on(prompts.AgentQuest, questOK).
				on(prompts.AgentJudge, judgeOK).
				on(prompts.AgentNarrator, narratorOK)
			tc := baseTurnContext(tt.turnID)
			tc.QuestState = tt.prior

			res, err := newTestEngine(gen, 50).RunTurn(context.Background(), tc)
			if err != nil {
				t.Fatalf("RunTurn error: %v", err)
			}
			if got := gen.callCount(prompts.AgentQuest); got != tt.wantCalls {
				t.Errorf("quest calls = %d, want %d", got, tt.wantCalls)
			}
			if res.NextQuestState.HiddenAgenda != tt.wantAgenda {
				t.Errorf("hidden_agenda = %q, want %q", res.NextQuestState.HiddenAgenda, tt.wantAgenda)
			}
			if res.NextQuestState.VisibleObjectives == nil {
				t.Error("visible_objectives should never be nil")
			}
		})
	}
}

func TestRunTurn_DeathAndVictory(t *testing.T) {
	tests := []struct {
		name       string
		judge      string
		wantStatus game.PlayerStatus
		wantReport *game.DeathReport
	}{
		{
			name:       "death with alias keys",
			judge:      `{"turn_id":1,"is_death":true,"narrative_directives":{"outcome_summary":"x","tone_instruction":"grim"},"state_updates":{"hp_change":0,"power_change":0},"options":[],"death_report":{"cause":"Drowned","reason":"Swam at night"}}`,
			wantStatus: game.StatusDead,
			wantReport: &game.DeathReport{CauseOfDeath: "Drowned", TriggerAction: "Swam at night", MissedClues: []string{}, AvoidanceSuggestion: "No suggestion provided."},
		},
		{
			name:       "death at positive hp is trusted",
			judge:      `{"turn_id":1,"is_death":true,"narrative_directives":{"outcome_summary":"x","tone_instruction":"grim"},"state_updates":{"hp_change":0,"power_change":0},"options":[],"death_report":{}}`,
			wantStatus: game.StatusDead,
			wantReport: &game.DeathReport{CauseOfDeath: "Unknown Cause", TriggerAction: "Unknown Action", MissedClues: []string{}, AvoidanceSuggestion: "No suggestion provided."},
		},
		{
			name:       "victory",
			judge:      `{"turn_id":1,"is_victory":true,"narrative_directives":{"outcome_summary":"x","tone_instruction":"awe"},"state_updates":{},"options":[],"death_report":false}`,
			wantStatus: game.StatusAscended,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newAgentGenerator().
				on(prompts.AgentWorld, worldOK).
				on(prompts.AgentQuest, questOK).
				on(prompts.AgentJudge, tt.judge).
				on(prompts.AgentNarrator, narratorOK)
			tc := baseTurnContext(1)
			tc.PlayerProfile.Stats.HP = 80

			res, err := newTestEngine(gen, 3).RunTurn(context.Background(), tc)
			if err != nil {
				t.Fatalf("RunTurn error: %v", err)
			}
			if res.NextPlayerProfile.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", res.NextPlayerProfile.Status, tt.wantStatus)
			}
			if res.NextPlayerProfile.Stats.HP != 80 {
				t.Errorf("hp = %d, want 80", res.NextPlayerProfile.Stats.HP)
			}
			got := res.Verdict.DeathReport
			if (got == nil) != (tt.wantReport == nil) {
				t.Fatalf("death_report = %+v, want %+v", got, tt.wantReport)
			}
			if got != nil {
				if got.CauseOfDeath != tt.wantReport.CauseOfDeath ||
					got.TriggerAction != tt.wantReport.TriggerAction ||
					got.AvoidanceSuggestion != tt.wantReport.AvoidanceSuggestion ||
					len(got.MissedClues) != 0 {
					t.Errorf("death_report = %+v, want %+v", got, tt.wantReport)
				}
			}
		})
	}
}

func TestRunTurn_JudgeFallback(t *testing.T) {
	gen := newAgentGenerator().
		on(prompts.AgentWorld, worldOK).
		on(prompts.AgentQuest, questOK).
		on(prompts.AgentJudge, `I refuse to answer in JSON.`).
		fail("repair", errors.New("repair down")).
		on(prompts.AgentNarrator, narratorOK)

	tc := baseTurnContext(1)
	tc.PlayerProfile.Stats.HP = 55
	res, err := newTestEngine(gen, 10).RunTurn(context.Background(), tc)
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}
	if res.NextPlayerProfile.Stats.HP != 55 {
		t.Errorf("fallback verdict must not change hp, got %d", res.NextPlayerProfile.Stats.HP)
	}
	if res.Verdict.Narrative.Tone != "suspense" {
		t.Errorf("tone = %q, want suspense", res.Verdict.Narrative.Tone)
	}
	ids := []string{res.Verdict.Options[0].ID, res.Verdict.Options[1].ID, res.Verdict.Options[2].ID}
	if strings.Join(ids, ",") != "opt_observe,opt_move,opt_act" {
		t.Errorf("options = %v", ids)
	}
}

func TestRunTurn_WorldFailureFailsTurn(t *testing.T) {
	gen := newAgentGenerator().
		fail(prompts.AgentWorld, errors.New("provider down")).
		on(prompts.AgentQuest, questOK).
		on(prompts.AgentJudge, judgeOK).
		on(prompts.AgentNarrator, narratorOK)

	_, err := newTestEngine(gen, 10).RunTurn(context.Background(), baseTurnContext(1))
	if err == nil || !strings.Contains(err.Error(), "world agent") {
		t.Fatalf("expected world agent error, got %v", err)
	}
	if gen.callCount(prompts.AgentWorld) != 3 {
		t.Errorf("world attempts = %d, want 3", gen.callCount(prompts.AgentWorld))
	}
	if gen.callCount(prompts.AgentJudge) != 0 {
		t.Error("judge must not run when the world stage fails")
	}
}

func TestRunTurn_DoesNotMutateInput(t *testing.T) {
	gen := newAgentGenerator().
		on(prompts.AgentWorld, worldOK).
		on(prompts.AgentQuest, questOK).
		on(prompts.AgentJudge, judgeOK).
		on(prompts.AgentNarrator, narratorOK)
	tc := baseTurnContext(1)

	if _, err := newTestEngine(gen, 10).RunTurn(context.Background(), tc); err != nil {
		t.Fatal(err)
	}
	if len(tc.PlayerProfile.Inventory) != 1 || tc.PlayerProfile.Stats.HP != 10 {
		t.Errorf("input profile was mutated: %+v", tc.PlayerProfile)
	}
	if len(tc.WorldState.ActiveThreats) != 1 || tc.WorldState.Environment.Time != "23:58" {
		t.Errorf("input world was mutated: %+v", tc.WorldState)
	}
}

func TestRunTurn_HugeStatChangesSaturate(t *testing.T) {
	judge := `{"turn_id":1,"is_death":false,"narrative_directives":{"outcome_summary":"x","tone_instruction":"calm"},"state_updates":{"hp_change":1e20,"power_change":-1e20},"options":[],"death_report":null}`
	gen := newAgentGenerator().
		on(prompts.AgentWorld, worldOK).
		on(prompts.AgentQuest, questOK).
		on(prompts.AgentJudge, judge).
		on(prompts.AgentNarrator, narratorOK)
	tc := baseTurnContext(1)
	tc.PlayerProfile.Stats.HP = 50

	res, err := newTestEngine(gen, 3).RunTurn(context.Background(), tc)
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}
	if res.NextPlayerProfile.Stats.HP != 100 {
		t.Errorf("hp = %d, want max_hp 100", res.NextPlayerProfile.Stats.HP)
	}
	if res.NextPlayerProfile.Stats.Power != 0 {
		t.Errorf("power = %d, want 0", res.NextPlayerProfile.Stats.Power)
	}
	if got := res.Verdict.StateUpdates.HPChange; got != agent.MaxMagnitude {
		t.Errorf("verdict hp_change = %d, want %d", got, int(agent.MaxMagnitude))
	}
}

func TestRunTurn_BlankQuestEntriesKept(t *testing.T) {
	quest := `{"visible_objectives":[{"id":"obj_1","text":"Find the radio station","status":"active"},{"id":"","text":"","status":"active"}],"intel_logs":[{"source":"sign","content":"","reliability":"low"}],"hidden_agenda":"The mayor is dead."}`
	gen := newAgentGenerator().
		on(prompts.AgentWorld, worldOK).
		on(prompts.AgentQuest, quest).
		on(prompts.AgentJudge, judgeOK).
		on(prompts.AgentNarrator, narratorOK)

	res, err := newTestEngine(gen, 50).RunTurn(context.Background(), baseTurnContext(1))
	if err != nil {
		t.Fatalf("RunTurn error: %v", err)
	}
	q := res.NextQuestState
	if len(q.VisibleObjectives) != 2 || q.VisibleObjectives[0].Text != "Find the radio station" {
		t.Errorf("visible_objectives = %+v, want both entries", q.VisibleObjectives)
	}
	if len(q.IntelLogs) != 1 {
		t.Errorf("intel_logs = %+v, want the blank log kept", q.IntelLogs)
	}
	if q.HiddenAgenda != "The mayor is dead." {
		t.Errorf("hidden_agenda = %q, quest output should not fall back", q.HiddenAgenda)
	}
}
