package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/chat"
	"github.com/jwebster45206/adventure-engine/pkg/game"
)

func baseProfile() game.PlayerProfile {
	return game.PlayerProfile{
		ID:        "p1",
		Name:      "Operative",
		Status:    game.StatusAlive,
		Stats:     game.Stats{HP: 100, MaxHP: 100, Power: 10},
		Inventory: []game.InventoryItem{},
		Traits:    []game.Trait{},
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name         string
		items        []CarriedItem
		wantHP       int
		wantMaxHP    int
		wantPower    int
		wantTraits   []game.Trait
		wantWarnings []string
	}{
		{
			name: "max hp reduction clamps hp",
			items: []CarriedItem{
				{ID: "amulet", Name: "Amulet", CarryPenalty: &ItemCarryPenalty{Type: PenaltyMaxHPReduction, Value: 20, Description: "It drains your vitality."}},
			},
			wantHP: 80, wantMaxHP: 80, wantPower: 10,
			wantTraits:   []game.Trait{},
			wantWarnings: []string{"⚠️ Amulet: It drains your vitality."},
		},
		{
			name: "reductions floor at one",
			items: []CarriedItem{
				{ID: "a", Name: "A", CarryPenalty: &ItemCarryPenalty{Type: PenaltyMaxHPReduction, Value: 500, Description: "a"}},
				{ID: "b", Name: "B", CarryPenalty: &ItemCarryPenalty{Type: PenaltyPowerReduction, Value: 50, Description: "b"}},
			},
			wantHP: 1, wantMaxHP: 1, wantPower: 1,
			wantTraits:   []game.Trait{},
			wantWarnings: []string{"⚠️ A: a", "⚠️ B: b"},
		},
		{
			name: "trait curse",
			items: []CarriedItem{
				{ID: "mirror", Name: "Mirror", CarryPenalty: &ItemCarryPenalty{Type: PenaltyTraitCurse, Value: 1, Description: "Your reflection lags."}},
			},
			wantHP: 100, wantMaxHP: 100, wantPower: 10,
			wantTraits:   []game.Trait{{ID: "curse_mirror", Name: "Mirror's curse", Effect: "Your reflection lags."}},
			wantWarnings: []string{"⚠️ Mirror: Your reflection lags."},
		},
		{
			name: "items without penalty are ignored",
			items: []CarriedItem{
				{ID: "stone", Name: "Stone"},
				{ID: "odd", Name: "Odd", CarryPenalty: &ItemCarryPenalty{Type: "bad_luck", Value: 3}},
			},
			wantHP: 100, wantMaxHP: 100, wantPower: 10,
			wantTraits:   []game.Trait{},
			wantWarnings: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := baseProfile()
			res := Initialize("world_mistwood_001", tt.items, base)

			assert.Equal(t, tt.wantHP, res.ModifiedProfile.Stats.HP)
			assert.Equal(t, tt.wantMaxHP, res.ModifiedProfile.Stats.MaxHP)
			assert.Equal(t, tt.wantPower, res.ModifiedProfile.Stats.Power)
			assert.Equal(t, tt.wantTraits, res.ModifiedProfile.Traits)
			assert.Equal(t, tt.wantWarnings, res.Warnings)
			assert.Len(t, res.AppliedPenalties, len(tt.wantWarnings))

			assert.Equal(t, 100, base.Stats.MaxHP, "base profile must not change")
			assert.Empty(t, base.Traits)
		})
	}
}

func TestInitialize_AppliedPenaltyRecords(t *testing.T) {
	items := []CarriedItem{
		{ID: "a", Name: "A", CarryPenalty: &ItemCarryPenalty{Type: PenaltyMaxHPReduction, Value: 5, Description: "da"}},
		{ID: "b", Name: "B", CarryPenalty: &ItemCarryPenalty{Type: PenaltyPowerReduction, Value: 2, Description: "db"}},
		{ID: "c", Name: "C", CarryPenalty: &ItemCarryPenalty{Type: PenaltyTraitCurse, Value: 1, Description: "dc"}},
	}
	res := Initialize("w", items, baseProfile())

	want := []AppliedPenalty{
		{ItemName: "A", PenaltyDescription: "da", StatChange: map[string]int{"max_hp": -5}},
		{ItemName: "B", PenaltyDescription: "db", StatChange: map[string]int{"power": -2}},
		{ItemName: "C", PenaltyDescription: "dc", StatChange: map[string]int{"trait": 1}},
	}
	assert.Equal(t, want, res.AppliedPenalties)
}

func TestPermanentStatChanges(t *testing.T) {
	items := []CarriedItem{
		{ID: "a", CarryPenalty: &ItemCarryPenalty{Type: PenaltyMaxHPReduction, Value: 5}},
		{ID: "b", CarryPenalty: &ItemCarryPenalty{Type: PenaltyPowerReduction, Value: 2}},
		{ID: "c", CarryPenalty: &ItemCarryPenalty{Type: PenaltyMaxHPReduction, Value: 10}},
		{ID: "d"},
	}
	assert.Equal(t, map[string]int{"max_hp": -15}, PermanentStatChanges(items))
	assert.Equal(t, map[string]int{}, PermanentStatChanges(nil))
}

func TestParseArchive(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    *Archive
		wantErr bool
	}{
		{
			name: "plain",
			text: `{"new_entries":[{"topic":"Mayor","category":"npc","description":"Runs the town."}],"run_summary":"They endured."}`,
			want: &Archive{NewEntries: []AtlasEntry{{Topic: "Mayor", Category: game.AtlasNPC, Description: "Runs the town."}}, RunSummary: "They endured."},
		},
		{
			name: "fenced with unknown category",
			text: "```json\n{\"new_entries\":[{\"topic\":\"Bell\",\"category\":\"artifact\",\"description\":\"Rings at midnight.\"}],\"run_summary\":\"s\"}\n```",
			want: &Archive{NewEntries: []AtlasEntry{{Topic: "Bell", Category: game.AtlasSecret, Description: "Rings at midnight."}}, RunSummary: "s"},
		},
		{
			name: "missing category",
			text: `  {"new_entries":[{"topic":"Well","description":"Deep."}],"run_summary":"s"}  `,
			want: &Archive{NewEntries: []AtlasEntry{{Topic: "Well", Category: game.AtlasSecret, Description: "Deep."}}, RunSummary: "s"},
		},
		{name: "prose", text: "I could not find any lore.", wantErr: true},
		{name: "missing summary", text: `{"new_entries":[]}`, wantErr: true},
		{name: "entry without topic", text: `{"new_entries":[{"description":"x"}],"run_summary":"s"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArchive(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimpleSummary(t *testing.T) {
	p := baseProfile()
	p.Stats.HP = 0
	assert.Equal(t, "Operative fell on turn 7. Final HP: 0/100.", SimpleSummary(OutcomeDeath, 7, p))

	p.Name = "Mara"
	assert.Equal(t, "Mara completed the mission on turn 12 and uncovered the world's secret.", SimpleSummary(OutcomeVictory, 12, p))
	assert.Equal(t, "Mara chose to withdraw on turn 3 and survived.", SimpleSummary(OutcomeEscape, 3, p))

	p.Name = ""
	assert.True(t, strings.HasPrefix(SimpleSummary(OutcomeEscape, 1, p), "Operative "))
}

type fakeGenerator struct {
	text     string
	err      error
	requests []*chat.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req *chat.Request) (*chat.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &chat.Response{Content: f.text}, nil
}

func newSettler(gen agent.Generator) *Settler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := agent.NewInvoker(gen, agent.NewModelRegistry("m", map[string]string{"archivist": "archivist-model"}), logger).
		WithRetryPolicy(agent.RetryPolicy{MaxRetries: 0})
	return NewSettler(inv, logger)
}

func endRequest(outcome Outcome) EndRequest {
	profile := baseProfile()
	profile.Stats.HP = 30
	return EndRequest{
		Outcome: outcome,
		History: []game.HistoryItem{
			{Action: "open the gate", Verdict: game.Verdict{TurnID: 1, Narrative: game.Narrative{Content: "It creaks."}}},
			{Action: "enter", Verdict: game.Verdict{TurnID: 2, IsDeath: true, Narrative: game.Narrative{Content: "Darkness."}}},
		},
		FinalProfile: profile,
		FinalWorld:   game.WorldState{WorldID: "world_mistwood_001"},
		CarriedItems: []CarriedItem{
			{ID: "a", Name: "A", CarryPenalty: &ItemCarryPenalty{Type: PenaltyMaxHPReduction, Value: 10}},
		},
	}
}

func TestSettle(t *testing.T) {
	gen := &fakeGenerator{text: "```\n{\"new_entries\":[{\"topic\":\"Gate\",\"category\":\"location\",\"description\":\"It creaks.\"}],\"run_summary\":\"An epic end.\"}\n```"}
	req := endRequest(OutcomeVictory)
	req.ExistingTopics = []string{"Mayor"}

	res := newSettler(gen).Settle(context.Background(), req)

	assert.Equal(t, []AtlasEntry{{Topic: "Gate", Category: game.AtlasLocation, Description: "It creaks."}}, res.NewAtlasEntries)
	assert.Equal(t, RunSummary{WorldID: "world_mistwood_001", Summary: "An epic end.", Outcome: RunMastery, TurnsSurvived: 2}, res.RunSummary)
	assert.Empty(t, res.UnlockedItems)
	assert.NotNil(t, res.UnlockedItems)
	assert.Equal(t, map[string]int{"max_hp": -10}, res.PermanentStatChanges)

	require.Len(t, gen.requests, 1)
	sent := gen.requests[0]
	assert.Equal(t, "archivist-model", sent.Model)
	var in archivistInput
	require.NoError(t, json.Unmarshal([]byte(sent.Messages[0].Content), &in))
	assert.Equal(t, "world_mistwood_001", in.WorldTemplate, "world id stands in for a missing template")
	assert.Equal(t, []string{"Mayor"}, in.ExistingTopics)
	assert.Equal(t, "Turn 1: Player \"open the gate\" -> Result: It creaks. (Death: false)\nTurn 2: Player \"enter\" -> Result: Darkness. (Death: true)", in.PlayHistory)
}

func TestSettle_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		outcome Outcome
		want    string
	}{
		{"provider failure", &fakeGenerator{err: errors.New("down")}, OutcomeDeath, "Operative fell on turn 2. Final HP: 30/100."},
		{"unparseable reply", &fakeGenerator{text: "no lore today"}, OutcomeEscape, "Operative chose to withdraw on turn 2 and survived."},
		{"empty summary", &fakeGenerator{text: `{"new_entries":[],"run_summary":""}`}, OutcomeVictory, "Operative completed the mission on turn 2 and uncovered the world's secret."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newSettler(tt.gen).Settle(context.Background(), endRequest(tt.outcome))
			assert.Equal(t, tt.want, res.RunSummary.Summary)
			assert.Equal(t, []AtlasEntry{}, res.NewAtlasEntries)
			assert.Equal(t, tt.outcome.RunOutcome(), res.RunSummary.Outcome)
		})
	}
}

func TestExtract_Error(t *testing.T) {
	_, err := newSettler(&fakeGenerator{text: "not json"}).Extract(context.Background(), "World", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse archivist response")
}

func TestLoot(t *testing.T) {
	pool := []LootItem{{ID: "l1", Name: "Lantern", Type: LootItemType}}
	got, ok := FindLoot(pool, "l1")
	assert.True(t, ok)
	assert.Equal(t, "Lantern", got.Name)
	_, ok = FindLoot(pool, "missing")
	assert.False(t, ok)

	loot := InventoryLoot(game.InventoryItem{ID: "k", Name: "Key", Type: game.ItemKey})
	assert.Equal(t, LootItem{ID: "k", Name: "Key", Description: defaultLootDescription, Type: LootItemType, SideEffect: defaultLootSideEffect}, loot)

	assert.True(t, SourceInventory.Valid())
	assert.False(t, LootSource("shop").Valid())
}
