package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

func newSession() *game.Session {
	return &game.Session{
		WorldTemplateID: "mistwood",
		WorldState:      game.WorldState{WorldID: "world_mistwood_001", Flags: map[string]any{}, ActiveThreats: []string{"fog"}},
		PlayerProfile:   game.PlayerProfile{Name: "Operative", Stats: game.Stats{HP: 100, MaxHP: 100, Power: 10}},
		History:         []game.HistoryItem{},
	}
}

func TestMemoryStore_CreateGetSave(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	created, err := m.Create(ctx, newSession())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	loaded, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "mistwood", loaded.WorldTemplateID)

	// Mutating a loaded copy does not touch the stored session.
	loaded.WorldState.ActiveThreats[0] = "wolves"
	again, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fog"}, again.WorldState.ActiveThreats)

	loaded.WorldState.TurnCount = 3
	require.NoError(t, m.Save(ctx, loaded))
	again, err = m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, again.WorldState.TurnCount)
	assert.False(t, again.UpdatedAt.Before(created.UpdatedAt))

	require.NoError(t, m.Delete(ctx, created.ID))
	gone, err := m.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	missing, err := m.Get(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, m.Ping(ctx))
	m.SetPingError(errors.New("down"))
	assert.Error(t, m.Ping(ctx))

	m.SetSaveError(errors.New("disk full"))
	_, err = m.Create(ctx, newSession())
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())

	_, err = m.Create(ctx, nil)
	assert.Error(t, err)
}

func TestMemoryAtlas(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAtlas()

	added, err := a.AddEntries(ctx, "world_mistwood_001", []settlement.AtlasEntry{
		{Topic: "Mayor", Category: game.AtlasNPC, Description: "Runs the town."},
		{Topic: "Well", Category: game.AtlasLocation, Description: "Deep."},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = a.AddEntries(ctx, "world_cycoflora_001", []settlement.AtlasEntry{
		{Topic: "mayor", Category: game.AtlasSecret, Description: "Duplicate."},
		{Topic: "Spores", Category: game.AtlasRule, Description: "They spread."},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	topics, err := a.Topics(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Mayor", "Well", "Spores"}, topics)

	entries, err := a.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "world_cycoflora_001", entries[2].SourceWorldID)

	require.NoError(t, a.AddRunSummary(ctx, settlement.RunSummary{WorldID: "w", Summary: "first", Outcome: settlement.RunDeath, TurnsSurvived: 3}))
	require.NoError(t, a.AddRunSummary(ctx, settlement.RunSummary{WorldID: "w", Summary: "second", Outcome: settlement.RunMastery, TurnsSurvived: 9}))
	runs, err := a.RunSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Summary)
}
