package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

// EnvStateInterval is the turn spacing between sensory snapshots.
const EnvStateInterval = 10

// ShouldRefreshEnvState reports whether a new snapshot is due. A nil last
// turn means no snapshot was ever taken.
func ShouldRefreshEnvState(currentTurn int, lastEnvStateTurn *int) bool {
	return lastEnvStateTurn == nil || currentTurn-*lastEnvStateTurn >= EnvStateInterval
}

type envStateInput struct {
	Narrative  string          `json:"narrative"`
	WorldState game.WorldState `json:"world_state"`
}

// EnvStateGenerator extracts a structured sensory snapshot from narrative.
type EnvStateGenerator struct {
	inv    *agent.Invoker
	logger *slog.Logger
}

func NewEnvStateGenerator(inv *agent.Invoker, logger *slog.Logger) *EnvStateGenerator {
	return &EnvStateGenerator{inv: inv, logger: logger}
}

// Generate always yields a snapshot; on failure the core is copied from the
// world environment and senses are empty.
func (g *EnvStateGenerator) Generate(ctx context.Context, narrative string, world game.WorldState) game.EnvState {
	fallbackState := game.EnvStateFromWorld(world)
	fallback, err := json.Marshal(fallbackState)
	if err != nil {
		g.logger.Error("failed to build envstate fallback", "error", err)
		return fallbackState
	}

	out, err := agent.Invoke[envStateOutput](ctx, g.inv, agent.Call{
		Agent:       prompts.AgentEnvState,
		System:      prompts.BuildSystemPrompt(prompts.EnvStatePrompt),
		Input:       envStateInput{Narrative: narrative, WorldState: world},
		Temperature: mechanicalTemperature,
		MaxTokens:   envStateMaxTokens,
		Template:    envTemplate,
		Fallback:    string(fallback),
		Schema:      envStateSchema,
		ExtractOnly: true,
	})
	if err != nil {
		g.logger.Error("envstate generation failed", "turn", world.TurnCount, "error", err)
		return fallbackState
	}
	g.logger.Debug("envstate generated", "turn", world.TurnCount, "senses", len(out.Senses))
	return game.EnvState{Core: *out.Core, Senses: out.Senses}
}
