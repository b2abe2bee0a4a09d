package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/game"
)

// ClockStep is how many in-game minutes pass per turn.
const ClockStep = 5

// Engine runs the per-turn agent pipeline:
// ROLL -> WORLD+QUEST -> JUDGE -> NARRATE -> MERGE.
type Engine struct {
	inv    *agent.Invoker
	roller Roller
	logger *slog.Logger
}

// New creates an engine. A nil roller uses RandomRoller.
func New(inv *agent.Invoker, roller Roller, logger *slog.Logger) *Engine {
	if roller == nil {
		roller = RandomRoller{}
	}
	return &Engine{inv: inv, roller: roller, logger: logger}
}

// RunTurn plays one turn. It either completes every stage or returns an
// error; agent fallbacks absorb malformed output, so errors mean the model
// provider kept failing or ctx ended.
func (e *Engine) RunTurn(ctx context.Context, tc game.TurnContext) (*game.TurnResult, error) {
	roll := e.roller.Roll()
	log := e.logger.With("turn_id", tc.TurnID)
	log.Debug("dice rolled", "dice_roll", roll)

	sys := buildTurnPrompts(tc)
	digest := game.Digest(tc.RecentHistory)

	var (
		world *WorldOutput
		quest game.QuestState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := e.runWorld(gctx, sys.world, tc, digest)
		if err != nil {
			return fmt.Errorf("world agent: %w", err)
		}
		world = w
		return nil
	})
	if ShouldRunQuest(tc.TurnID) {
		g.Go(func() error {
			q, err := e.runQuest(gctx, sys.quest, tc, digest)
			if err != nil {
				return fmt.Errorf("quest agent: %w", err)
			}
			quest = *q
			return nil
		})
	} else if tc.QuestState != nil {
		quest = *tc.QuestState
	} else {
		quest = game.EmptyQuest()
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	judge, err := e.runJudge(ctx, sys.judge, tc, roll, world, quest, digest)
	if err != nil {
		return nil, fmt.Errorf("judge agent: %w", err)
	}

	narrative, err := e.runNarrator(ctx, sys.narrator, tc, roll, judge, digest)
	if err != nil {
		return nil, fmt.Errorf("narrator agent: %w", err)
	}

	result := Merge(tc, roll, world, quest, judge, narrative)
	log.Info("turn resolved",
		"dice_roll", roll,
		"is_death", result.Verdict.IsDeath,
		"is_victory", result.Verdict.IsVictory,
		"hp", result.NextPlayerProfile.Stats.HP,
	)
	return result, nil
}

// Merge folds the agent outputs into the next state. It is a pure function
// of its inputs.
func Merge(tc game.TurnContext, roll int, world *WorldOutput, quest game.QuestState, judge *JudgeOutput, narrative string) *game.TurnResult {
	hpChange := judge.StateUpdates.HPChange.Int()
	powerChange := judge.StateUpdates.PowerChange.Int()

	verdict := game.Verdict{
		TurnID:    tc.TurnID,
		IsDeath:   judge.IsDeath,
		IsVictory: judge.IsVictory,
		DiceRoll:  roll,
		Narrative: game.Narrative{
			Content: narrative,
			Tone:    judge.Tone(),
		},
		StateUpdates: game.StateUpdates{HPChange: hpChange, PowerChange: powerChange},
		Options:      game.EnsureOptions(judge.GameOptions()),
		DeathReport:  judge.DeathReport.Report,
	}

	profile := tc.PlayerProfile.Clone()
	profile.Status = game.NextStatus(profile.Status, verdict.IsDeath, verdict.IsVictory)
	profile.Stats.HP = game.ClampHP(profile.Stats.HP, hpChange, profile.Stats.MaxHP)
	profile.Stats.Power = game.ApplyPower(profile.Stats.Power, powerChange)
	profile.Inventory = game.ApplyInventoryUpdates(profile.Inventory, judge.InventoryUpdates)

	next := tc.WorldState.Clone()
	next.TurnCount = tc.TurnID
	next.Environment.Time = game.AdvanceClock(next.Environment.Time, ClockStep)
	var risks []string
	if world != nil {
		risks = world.EmergingRisks
	}
	next.ActiveThreats = game.UnionThreats(tc.WorldState.ActiveThreats, risks)

	return &game.TurnResult{
		Verdict:           verdict,
		NextWorldState:    next,
		NextPlayerProfile: profile,
		NextQuestState:    quest,
	}
}
