package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

const (
	// CompressionInterval is the turn spacing between compressions.
	CompressionInterval = 10
	// outcomeLimit caps each narrative sent to the compressor, in runes.
	outcomeLimit = 200
)

// ShouldCompress reports whether history compression is due.
func ShouldCompress(currentTurn, lastCompressionTurn int) bool {
	return currentTurn >= CompressionInterval && currentTurn-lastCompressionTurn >= CompressionInterval
}

// SplitHistory keeps the newest 60% of history as recent and returns the
// oldest 40% for compression. The split index is floor(n * 0.4).
func SplitHistory(history []game.HistoryItem) (older, recent []game.HistoryItem) {
	split := len(history) * 2 / 5
	return history[:split], history[split:]
}

type compressItem struct {
	TurnID       int      `json:"turn_id"`
	Action       string   `json:"action"`
	Outcome      string   `json:"outcome"`
	HPChange     int      `json:"hp_change"`
	ItemsChanged []string `json:"items_changed"`
}

type compressInput struct {
	HistoryToCompress []compressItem `json:"history_to_compress"`
	ExistingSummary   string         `json:"existing_summary"`
}

// Compressor folds older turns into the running history summary.
type Compressor struct {
	inv    *agent.Invoker
	logger *slog.Logger
}

func NewCompressor(inv *agent.Invoker, logger *slog.Logger) *Compressor {
	return &Compressor{inv: inv, logger: logger}
}

// Compress returns the new summary. It never loses history: an empty input
// or any failure returns existing unchanged.
func (c *Compressor) Compress(ctx context.Context, items []game.HistoryItem, existing string) string {
	if len(items) == 0 {
		return existing
	}

	input := compressInput{
		HistoryToCompress: make([]compressItem, 0, len(items)),
		ExistingSummary:   existing,
	}
	for _, h := range items {
		input.HistoryToCompress = append(input.HistoryToCompress, compressItem{
			TurnID:       h.Verdict.TurnID,
			Action:       h.Action,
			Outcome:      truncateRunes(h.Verdict.Narrative.Content, outcomeLimit),
			HPChange:     h.Verdict.StateUpdates.HPChange,
			ItemsChanged: []string{},
		})
	}

	fallback, err := json.Marshal(compressorOutput{CompressedSummary: &existing})
	if err != nil {
		c.logger.Error("failed to build compressor fallback", "error", err)
		return existing
	}

	out, err := agent.Invoke[compressorOutput](ctx, c.inv, agent.Call{
		Agent:       prompts.AgentCompressor,
		System:      prompts.BuildSystemPrompt(prompts.CompressorPrompt),
		Input:       input,
		Temperature: mechanicalTemperature,
		MaxTokens:   compressorMaxTokens,
		Template:    compressTemplate,
		Fallback:    string(fallback),
		Schema:      compressorSchema,
		ExtractOnly: true,
	})
	if err != nil {
		c.logger.Error("history compression failed", "turns", len(items), "error", err)
		return existing
	}
	c.logger.Info("history compressed", "turns", len(items), "summary_length", len(*out.CompressedSummary))
	return *out.CompressedSummary
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
