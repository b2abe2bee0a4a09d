package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/agent"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/prompts"
)

const (
	archivistMaxTokens = 1000
	defaultName        = "Operative"
)

var (
	openFence  = regexp.MustCompile("^```(json)?\n?")
	closeFence = regexp.MustCompile("\n?```$")
)

// Settler closes out finished runs.
type Settler struct {
	inv    *agent.Invoker
	logger *slog.Logger
}

func NewSettler(inv *agent.Invoker, logger *slog.Logger) *Settler {
	return &Settler{inv: inv, logger: logger}
}

// Settle never fails. When lore extraction fails the run gets a templated
// summary and no new entries.
func (s *Settler) Settle(ctx context.Context, req EndRequest) EndResult {
	turns := len(req.History)

	template := req.WorldTemplate
	if template == "" {
		template = req.FinalWorld.WorldID
	}

	var entries []AtlasEntry
	var summary string
	archive, err := s.Extract(ctx, template, req.History, req.ExistingTopics)
	if err != nil {
		s.logger.Error("archivist extraction failed", "world_id", req.FinalWorld.WorldID, "error", err)
	} else {
		entries = archive.NewEntries
		summary = archive.RunSummary
	}
	if entries == nil {
		entries = []AtlasEntry{}
	}
	if summary == "" {
		summary = SimpleSummary(req.Outcome, turns, req.FinalProfile)
	}

	return EndResult{
		NewAtlasEntries: entries,
		RunSummary: RunSummary{
			WorldID:       req.FinalWorld.WorldID,
			Summary:       summary,
			Outcome:       req.Outcome.RunOutcome(),
			TurnsSurvived: turns,
		},
		UnlockedItems:        []LootItem{},
		PermanentStatChanges: PermanentStatChanges(req.CarriedItems),
	}
}

type archivistInput struct {
	WorldTemplate  string   `json:"world_template"`
	PlayHistory    string   `json:"play_history"`
	ExistingTopics []string `json:"existing_topics"`
}

// Extract asks the archivist for new lore and a run summary. Unlike the
// turn agents, the archivist free-forms its JSON, so the reply is parsed
// here rather than by the invoker.
func (s *Settler) Extract(ctx context.Context, worldTemplate string, history []game.HistoryItem, existingTopics []string) (*Archive, error) {
	if existingTopics == nil {
		existingTopics = []string{}
	}
	user, err := json.Marshal(archivistInput{
		WorldTemplate:  worldTemplate,
		PlayHistory:    NarrativeHistory(history),
		ExistingTopics: existingTopics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode archivist input: %w", err)
	}

	text, err := s.inv.Text(ctx, agent.TextCall{
		Agent:     prompts.AgentArchivist,
		System:    prompts.BuildSystemPrompt(prompts.ArchivistPrompt),
		User:      string(user),
		MaxTokens: archivistMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	archive, err := ParseArchive(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archivist response: %w", err)
	}
	s.logger.Info("lore extracted", "entries", len(archive.NewEntries))
	return archive, nil
}

// NarrativeHistory flattens a play history to one line per turn.
func NarrativeHistory(history []game.HistoryItem) string {
	lines := make([]string, 0, len(history))
	for _, h := range history {
		lines = append(lines, fmt.Sprintf("Turn %d: Player %q -> Result: %s (Death: %t)",
			h.Verdict.TurnID, h.Action, h.Verdict.Narrative.Content, h.Verdict.IsDeath))
	}
	return strings.Join(lines, "\n")
}

type rawEntry struct {
	Topic       *string            `json:"topic"`
	Category    game.AtlasCategory `json:"category"`
	Description *string            `json:"description"`
}

type rawArchive struct {
	NewEntries *[]rawEntry `json:"new_entries"`
	RunSummary *string     `json:"run_summary"`
}

// ParseArchive reads archivist output, optionally wrapped in a markdown code
// fence. Unknown categories become secret.
func ParseArchive(text string) (*Archive, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = openFence.ReplaceAllString(cleaned, "")
		cleaned = closeFence.ReplaceAllString(cleaned, "")
	}

	var raw rawArchive
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, err
	}
	if raw.NewEntries == nil {
		return nil, errors.New("new_entries is required")
	}
	if raw.RunSummary == nil {
		return nil, errors.New("run_summary is required")
	}

	out := &Archive{
		NewEntries: make([]AtlasEntry, 0, len(*raw.NewEntries)),
		RunSummary: *raw.RunSummary,
	}
	for i, e := range *raw.NewEntries {
		if e.Topic == nil || e.Description == nil {
			return nil, fmt.Errorf("new_entries[%d]: topic and description are required", i)
		}
		category := e.Category
		if category == "" {
			category = game.AtlasSecret
		}
		out.NewEntries = append(out.NewEntries, AtlasEntry{Topic: *e.Topic, Category: category, Description: *e.Description})
	}
	return out, nil
}

// SimpleSummary is the run summary used when the archivist gives none.
func SimpleSummary(outcome Outcome, turns int, profile game.PlayerProfile) string {
	name := profile.Name
	if name == "" {
		name = defaultName
	}
	switch outcome {
	case OutcomeDeath:
		return fmt.Sprintf("%s fell on turn %d. Final HP: %d/%d.", name, turns, profile.Stats.HP, profile.Stats.MaxHP)
	case OutcomeVictory:
		return fmt.Sprintf("%s completed the mission on turn %d and uncovered the world's secret.", name, turns)
	case OutcomeEscape:
		return fmt.Sprintf("%s chose to withdraw on turn %d and survived.", name, turns)
	default:
		return fmt.Sprintf("%s's mission ended on turn %d.", name, turns)
	}
}
