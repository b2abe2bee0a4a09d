package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/adventure-engine/internal/catalog"
	"github.com/jwebster45206/adventure-engine/pkg/engine"
	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/queue"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

const (
	// RecentHistoryLimit is how many history items a turn sees verbatim.
	RecentHistoryLimit = 20

	openingAction    = "Start the game and look around."
	prefetchParallel = 4

	fallbackTemplate = "Generic Dark World"
	unknownTemplate  = "Unknown World"
)

// Executor runs maintenance tasks off the request path.
type Executor interface {
	Submit(ctx context.Context, task *queue.Task) error
}

// GameService implements the game use cases on top of the engine and the
// stores. Handlers and the console talk to it; it never writes HTTP.
type GameService struct {
	store      storage.Store
	atlas      storage.AtlasStore
	catalog    *catalog.Catalog
	engine     *engine.Engine
	compressor *engine.Compressor
	envgen     *engine.EnvStateGenerator
	settler    *settlement.Settler
	executor   Executor
	logger     *slog.Logger
}

type ServiceConfig struct {
	Store      storage.Store
	Atlas      storage.AtlasStore
	Catalog    *catalog.Catalog
	Engine     *engine.Engine
	Compressor *engine.Compressor
	EnvState   *engine.EnvStateGenerator
	Settler    *settlement.Settler
	Executor   Executor
	Logger     *slog.Logger
}

func NewGameService(cfg ServiceConfig) *GameService {
	return &GameService{
		store:      cfg.Store,
		atlas:      cfg.Atlas,
		catalog:    cfg.Catalog,
		engine:     cfg.Engine,
		compressor: cfg.Compressor,
		envgen:     cfg.EnvState,
		settler:    cfg.Settler,
		executor:   cfg.Executor,
		logger:     cfg.Logger,
	}
}

func (s *GameService) load(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Start opens a new run and plays its opening turn.
func (s *GameService) Start(ctx context.Context, req StartRequest) (*StartResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.worldKey(catalog.DefaultWorld)
	var worldID, template string
	if strings.HasPrefix(key, catalog.GeneratedPrefix) && req.GeneratedWorldTemplate != "" {
		worldID = key
		template = req.GeneratedWorldTemplate
	} else {
		w, err := s.catalog.Lookup(key)
		if err != nil {
			return nil, err
		}
		worldID = w.WorldID
		template = w.Template
	}

	carried := make([]settlement.CarriedItem, 0, len(req.ExtraItems))
	inventory := make([]game.InventoryItem, 0, len(req.ExtraItems))
	for _, item := range req.ExtraItems {
		carried = append(carried, settlement.CarriedItem{
			ID:           item.ID,
			Name:         item.Name,
			Description:  item.Description,
			CarryPenalty: item.CarryPenalty,
		})
		inventory = append(inventory, game.InventoryItem{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Type:        game.ItemMisc,
		})
	}

	base := game.PlayerProfile{
		ID:             uuid.NewString(),
		Name:           "Operative",
		CurrentWorldID: worldID,
		Status:         game.StatusAlive,
		Stats:          game.Stats{HP: 100, MaxHP: 100, Power: 10},
		Inventory:      inventory,
		Traits:         []game.Trait{},
	}
	start := settlement.Initialize(worldID, carried, base)

	world := game.WorldState{
		WorldID:   worldID,
		TurnCount: 0,
		Environment: game.Environment{
			Time:     "18:00",
			Weather:  "Unknown",
			Location: "Unknown Area",
		},
		Flags:         map[string]any{},
		ActiveThreats: []string{},
	}
	rendered := catalog.RenderTemplate(template, start.ModifiedProfile.Stats.Power)
	hardRules := s.catalog.HardRules()

	res, err := s.engine.RunTurn(ctx, game.TurnContext{
		TurnID:        1,
		WorldTemplate: rendered,
		HardRules:     hardRules,
		PlayerAction:  game.PlayerAction{Type: game.ActionFreeText, Content: openingAction},
		WorldState:    world,
		PlayerProfile: start.ModifiedProfile,
		KnownLore:     req.KnownLore,
	})
	if err != nil {
		return nil, fmt.Errorf("opening turn failed: %w", err)
	}

	env := s.envgen.Generate(ctx, res.Verdict.Narrative.Content, res.NextWorldState)
	first := 1
	quest := res.NextQuestState

	sess, err := s.store.Create(ctx, &game.Session{
		WorldTemplateID:  key,
		WorldTemplate:    rendered,
		HardRules:        hardRules,
		WorldState:       res.NextWorldState,
		PlayerProfile:    res.NextPlayerProfile,
		QuestState:       &quest,
		History:          []game.HistoryItem{},
		LastEnvStateTurn: &first,
		EnvState:         &env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session started", "session_id", sess.ID.String(), "world_id", worldID, "penalties", len(start.AppliedPenalties))

	return &StartResponse{
		SessionID:      sess.ID,
		InitialVerdict: res.Verdict,
		PlayerProfile:  sess.PlayerProfile,
		WorldState:     sess.WorldState,
		QuestState:     game.SanitizeQuest(sess.QuestState),
		EnvState:       sess.EnvState,
		Warnings:       start.Warnings,
	}, nil
}

// Turn plays one action, saves the session and hands any due maintenance
// to the executor. The response does not wait for maintenance.
func (s *GameService) Turn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.RunTurn(ctx, game.TurnContext{
		TurnID:            sess.WorldState.TurnCount + 1,
		WorldTemplate:     sess.WorldTemplate,
		HardRules:         sess.HardRules,
		PlayerAction:      req.PlayerAction,
		WorldState:        sess.WorldState,
		PlayerProfile:     sess.PlayerProfile,
		QuestState:        sess.QuestState,
		KnownLore:         req.KnownLore,
		RecentHistory:     sess.RecentHistory(RecentHistoryLimit),
		CompressedHistory: sess.CompressedHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("turn failed: %w", err)
	}

	quest := res.NextQuestState
	sess.WorldState = res.NextWorldState
	sess.PlayerProfile = res.NextPlayerProfile
	sess.QuestState = &quest
	sess.History = append(sess.History, game.HistoryItem{Action: req.PlayerAction.Content, Verdict: res.Verdict})
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	current := res.NextWorldState.TurnCount
	if engine.ShouldCompress(current, sess.LastCompressionTurn) {
		s.submit(ctx, queue.NewTask(queue.TaskCompress, sess.ID, current))
	}
	pending := engine.ShouldRefreshEnvState(current, sess.LastEnvStateTurn)
	if pending {
		task := queue.NewTask(queue.TaskEnvState, sess.ID, current)
		task.Narrative = res.Verdict.Narrative.Content
		world := res.NextWorldState
		task.WorldState = &world
		s.submit(ctx, task)
	}

	out := &TurnResponse{
		Verdict:           res.Verdict,
		NextWorldState:    res.NextWorldState,
		NextPlayerProfile: res.NextPlayerProfile,
		NextQuestState:    game.SanitizeQuest(&quest),
		EnvStatePending:   pending,
	}
	if !pending {
		out.EnvState = sess.EnvState
	}
	return out, nil
}

func (s *GameService) submit(ctx context.Context, task *queue.Task) {
	if err := s.executor.Submit(ctx, task); err != nil {
		s.logger.Error("failed to submit maintenance task",
			"session_id", task.SessionID.String(), "type", task.Type, "error", err)
	}
}

// Prefetch plays each option speculatively from the saved state. Nothing
// is saved and history is not consulted.
func (s *GameService) Prefetch(ctx context.Context, req PrefetchRequest) (map[string]PrefetchResult, error) {
	if req.SessionID == uuid.Nil || len(req.Options) == 0 {
		return nil, invalid("Missing session_id or options array")
	}
	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[string]PrefetchResult, len(req.Options))
	var g errgroup.Group
	g.SetLimit(prefetchParallel)
	for _, option := range req.Options {
		g.Go(func() error {
			res, err := s.engine.RunTurn(ctx, game.TurnContext{
				TurnID:            sess.WorldState.TurnCount + 1,
				WorldTemplate:     sess.WorldTemplate,
				HardRules:         sess.HardRules,
				PlayerAction:      game.PlayerAction{Type: game.ActionChoice, Content: option},
				WorldState:        sess.WorldState.Clone(),
				PlayerProfile:     sess.PlayerProfile.Clone(),
				QuestState:        sess.QuestState,
				CompressedHistory: sess.CompressedHistory,
			})

			var r PrefetchResult
			if err != nil {
				s.logger.Warn("prefetch failed", "session_id", sess.ID.String(), "option", option, "error", err)
				r.Error = "Failed to generate"
			} else {
				r = PrefetchResult{
					Verdict:           &res.Verdict,
					NextWorldState:    &res.NextWorldState,
					NextPlayerProfile: &res.NextPlayerProfile,
					NextQuestState:    game.SanitizeQuest(&res.NextQuestState),
				}
			}
			mu.Lock()
			results[option] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Sync stores state the client computed from a prefetched turn.
func (s *GameService) Sync(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var env *game.EnvState
	current := req.NextWorldState.TurnCount
	if req.Verdict != nil && engine.ShouldRefreshEnvState(current, sess.LastEnvStateTurn) {
		generated := s.envgen.Generate(ctx, req.Verdict.Narrative.Content, *req.NextWorldState)
		env = &generated
		sess.EnvState = env
		sess.LastEnvStateTurn = &current
	}

	sess.WorldState = *req.NextWorldState
	sess.PlayerProfile = *req.NextPlayerProfile
	if req.NextQuestState != nil {
		sess.QuestState = req.NextQuestState
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &SyncResponse{Success: true, EnvState: env}, nil
}

// Compress folds the older part of a client-supplied history into the
// session summary.
func (s *GameService) Compress(ctx context.Context, req CompressRequest) (*CompressResponse, error) {
	if req.SessionID == uuid.Nil {
		return nil, invalid("session_id is required")
	}
	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	older, recent := engine.SplitHistory(req.History)
	if len(older) == 0 {
		return &CompressResponse{
			CompressedHistory: sess.CompressedHistory,
			RemainingTurns:    len(recent),
			Message:           "No history to compress",
		}, nil
	}

	summary := s.compressor.Compress(ctx, older, sess.CompressedHistory)
	sess.CompressedHistory = summary
	sess.LastCompressionTurn = sess.WorldState.TurnCount
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return &CompressResponse{
		CompressedHistory: summary,
		CompressedTurns:   len(older),
		RemainingTurns:    len(recent),
	}, nil
}

// Settle closes a run. The agent flow settles the supplied history; the
// loot flow resolves the chosen reward and settles the stored history as a
// victory.
func (s *GameService) Settle(ctx context.Context, req SettleRequest) (*SettleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.load(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if req.agentFlow() {
		res := s.settler.Settle(ctx, settlement.EndRequest{
			Outcome:        req.Outcome,
			History:        req.GameHistory,
			FinalProfile:   sess.PlayerProfile,
			FinalWorld:     sess.WorldState,
			CarriedItems:   req.CarriedItems,
			WorldTemplate:  req.WorldTemplate,
			ExistingTopics: s.knownTopics(ctx, req.ExistingTopics),
		})
		s.record(ctx, res)
		return &SettleResponse{Success: true, SettlementResult: &res}, nil
	}

	var loot *settlement.LootItem
	switch req.LootSource {
	case settlement.SourceLootPool:
		if l, ok := settlement.FindLoot(s.catalog.LootPool(sess.WorldState.WorldID), req.ChosenLootID); ok {
			loot = &l
		}
	case settlement.SourceInventory:
		for _, item := range sess.PlayerProfile.Inventory {
			if item.ID == req.ChosenLootID {
				l := settlement.InventoryLoot(item)
				loot = &l
				break
			}
		}
	}
	if loot == nil {
		return nil, ErrLootNotFound
	}

	res := s.settler.Settle(ctx, settlement.EndRequest{
		Outcome:        settlement.OutcomeVictory,
		History:        sess.History,
		FinalProfile:   sess.PlayerProfile,
		FinalWorld:     sess.WorldState,
		WorldTemplate:  sess.WorldTemplate,
		ExistingTopics: s.knownTopics(ctx, nil),
	})
	s.record(ctx, res)
	return &SettleResponse{
		Success:         true,
		ChosenLoot:      loot,
		NewAtlasEntries: res.NewAtlasEntries,
		RunSummary:      &res.RunSummary,
	}, nil
}

// knownTopics merges client-supplied topics with those already in the atlas
// store so the archivist skips both.
func (s *GameService) knownTopics(ctx context.Context, supplied []string) []string {
	topics := append([]string{}, supplied...)
	if s.atlas == nil {
		return topics
	}
	stored, err := s.atlas.Topics(ctx)
	if err != nil {
		s.logger.Warn("failed to read atlas topics", "error", err)
		return topics
	}
	for _, t := range stored {
		if !slices.ContainsFunc(topics, func(e string) bool { return strings.EqualFold(e, t) }) {
			topics = append(topics, t)
		}
	}
	return topics
}

func (s *GameService) record(ctx context.Context, res settlement.EndResult) {
	if s.atlas == nil {
		return
	}
	added, err := s.atlas.AddEntries(ctx, res.RunSummary.WorldID, res.NewAtlasEntries)
	if err != nil {
		s.logger.Error("failed to record atlas entries", "world_id", res.RunSummary.WorldID, "error", err)
	}
	if err := s.atlas.AddRunSummary(ctx, res.RunSummary); err != nil {
		s.logger.Error("failed to record run summary", "world_id", res.RunSummary.WorldID, "error", err)
	}
	s.logger.Info("run settled", "world_id", res.RunSummary.WorldID, "outcome", res.RunSummary.Outcome, "new_entries", added)
}

// Archive extracts lore from a history without touching any session.
func (s *GameService) Archive(ctx context.Context, req ArchiveRequest) (*settlement.Archive, error) {
	template := req.WorldTemplate
	if template == "" && req.WorldID != "" {
		if w, err := s.catalog.Lookup(req.WorldID); err == nil {
			template = w.Template
		} else {
			s.logger.Warn("world template not found for archive", "world_id", req.WorldID)
			template = fallbackTemplate
		}
	}
	if template == "" {
		template = unknownTemplate
	}

	archive, err := s.settler.Extract(ctx, template, req.History, req.ExistingTopics)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveFailed, err)
	}
	return archive, nil
}

// Atlas lists the lore and runs recorded so far.
func (s *GameService) Atlas(ctx context.Context) (*AtlasView, error) {
	if s.atlas == nil {
		return &AtlasView{Entries: []storage.AtlasRecord{}, Runs: []storage.RunRecord{}}, nil
	}
	entries, err := s.atlas.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read atlas: %w", err)
	}
	runs, err := s.atlas.RunSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read run summaries: %w", err)
	}
	return &AtlasView{Entries: entries, Runs: runs}, nil
}

// Session returns the player's view of a stored session.
func (s *GameService) Session(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewSession(sess), nil
}

// Ping reports whether the session store is reachable.
func (s *GameService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return errors.Join(errors.New("session store unavailable"), err)
	}
	return nil
}
