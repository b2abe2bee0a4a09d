package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/settlement"
)

// MemoryStore is an in-process Store. Sessions are deep-copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[uuid.UUID]*game.Session
	pingError error
	saveError error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*game.Session)}
}

// SetPingError configures Ping to fail with err; nil restores success.
func (m *MemoryStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures Create and Save to fail with err.
func (m *MemoryStore) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.DeepCopy()
}

func (m *MemoryStore) Create(ctx context.Context, s *game.Session) (*game.Session, error) {
	if s == nil {
		return nil, errors.New("session cannot be nil")
	}
	now := time.Now().UTC()
	s.ID = uuid.New()
	s.CreatedAt = now
	s.UpdatedAt = now
	if err := m.put(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *game.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	s.UpdatedAt = time.Now().UTC()
	return m.put(s)
}

func (m *MemoryStore) put(s *game.Session) error {
	cp, err := s.DeepCopy()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.sessions[s.ID] = cp
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MemoryAtlas is an in-process AtlasStore.
type MemoryAtlas struct {
	mu      sync.RWMutex
	entries []AtlasRecord
	runs    []RunRecord
}

var _ AtlasStore = (*MemoryAtlas)(nil)

func NewMemoryAtlas() *MemoryAtlas {
	return &MemoryAtlas{}
}

func (a *MemoryAtlas) AddEntries(ctx context.Context, worldID string, entries []settlement.AtlasEntry) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, e := range entries {
		known := slices.ContainsFunc(a.entries, func(r AtlasRecord) bool {
			return strings.EqualFold(r.Topic, e.Topic)
		})
		if known {
			continue
		}
		a.entries = append(a.entries, AtlasRecord{
			ID:            uuid.NewString(),
			Topic:         e.Topic,
			Category:      e.Category,
			Description:   e.Description,
			SourceWorldID: worldID,
			UnlockedAt:    time.Now().UTC(),
		})
		added++
	}
	return added, nil
}

func (a *MemoryAtlas) AddRunSummary(ctx context.Context, s settlement.RunSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, RunRecord{
		ID:            uuid.NewString(),
		WorldID:       s.WorldID,
		Summary:       s.Summary,
		Outcome:       s.Outcome,
		TurnsSurvived: s.TurnsSurvived,
		RecordedAt:    time.Now().UTC(),
	})
	return nil
}

func (a *MemoryAtlas) Entries(ctx context.Context) ([]AtlasRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]AtlasRecord{}, a.entries...), nil
}

// RunSummaries returns the newest run first.
func (a *MemoryAtlas) RunSummaries(ctx context.Context) ([]RunRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := append([]RunRecord{}, a.runs...)
	slices.Reverse(out)
	return out, nil
}

func (a *MemoryAtlas) Topics(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	topics := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		topics = append(topics, e.Topic)
	}
	return topics, nil
}

func (a *MemoryAtlas) Close() error {
	return nil
}
