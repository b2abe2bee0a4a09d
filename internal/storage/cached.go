package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/pkg/game"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
)

// DefaultCacheTTL bounds how long a cached session is served without
// rereading the remote store.
const DefaultCacheTTL = 5 * time.Minute

type cachedSession struct {
	session  *game.Session
	storedAt time.Time
}

// CachedStore puts an in-process cache in front of a remote Store. Writes go
// to the remote first; the cache is only refreshed once the remote accepts.
type CachedStore struct {
	remote storage.Store
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[uuid.UUID]cachedSession
}

var _ storage.Store = (*CachedStore)(nil)

func NewCachedStore(remote storage.Store, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		remote: remote,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[uuid.UUID]cachedSession),
	}
}

func (c *CachedStore) Ping(ctx context.Context) error {
	return c.remote.Ping(ctx)
}

func (c *CachedStore) Close() error {
	return c.remote.Close()
}

func (c *CachedStore) Get(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	c.mu.RLock()
	entry, ok := c.cache[id]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.storedAt) < c.ttl {
		return entry.session.DeepCopy()
	}

	s, err := c.remote.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		c.evict(id)
		return nil, nil
	}
	c.remember(s)
	c.logger.Debug("session cache miss", "session_id", id)
	return s, nil
}

func (c *CachedStore) Create(ctx context.Context, s *game.Session) (*game.Session, error) {
	if s == nil {
		return nil, errors.New("session cannot be nil")
	}
	created, err := c.remote.Create(ctx, s)
	if err != nil {
		return nil, err
	}
	c.remember(created)
	return created, nil
}

func (c *CachedStore) Save(ctx context.Context, s *game.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	if err := c.remote.Save(ctx, s); err != nil {
		c.evict(s.ID)
		return err
	}
	c.remember(s)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, id uuid.UUID) error {
	c.evict(id)
	return c.remote.Delete(ctx, id)
}

// Invalidate drops id from the cache so the next Get reads the remote.
func (c *CachedStore) Invalidate(id uuid.UUID) {
	c.evict(id)
}

func (c *CachedStore) remember(s *game.Session) {
	cp, err := s.DeepCopy()
	if err != nil {
		c.logger.Warn("failed to cache session", "session_id", s.ID, "error", err)
		c.evict(s.ID)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[s.ID] = cachedSession{session: cp, storedAt: c.now()}
}

func (c *CachedStore) evict(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id)
}
