package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shashiranjanraj/krishimitra/pkg/cache"
)

// ErrNotFound is returned by Store.Load for unknown or expired tokens.
var ErrNotFound = errors.New("session: not found")

// Store persists session payloads keyed by token.
type Store interface {
	Load(ctx context.Context, id string) (map[string]interface{}, error)
	Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// ── Memory ───────────────────────────────────────────────────────────────────

type memoryEntry struct {
	raw     []byte
	expires time.Time
}

// MemoryStore keeps sessions in process. Payloads are stored as JSON so values
// come back with the same types a RedisStore would return.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (map[string]interface{}, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok && m.now().After(e.expires) {
		delete(m.entries, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	var data map[string]interface{}
	if err := json.Unmarshal(e.raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, data map[string]interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[id] = memoryEntry{raw: raw, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Len reports the number of live entries.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ── Redis ────────────────────────────────────────────────────────────────────

// RedisStore keeps sessions in redis so every app instance sees them.
type RedisStore struct {
	c *cache.Redis
}

func NewRedisStore(c *cache.Redis) *RedisStore { return &RedisStore{c: c} }

func redisKey(id string) string { return "session:" + id }

func (s *RedisStore) Load(ctx context.Context, id string) (map[string]interface{}, error) {
	var data map[string]interface{}
	err := s.c.Get(ctx, redisKey(id), &data)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, data map[string]interface{}, ttl time.Duration) error {
	return s.c.Set(ctx, redisKey(id), data, ttl)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.c.Del(ctx, redisKey(id))
}
