package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no session exists for an id.
var ErrSessionNotFound = errors.New("checkout session not found")

// SessionStore persists checkout sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in-process. Used by tests and single
// node runs without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	// hand out a copy so callers never mutate the stored session
	// without going through Put
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MemoryStore) Put(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	var stored Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[sess.ID] = &stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// RedisStore keeps sessions in Redis as JSON under "checkout:<id>"
// and publishes an update notification on the session's channel so
// connected clients re-render from the container.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

const sessionKeyPrefix = "checkout:"

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Channel returns the pub/sub channel carrying update notifications
// for a session.
func (r *RedisStore) Channel(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *RedisStore) Put(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+sess.ID, data, r.ttl).Err(); err != nil {
		return err
	}
	r.rdb.Publish(ctx, r.Channel(sess.ID), "updated")
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return err
	}
	r.rdb.Publish(ctx, r.Channel(id), "cleared")
	return nil
}
