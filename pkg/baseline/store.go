package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store persists fingerprints between sessions.
type Store interface {
	Save(ctx context.Context, fp Fingerprint) error
	Load(ctx context.Context, userID string) (Fingerprint, bool, error)
}

// MemoryStore keeps fingerprints in process memory; state is lost on
// restart and baselines retrain.
type MemoryStore struct {
	mu  sync.RWMutex
	fps map[string]Fingerprint
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fps: make(map[string]Fingerprint)}
}

func (m *MemoryStore) Save(_ context.Context, fp Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fps[fp.UserID] = fp
	return nil
}

func (m *MemoryStore) Load(_ context.Context, userID string) (Fingerprint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fp, ok := m.fps[userID]
	return fp, ok, nil
}

// RedisStore persists sealed fingerprints in Redis so baselines survive
// restarts and are shared across instances.
type RedisStore struct {
	rdb    *redis.Client
	sealer *Sealer
	ttl    time.Duration
}

// NewRedisStore wraps rdb. Entries expire after ttl; zero means no expiry.
func NewRedisStore(rdb *redis.Client, sealer *Sealer, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, sealer: sealer, ttl: ttl}
}

func (r *RedisStore) key(userID string) string {
	return "baseline:fp:" + userID
}

func (r *RedisStore) Save(ctx context.Context, fp Fingerprint) error {
	plain, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	sealed, err := r.sealer.Seal(plain)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(fp.UserID), sealed, r.ttl).Err(); err != nil {
		return fmt.Errorf("store fingerprint: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, userID string) (Fingerprint, bool, error) {
	sealed, err := r.rdb.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return Fingerprint{}, false, nil
	}
	if err != nil {
		return Fingerprint{}, false, fmt.Errorf("load fingerprint: %w", err)
	}
	plain, err := r.sealer.Open(sealed)
	if err != nil {
		// An unreadable entry (rotated secret, corruption) retrains rather
		// than blocking the user.
		return Fingerprint{}, false, nil
	}
	var fp Fingerprint
	if err := json.Unmarshal(plain, &fp); err != nil {
		return Fingerprint{}, false, nil
	}
	return fp, true, nil
}
