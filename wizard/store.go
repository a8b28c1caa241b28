package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the serializable `{step, data}` pair written after every
// state change so the wizard survives process death.
type Snapshot struct {
	Step Step     `json:"step"`
	Data StepData `json:"data"`
}

// SnapshotStore is the keyed get/set contract the machine persists through.
// The machine assumes nothing about the backing mechanism.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, key string, snap Snapshot) error
	Delete(ctx context.Context, key string) error
}

// SnapshotKey scopes a draft to one user and one tournament.
func SnapshotKey(userID, tournamentID string) string {
	return fmt.Sprintf("wizard:%s:%s", userID, tournamentID)
}

// RedisSnapshotStore persists snapshots in Redis with a TTL so abandoned
// drafts expire on their own.
type RedisSnapshotStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{Client: client, TTL: 24 * time.Hour}
}

func (s *RedisSnapshotStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	raw, err := s.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt snapshot is treated as absent; the wizard restarts
		// at REVIEW instead of failing construction.
		return nil, nil
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, key string, snap Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, key, raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("save wizard snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

// MemorySnapshotStore is an in-process store used in tests and as a
// fallback when Redis is not configured.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]Snapshot)}
}

func (s *MemorySnapshotStore) Load(_ context.Context, key string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, key string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[key] = snap
	return nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, key)
	return nil
}
