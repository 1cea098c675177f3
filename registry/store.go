package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentnet/types"
)

const snapshotKey = "agentnet:registry:snapshot"

// StoreConfig holds configuration for the Redis snapshot store.
type StoreConfig struct {
	// Addr is the Redis address (host:port).
	Addr string `yaml:"addr" json:"addr"`

	// Password is the Redis password, empty for none.
	Password string `yaml:"password" json:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db" json:"db"`

	// TTL is how long a snapshot is kept. Zero means no expiry.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// SnapshotStore persists the registry's profile set to Redis as a single
// JSON document. It gives a restarted process a warm view of the agent
// network; restored agents come back offline until they re-announce.
type SnapshotStore struct {
	client *redis.Client
	config StoreConfig
	logger *zap.Logger
}

// NewSnapshotStore creates a snapshot store and verifies connectivity.
func NewSnapshotStore(ctx context.Context, config StoreConfig, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}
	return &SnapshotStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "snapshot_store")),
	}, nil
}

// Save persists the given profiles, replacing any previous snapshot.
func (s *SnapshotStore) Save(ctx context.Context, profiles []*types.AgentProfile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal registry snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, data, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save registry snapshot: %w", err)
	}
	return nil
}

// Load returns the last persisted profile set, or an empty slice when no
// snapshot exists.
func (s *SnapshotStore) Load(ctx context.Context) ([]*types.AgentProfile, error) {
	data, err := s.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load registry snapshot: %w", err)
	}
	var profiles []*types.AgentProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry snapshot: %w", err)
	}
	return profiles, nil
}

// Close releases the underlying Redis connection.
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
