package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DataFactory produces an empty flow data value to decode a stored envelope
// into. Each flow registers one factory per flow name.
type DataFactory func() any

var (
	factoryMu sync.RWMutex
	factories = map[string]DataFactory{}
)

// RegisterFlowData registers the concrete data type for a flow name so the
// Redis backend can round-trip FlowState through JSON. Registering the same
// name twice panics; flows are registered once at init.
func RegisterFlowData(flow string, factory DataFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if _, exists := factories[flow]; exists {
		panic("conversation: flow data already registered: " + flow)
	}
	factories[flow] = factory
}

type envelope struct {
	Flow string          `json:"flow"`
	Data json.RawMessage `json:"data"`
}

// RedisStore keeps conversation state in Redis with an optional TTL.
//
// TTL is a deliberate deviation from the in-process behavior: the source
// system never expires abandoned flows. A zero TTL preserves that; a positive
// TTL bounds how long a half-finished flow survives.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisStoreConfig configures the Redis backend.
type RedisStoreConfig struct {
	Client    *redis.Client
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "conversation:"
	}

	return &RedisStore{client: cfg.Client, keyPrefix: prefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) key(identity int64) string {
	return s.keyPrefix + strconv.FormatInt(identity, 10)
}

func (s *RedisStore) Get(ctx context.Context, identity int64) (FlowState, bool, error) {
	raw, err := s.client.Get(ctx, s.key(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FlowState{}, false, nil
	}
	if err != nil {
		return FlowState{}, false, fmt.Errorf("read conversation state: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return FlowState{}, false, fmt.Errorf("decode conversation envelope: %w", err)
	}

	factoryMu.RLock()
	factory, ok := factories[env.Flow]
	factoryMu.RUnlock()
	if !ok {
		return FlowState{}, false, fmt.Errorf("no data type registered for flow %q", env.Flow)
	}

	data := factory()
	if err := json.Unmarshal(env.Data, data); err != nil {
		return FlowState{}, false, fmt.Errorf("decode %s flow data: %w", env.Flow, err)
	}

	return FlowState{Flow: env.Flow, Data: data}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, identity int64, state FlowState) error {
	if state.Flow == "" {
		return errors.New("flow name is required")
	}

	data, err := json.Marshal(state.Data)
	if err != nil {
		return fmt.Errorf("encode %s flow data: %w", state.Flow, err)
	}

	raw, err := json.Marshal(envelope{Flow: state.Flow, Data: data})
	if err != nil {
		return fmt.Errorf("encode conversation envelope: %w", err)
	}

	if err := s.client.Set(ctx, s.key(identity), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("write conversation state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, identity int64) error {
	if err := s.client.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
