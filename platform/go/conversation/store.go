// Package conversation tracks per-identity multi-step flow state. It is the
// only cross-request shared memory in the system: every inbound event for an
// identity reads, mutates, and writes back that identity's FlowState until the
// flow commits, cancels, or is overwritten.
package conversation

import (
	"context"
	"fmt"
	"sync"
)

// FlowState records which flow an identity is in and the flow's accumulated
// data. Data is one typed struct per flow; flows own their own shapes.
type FlowState struct {
	Flow string
	Data any
}

// Store is the narrow interface over the state container. Delivery for a
// single identity is assumed serialized by the messaging platform; the store
// itself must tolerate concurrent access for distinct identities.
type Store interface {
	Get(ctx context.Context, identity int64) (FlowState, bool, error)
	Set(ctx context.Context, identity int64, state FlowState) error
	Clear(ctx context.Context, identity int64) error
}

// MemoryStore is the default in-process backend. Entries never expire: an
// abandoned flow persists until cleared or overwritten, matching the
// conversational model where re-engaging always lands on the pending step.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]FlowState
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]FlowState)}
}

func (s *MemoryStore) Get(ctx context.Context, identity int64) (FlowState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[identity]
	return state, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, identity int64, state FlowState) error {
	if state.Flow == "" {
		return fmt.Errorf("flow name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[identity] = state
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, identity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, identity)
	return nil
}

var _ Store = (*MemoryStore)(nil)
