package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/fpang/luxstudio/internal/studio"
)

// MemoryStore keeps the encoded document in a process-local cache. The
// document is stored encoded so callers never share mutable state with it.
type MemoryStore struct {
	c *cache.Cache
}

// Compile-time interface check.
var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Put(_ context.Context, session *studio.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	m.c.Set(RecordKey, doc, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Get(_ context.Context) (*studio.Session, error) {
	v, ok := m.c.Get(RecordKey)
	if !ok {
		return nil, nil
	}
	var session studio.Session
	if err := json.Unmarshal(v.([]byte), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
