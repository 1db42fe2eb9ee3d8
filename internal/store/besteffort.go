package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fpang/luxstudio/internal/studio"
)

// Health is the observable state of a BestEffort store.
type Health int

const (
	// HealthOK means the last operation succeeded.
	HealthOK Health = iota
	// HealthUnavailable means no backend could be opened; every call is a no-op.
	HealthUnavailable
	// HealthDegraded means the backend is present but the last operation failed.
	HealthDegraded
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthUnavailable:
		return "unavailable"
	case HealthDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// BestEffort wraps a SessionStore so that failures never cross its
// boundary: Put degrades to a no-op and Get to "absent". Every absorbed
// failure is logged and recorded for Health.
type BestEffort struct {
	inner SessionStore

	mu      sync.Mutex
	health  Health
	lastErr error
}

// NewBestEffort wraps inner. A nil inner yields an unavailable store.
func NewBestEffort(inner SessionStore) *BestEffort {
	b := &BestEffort{inner: inner}
	if inner == nil {
		b.health = HealthUnavailable
		b.lastErr = ErrUnavailable
	}
	return b
}

// Unavailable returns a store whose backend failed to open with err.
func Unavailable(err error) *BestEffort {
	if err == nil {
		err = ErrUnavailable
	}
	return &BestEffort{health: HealthUnavailable, lastErr: err}
}

// Put writes session, absorbing any failure.
func (b *BestEffort) Put(ctx context.Context, session *studio.Session) {
	if b.inner == nil {
		return
	}
	b.observe(b.inner.Put(ctx, session), "put")
}

// Get returns the stored session, or nil when absent or unreadable.
func (b *BestEffort) Get(ctx context.Context) *studio.Session {
	if b.inner == nil {
		return nil
	}
	s, err := b.inner.Get(ctx)
	b.observe(err, "get")
	if err != nil {
		return nil
	}
	return s
}

// Health reports the current state and the most recent failure, if any.
func (b *BestEffort) Health() (Health, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health, b.lastErr
}

func (b *BestEffort) observe(err error, op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("Session store degraded")
		b.health = HealthDegraded
		b.lastErr = err
		return
	}
	b.health = HealthOK
	b.lastErr = nil
}
