// Package store persists the single "current session" document.
//
// Backends hold exactly one record under RecordKey and replace it wholesale
// on every Put. SQLite is the default local engine; DynamoDB serves users who
// want the session shared between machines; the in-memory backend serves
// tests and throwaway runs. BestEffort wraps any backend so that storage
// failures degrade to absent/no-op while staying observable via Health.
package store

import (
	"context"
	"errors"

	"github.com/fpang/luxstudio/internal/studio"
)

// RecordKey names the single persisted record.
const RecordKey = "current_session"

// ErrUnavailable is returned by backends that could not be opened.
var ErrUnavailable = errors.New("session store unavailable")

// SessionStore persists the current session document.
//
// Get returns (nil, nil) when no record exists.
// Put performs full-record replacement.
type SessionStore interface {
	Put(ctx context.Context, session *studio.Session) error
	Get(ctx context.Context) (*studio.Session, error)
}
