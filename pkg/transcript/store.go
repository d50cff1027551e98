// Package transcript holds session-scoped key/value storage for chat
// transcripts. Every value belongs to exactly one session and is dropped
// when that session ends.
package transcript

import (
	"context"
	"fmt"
	"strings"
)

// Store is a key/value store partitioned by session ID.
type Store interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	// Clear removes every key of a session.
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// Open returns the Store for a backend name ("memory" or "sqlite").
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown transcript store backend %q", backend)
	}
}

// Partition is the view of a Store owned by a single session.
type Partition struct {
	store     Store
	sessionID string
}

func NewPartition(store Store, sessionID string) *Partition {
	return &Partition{store: store, sessionID: sessionID}
}

func (p *Partition) SessionID() string { return p.sessionID }

func (p *Partition) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.store.Get(ctx, p.sessionID, key)
}

func (p *Partition) Set(ctx context.Context, key string, value []byte) error {
	return p.store.Set(ctx, p.sessionID, key, value)
}

func (p *Partition) Clear(ctx context.Context) error {
	return p.store.Clear(ctx, p.sessionID)
}
