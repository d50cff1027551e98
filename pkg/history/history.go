// Package history snapshots chat surfaces into a session's transcript store
// and restores them on demand.
//
// Conversations are addressed by their position in the stored array. Nothing
// reorders or removes entries during a session, so an index handed out by
// List stays valid until the session ends.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/transcript"
)

const (
	// StorageKey is the single transcript key holding every saved conversation.
	StorageKey = "chatHistory"

	DefaultName   = "New Chat"
	maxNameLength = 30
)

// Conversation is one saved chat transcript.
type Conversation struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Messages []chat.Message `json:"messages"`
}

// Entry is a row of the history sidebar.
type Entry struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
}

type Manager struct {
	mu    sync.Mutex // serializes read-modify-write in Save
	store *transcript.Partition
}

func NewManager(store *transcript.Partition) *Manager {
	return &Manager{store: store}
}

// DisplayName derives a sidebar label from the first user message, which
// follows the welcome message at index 0.
func DisplayName(messages []chat.Message) string {
	if len(messages) < 2 {
		return DefaultName
	}
	first := []rune(messages[1].Content)
	if len(first) > maxNameLength {
		return string(first[:maxNameLength]) + "..."
	}
	return string(first)
}

// Save appends a snapshot of messages to the store. Surfaces holding at most
// the welcome message are not saved and Save reports false.
func (m *Manager) Save(ctx context.Context, messages []chat.Message) (bool, error) {
	if len(messages) <= 1 {
		return false, nil
	}

	snapshot := make([]chat.Message, len(messages))
	copy(snapshot, messages)
	conv := Conversation{
		ID:       uuid.NewString(),
		Name:     DisplayName(snapshot),
		Messages: snapshot,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	all, err := m.decode(ctx)
	if err != nil {
		return false, err
	}
	all = append(all, conv)

	data, err := json.Marshal(all)
	if err != nil {
		return false, fmt.Errorf("encoding chat history: %w", err)
	}
	if err := m.store.Set(ctx, StorageKey, data); err != nil {
		return false, fmt.Errorf("saving chat history: %w", err)
	}

	logger.DebugCF("history", "Conversation saved", map[string]interface{}{
		"session":  m.store.SessionID(),
		"index":    len(all) - 1,
		"name":     conv.Name,
		"messages": len(snapshot),
	})
	return true, nil
}

// List yields (index, name) pairs in save order. The store is re-read every
// time the sequence is ranged over.
func (m *Manager) List(ctx context.Context) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, conv := range m.read(ctx) {
			if !yield(i, conv.Name) {
				return
			}
		}
	}
}

// Entries collects List together with the stable conversation IDs.
func (m *Manager) Entries(ctx context.Context) []Entry {
	all := m.read(ctx)
	entries := make([]Entry, 0, len(all))
	for i, conv := range all {
		entries = append(entries, Entry{Index: i, ID: conv.ID, Name: conv.Name})
	}
	return entries
}

// Conversations returns every saved conversation.
func (m *Manager) Conversations(ctx context.Context) []Conversation {
	return m.read(ctx)
}

// Load returns the conversation at index. Stale or out-of-range indices
// report false. Stored messages with an unknown class are dropped.
func (m *Manager) Load(ctx context.Context, index int) (Conversation, bool) {
	all := m.read(ctx)
	if index < 0 || index >= len(all) {
		return Conversation{}, false
	}
	conv := all[index]
	conv.Messages = m.validMessages(index, conv.Messages)
	return conv, true
}

func (m *Manager) validMessages(index int, messages []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Class.Valid() {
			out = append(out, msg)
		}
	}
	if dropped := len(messages) - len(out); dropped > 0 {
		logger.WarnCF("history", "Dropping messages with unknown class", map[string]interface{}{
			"session": m.store.SessionID(),
			"index":   index,
			"dropped": dropped,
		})
	}
	return out
}

// read treats a missing or unreadable value as an empty history.
func (m *Manager) read(ctx context.Context) []Conversation {
	all, err := m.decode(ctx)
	if err != nil {
		logger.WarnCF("history", "Failed to read chat history", map[string]interface{}{
			"session": m.store.SessionID(),
			"error":   err.Error(),
		})
		return nil
	}
	return all
}

// decode fails only when the store itself fails; a malformed value decodes
// as an empty history.
func (m *Manager) decode(ctx context.Context) ([]Conversation, error) {
	data, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("reading chat history: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil, nil
	}

	var all []Conversation
	if err := json.Unmarshal(data, &all); err != nil {
		logger.WarnCF("history", "Ignoring malformed chat history", map[string]interface{}{
			"session": m.store.SessionID(),
			"error":   err.Error(),
		})
		return nil, nil
	}
	return all, nil
}
