package session

import (
	"context"
	"fmt"

	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/history"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/metrics"
	"github.com/sipeed/picochat/pkg/sidebar"
	"github.com/sipeed/picochat/pkg/transcript"
)

// Session is everything one logged-in user sees: the chat surface, the
// sidebar, and the history saved so far. It lives as long as its token.
type Session struct {
	ID      string
	Surface *chat.Surface
	Sidebar *sidebar.Sidebar
	History *history.Manager

	store *transcript.Partition
}

// NewChat saves the current surface to history when it holds more than the
// welcome message, then resets it. The surface is left untouched when the
// save fails. It reports whether a conversation was saved.
func (s *Session) NewChat(ctx context.Context) (bool, error) {
	saved := false
	err := s.Surface.ResetWith(func(messages []chat.Message) error {
		var err error
		saved, err = s.History.Save(ctx, messages)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("new chat: %w", err)
	}
	if saved {
		metrics.ConversationsSaved.Inc()
	}

	logger.InfoCF("session", "New chat started", map[string]interface{}{
		"session": s.ID,
		"saved":   saved,
	})
	return saved, nil
}

// ToggleHistory flips the history panel. The entry list is returned only when
// the panel becomes visible.
func (s *Session) ToggleHistory(ctx context.Context) (bool, []history.Entry) {
	visible := s.Sidebar.ToggleHistory()
	if !visible {
		return false, nil
	}
	return true, s.History.Entries(ctx)
}

// LoadHistory restores conversation index onto the surface. The history panel
// is hidden whether or not the index exists.
func (s *Session) LoadHistory(ctx context.Context, index int) bool {
	defer s.Sidebar.HideHistory()

	conv, ok := s.History.Load(ctx, index)
	if !ok {
		logger.DebugCF("session", "History index not found", map[string]interface{}{
			"session": s.ID,
			"index":   index,
		})
		return false
	}
	s.Surface.Replace(conv.Messages)
	return true
}

func (s *Session) close(ctx context.Context) error {
	s.Surface.Close()
	return s.store.Clear(ctx)
}
