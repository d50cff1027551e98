package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsFrame is a chat.Event with rendered messages.
type wsFrame struct {
	Type     chat.EventType `json:"type"`
	Message  *messageView   `json:"message,omitempty"`
	Messages []messageView  `json:"messages,omitempty"`
}

func frameOf(ev chat.Event) wsFrame {
	f := wsFrame{Type: ev.Type}
	if ev.Message != nil {
		v := viewOf(*ev.Message)
		f.Message = &v
	}
	if ev.Type == chat.EventReset {
		f.Messages = viewsOf(ev.Messages)
	}
	return f
}

// handleWS streams surface events to the browser. The first frame is a reset
// carrying the current list.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnCF("webchat", "WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	snapshot, events, release := sess.Surface.SubscribeWithSnapshot()
	defer release()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(f wsFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			logger.DebugCF("webchat", "WebSocket write failed", map[string]interface{}{"error": err.Error()})
			return false
		}
		return true
	}

	if !send(frameOf(chat.Event{Type: chat.EventReset, Messages: snapshot})) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(writeWait))
				return
			}
			if !send(frameOf(ev)) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
