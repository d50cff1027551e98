package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/metrics"
)

type EventType string

const (
	EventAppend EventType = "append"
	EventReset  EventType = "reset"
)

// Event describes a change to the surface. Append events carry the new
// message; reset events carry the full replacement list.
type Event struct {
	Type     EventType `json:"type"`
	Message  *Message  `json:"message,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

const subscriberBuffer = 64

// Surface is the live, ordered message list of one chat session.
type Surface struct {
	mu        sync.Mutex
	messages  []Message
	welcome   string
	responder Responder

	// ctx lives as long as the surface. Replies in flight when the list is
	// replaced still land on the current list; only Close drops them.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subs    map[int]chan Event
	nextSub int
	closed  bool
}

func NewSurface(welcome string, responder Responder) *Surface {
	s := &Surface{
		welcome:   welcome,
		responder: responder,
		subs:      make(map[int]chan Event),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.messages = []Message{NewIncoming(welcome)}
	return s
}

// Messages returns a copy of the current list.
func (s *Surface) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Surface) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *Surface) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Surface) appendLocked(msg Message) {
	if s.closed {
		return
	}
	s.messages = append(s.messages, msg)
	metrics.MessagesTotal.WithLabelValues(string(msg.Class)).Inc()
	m := msg
	s.publishLocked(Event{Type: EventAppend, Message: &m})
}

// Reset replaces the list with the welcome message.
func (s *Surface) Reset() {
	s.Replace([]Message{NewIncoming(s.welcome)})
}

// ResetWith hands the current list to save and, if save succeeds, resets to
// the welcome message. Both happen under the surface lock so no submit can
// slip in between.
func (s *Surface) ResetWith(save func([]Message) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)
	if err := save(snapshot); err != nil {
		return err
	}
	s.replaceLocked([]Message{NewIncoming(s.welcome)})
	return nil
}

// Replace swaps in messages, e.g. a conversation restored from history.
func (s *Surface) Replace(messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.replaceLocked(messages)
}

func (s *Surface) replaceLocked(messages []Message) {
	s.messages = make([]Message, len(messages))
	copy(s.messages, messages)

	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	s.publishLocked(Event{Type: EventReset, Messages: snapshot})
}

// Submit appends text as an outgoing message and schedules the responder's
// reply. Blank input is ignored and reported as false.
func (s *Surface) Submit(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.appendLocked(NewOutgoing(text))
	s.wg.Add(1)
	s.mu.Unlock()

	go s.reply(text)
	return true
}

func (s *Surface) reply(prompt string) {
	defer s.wg.Done()

	text, err := s.responder.Reply(s.ctx, prompt)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.ErrorCF("chat", "Reply failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	s.Append(NewIncoming(text))
}

// Wait blocks until every scheduled reply has been appended or dropped.
func (s *Surface) Wait() {
	s.wg.Wait()
}

// Subscribe returns a channel of surface events and a function that
// releases it. Slow subscribers miss events rather than block the surface.
func (s *Surface) Subscribe() (<-chan Event, func()) {
	_, ch, release := s.SubscribeWithSnapshot()
	return ch, release
}

// SubscribeWithSnapshot is Subscribe plus the list as it stood when the
// subscription began. Every later change arrives on the channel exactly once.
func (s *Surface) SubscribeWithSnapshot() ([]Message, <-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)

	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return snapshot, ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return snapshot, ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Surface) publishLocked(ev Event) {
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			logger.DebugCF("chat", "Dropping event for slow subscriber", map[string]interface{}{"subscriber": id})
		}
	}
}

// Close cancels pending replies, waits for them, and releases subscribers.
func (s *Surface) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
