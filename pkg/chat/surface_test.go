package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const welcomeText = "Hi there 👋\nHow can I help you today?"

func newSurface(delay time.Duration) *Surface {
	return NewSurface(welcomeText, PlaceholderResponder{Text: "Working on it...", Delay: delay})
}

func TestNewSurface_StartsWithWelcome(t *testing.T) {
	s := newSurface(0)
	t.Cleanup(s.Close)

	assert.Equal(t, []Message{NewIncoming(welcomeText)}, s.Messages())
}

func TestSubmit_AppendsOutgoingThenPlaceholder(t *testing.T) {
	s := newSurface(50 * time.Millisecond)
	t.Cleanup(s.Close)

	require.True(t, s.Submit("  hello  "))
	msgs := s.Messages()
	require.Len(t, msgs, 2, "reply is not appended before the delay")
	assert.Equal(t, NewOutgoing("hello"), msgs[1])

	s.Wait()
	msgs = s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, NewIncoming("Working on it..."), msgs[2])
}

func TestSubmit_BlankInputIsIgnored(t *testing.T) {
	s := newSurface(0)
	t.Cleanup(s.Close)

	assert.False(t, s.Submit(""))
	assert.False(t, s.Submit("   "))
	assert.False(t, s.Submit("\n\t"))
	s.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestSubmit_OverlappingRepliesAllArrive(t *testing.T) {
	s := newSurface(10 * time.Millisecond)
	t.Cleanup(s.Close)

	s.Submit("a")
	s.Submit("b")
	s.Wait()

	incoming := 0
	for _, m := range s.Messages()[1:] {
		if m.Class == Incoming {
			incoming++
		}
	}
	assert.Equal(t, 2, incoming)
	assert.Equal(t, 5, s.Len())
}

func TestReset_PendingReplyLandsOnNewList(t *testing.T) {
	s := newSurface(20 * time.Millisecond)
	t.Cleanup(s.Close)

	s.Submit("hello")
	s.Reset()
	s.Wait()

	assert.Equal(t, []Message{NewIncoming(welcomeText), NewIncoming("Working on it...")}, s.Messages())
}

func TestResetWith_SavesThenResets(t *testing.T) {
	s := newSurface(time.Hour)
	t.Cleanup(s.Close)
	s.Submit("keep")

	var saved []Message
	require.NoError(t, s.ResetWith(func(msgs []Message) error {
		saved = msgs
		return nil
	}))

	assert.Equal(t, []Message{NewIncoming(welcomeText), NewOutgoing("keep")}, saved)
	assert.Equal(t, []Message{NewIncoming(welcomeText)}, s.Messages())
}

func TestResetWith_SaveErrorKeepsList(t *testing.T) {
	s := newSurface(time.Hour)
	t.Cleanup(s.Close)
	s.Submit("keep")

	err := s.ResetWith(func([]Message) error { return errors.New("disk full") })
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, []Message{NewIncoming(welcomeText), NewOutgoing("keep")}, s.Messages())
}

func TestResetWith_SubmitWaitsForReset(t *testing.T) {
	s := newSurface(time.Hour)
	t.Cleanup(s.Close)

	done := make(chan bool, 1)
	require.NoError(t, s.ResetWith(func([]Message) error {
		go func() { done <- s.Submit("late") }()
		select {
		case <-done:
			t.Error("submit ran while the list was being saved")
		case <-time.After(20 * time.Millisecond):
		}
		return nil
	}))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("submit never ran")
	}
	assert.Equal(t, []Message{NewIncoming(welcomeText), NewOutgoing("late")}, s.Messages())
}

func TestReplace(t *testing.T) {
	s := newSurface(0)
	t.Cleanup(s.Close)

	restored := []Message{NewIncoming(welcomeText), NewOutgoing("old"), NewIncoming("Working on it...")}
	s.Replace(restored)
	restored[1] = NewOutgoing("mutated")

	assert.Equal(t, "old", s.Messages()[1].Content)
}

func TestSubscribe_ReceivesEvents(t *testing.T) {
	s := newSurface(0)
	t.Cleanup(s.Close)

	events, release := s.Subscribe()
	defer release()

	s.Append(NewIncoming("Uploaded **a.txt**"))
	s.Reset()

	ev := <-events
	assert.Equal(t, EventAppend, ev.Type)
	require.NotNil(t, ev.Message)
	assert.Equal(t, "Uploaded **a.txt**", ev.Message.Content)

	ev = <-events
	assert.Equal(t, EventReset, ev.Type)
	assert.Equal(t, []Message{NewIncoming(welcomeText)}, ev.Messages)
}

func TestSubscribeWithSnapshot_NoDuplicates(t *testing.T) {
	s := newSurface(time.Hour)
	t.Cleanup(s.Close)
	s.Submit("before")

	snapshot, events, release := s.SubscribeWithSnapshot()
	defer release()
	s.Append(NewIncoming("after"))

	assert.Equal(t, []Message{NewIncoming(welcomeText), NewOutgoing("before")}, snapshot)
	ev := <-events
	require.NotNil(t, ev.Message)
	assert.Equal(t, "after", ev.Message.Content)
	select {
	case extra := <-events:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestSubscribe_ReleaseClosesChannel(t *testing.T) {
	s := newSurface(0)
	t.Cleanup(s.Close)

	events, release := s.Subscribe()
	release()
	release()

	_, ok := <-events
	assert.False(t, ok)
}

func TestClose_StopsEverything(t *testing.T) {
	s := newSurface(time.Hour)
	events, _ := s.Subscribe()

	s.Submit("x")
	s.Close()

	for range events {
	}
	assert.False(t, s.Submit("y"))
	assert.Equal(t, 2, s.Len())

	late, _ := s.Subscribe()
	_, ok := <-late
	assert.False(t, ok)
}

type errResponder struct{}

func (errResponder) Reply(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func TestSubmit_ResponderErrorAppendsNothing(t *testing.T) {
	s := NewSurface(welcomeText, errResponder{})
	t.Cleanup(s.Close)

	s.Submit("hi")
	s.Wait()
	assert.Equal(t, 2, s.Len())
}

func TestPlaceholderResponder_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PlaceholderResponder{Text: "x", Delay: time.Hour}.Reply(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = PlaceholderResponder{Text: "x"}.Reply(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)

	text, err := PlaceholderResponder{Text: "x"}.Reply(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "x", text)
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, Outgoing.Valid())
	assert.True(t, Incoming.Valid())
	assert.False(t, Direction("sideways").Valid())
}
