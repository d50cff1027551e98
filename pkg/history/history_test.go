package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/transcript"
)

var welcome = chat.NewIncoming("Hi there 👋\nHow can I help you today?")

func newManager(t *testing.T) (*Manager, *transcript.MemoryStore) {
	t.Helper()
	store := transcript.NewMemoryStore()
	return NewManager(transcript.NewPartition(store, "sess-1")), store
}

func collect(ctx context.Context, m *Manager) ([]int, []string) {
	var idx []int
	var names []string
	for i, name := range m.List(ctx) {
		idx = append(idx, i)
		names = append(names, name)
	}
	return idx, names
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		messages []chat.Message
		want     string
	}{
		{"welcome only", []chat.Message{welcome}, DefaultName},
		{"short", []chat.Message{welcome, chat.NewOutgoing("0123456789")}, "0123456789"},
		{"exactly thirty", []chat.Message{welcome, chat.NewOutgoing(strings.Repeat("a", 30))}, strings.Repeat("a", 30)},
		{"long", []chat.Message{welcome, chat.NewOutgoing(strings.Repeat("b", 35))}, strings.Repeat("b", 30) + "..."},
		{"runes", []chat.Message{welcome, chat.NewOutgoing(strings.Repeat("é", 31))}, strings.Repeat("é", 30) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.messages))
		})
	}
}

func TestSave_SkipsEmptySurface(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	saved, err := m.Save(ctx, nil)
	require.NoError(t, err)
	assert.False(t, saved)

	saved, err = m.Save(ctx, []chat.Message{welcome})
	require.NoError(t, err)
	assert.False(t, saved)

	assert.Empty(t, m.Conversations(ctx))
}

func TestSave_AppendsOnePerCall(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	msgs := []chat.Message{welcome, chat.NewOutgoing("hello"), chat.NewIncoming("Working on it...")}

	for i := 1; i <= 3; i++ {
		saved, err := m.Save(ctx, msgs)
		require.NoError(t, err)
		require.True(t, saved)
		assert.Len(t, m.Conversations(ctx), i)
	}

	convs := m.Conversations(ctx)
	assert.NotEqual(t, convs[0].ID, convs[1].ID, "duplicates get distinct ids")
	assert.Equal(t, msgs, convs[2].Messages)
}

func TestSave_SnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	msgs := []chat.Message{welcome, chat.NewOutgoing("first")}
	_, err := m.Save(ctx, msgs)
	require.NoError(t, err)

	msgs[1] = chat.NewOutgoing("changed")
	conv, ok := m.Load(ctx, 0)
	require.True(t, ok)
	assert.Equal(t, "first", conv.Messages[1].Content)
}

func TestList_InsertionOrderAndRestartable(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	for _, text := range []string{"one", "two", "three"} {
		_, err := m.Save(ctx, []chat.Message{welcome, chat.NewOutgoing(text)})
		require.NoError(t, err)
	}

	idx, names := collect(ctx, m)
	assert.Equal(t, []int{0, 1, 2}, idx)
	assert.Equal(t, []string{"one", "two", "three"}, names)

	_, err := m.Save(ctx, []chat.Message{welcome, chat.NewOutgoing("four")})
	require.NoError(t, err)
	_, names = collect(ctx, m)
	assert.Equal(t, []string{"one", "two", "three", "four"}, names, "each range re-reads the store")

	count := 0
	for range m.List(ctx) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestList_MalformedStorageIsEmpty(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	require.NoError(t, store.Set(ctx, "sess-1", StorageKey, []byte("{not json")))

	idx, _ := collect(ctx, m)
	assert.Empty(t, idx)
	_, ok := m.Load(ctx, 0)
	assert.False(t, ok)

	saved, err := m.Save(ctx, []chat.Message{welcome, chat.NewOutgoing("fresh")})
	require.NoError(t, err)
	require.True(t, saved)
	assert.Len(t, m.Entries(ctx), 1)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	msgs := []chat.Message{welcome, chat.NewOutgoing("a"), chat.NewIncoming("b")}
	_, err := m.Save(ctx, msgs)
	require.NoError(t, err)

	conv, ok := m.Load(ctx, 0)
	require.True(t, ok)
	assert.Equal(t, "a", conv.Name)
	assert.Equal(t, msgs, conv.Messages)

	for _, bad := range []int{-1, 1, 99} {
		_, ok := m.Load(ctx, bad)
		assert.False(t, ok, "index %d", bad)
	}
}

func TestLoad_DropsUnknownClasses(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	raw := `[{"id":"c1","name":"a","messages":[` +
		`{"content":"hi","class":"incoming"},` +
		`{"content":"a","class":"outgoing"},` +
		`{"content":"<script>","class":"bogus"},` +
		`{"content":"b","class":""}]}]`
	require.NoError(t, store.Set(ctx, "sess-1", StorageKey, []byte(raw)))

	conv, ok := m.Load(ctx, 0)
	require.True(t, ok)
	assert.Equal(t, []chat.Message{chat.NewIncoming("hi"), chat.NewOutgoing("a")}, conv.Messages)
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	_, err := m.Save(ctx, []chat.Message{welcome, chat.NewOutgoing("x")})
	require.NoError(t, err)

	entries := m.Entries(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "x", entries[0].Name)
	assert.NotEmpty(t, entries[0].ID)
}

func TestStoredLayout(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	_, err := m.Save(ctx, []chat.Message{welcome, chat.NewOutgoing("hi")})
	require.NoError(t, err)

	raw, ok, err := store.Get(ctx, "sess-1", StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"name":"hi"`)
	assert.Contains(t, string(raw), `"class":"outgoing"`)
	assert.Contains(t, string(raw), `"content":"hi"`)
}

type failingStore struct{ transcript.Store }

func (failingStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func TestSave_StoreErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	m := NewManager(transcript.NewPartition(failingStore{}, "s"))

	_, err := m.Save(ctx, []chat.Message{welcome, chat.NewOutgoing("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")

	idx, _ := collect(ctx, m)
	assert.Empty(t, idx, "listing swallows store errors")
}
