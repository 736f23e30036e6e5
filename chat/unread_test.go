package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountUnread(t *testing.T) {
	msgs := []Message{
		{ID: "m1", SenderID: "u1", ReceiverID: "u2", Seen: false},
		{ID: "m2", SenderID: "u1", ReceiverID: "u2", Seen: false},
		{ID: "m3", SenderID: "u2", ReceiverID: "u1", Seen: false},
		{ID: "m4", SenderID: "u1", ReceiverID: "u2", Seen: true},
	}
	assert.Equal(t, 2, CountUnread(msgs, "u2"))
	assert.Equal(t, 1, CountUnread(msgs, "u1"))
	assert.Equal(t, 0, CountUnread(nil, "u2"))
}

func TestUnreadBootstrap(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	l := NewLog(backend)

	_, err := l.Append(ctx, "u2", "u1", "one")
	require.NoError(t, err)
	_, err = l.Append(ctx, "u2", "u1", "two")
	require.NoError(t, err)
	_, err = l.Append(ctx, "u3", "u1", "three")
	require.NoError(t, err)

	c := NewUnreadCounter("u1", l, nil)
	defer c.Close()
	require.NoError(t, c.Bootstrap(ctx, []string{"u2", "u3", "u4"}))

	assert.Equal(t, map[string]int{"u2": 2, "u3": 1, "u4": 0}, c.Counts())
}

func TestUnreadLiveTracking(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	l := NewLog(backend)

	var latest map[string]int
	c := NewUnreadCounter("u1", l, func(counts map[string]int) { latest = counts })
	defer c.Close()

	require.NoError(t, c.Sync(ctx, []string{"u2"}))
	assert.Equal(t, 0, c.Counts()["u2"])

	_, err := l.Append(ctx, "u2", "u1", "ping")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Counts()["u2"])
	assert.Equal(t, 1, latest["u2"])

	// marking seen drives the live count back to zero
	msgs := backend.snapshot("u1_u2")
	require.NoError(t, l.MarkSeen(ctx, "u1_u2", "u1", msgs))
	assert.Equal(t, 0, c.Counts()["u2"])
}

func TestUnreadBulkAndLiveConverge(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	l := NewLog(backend)

	_, err := l.Append(ctx, "u2", "u1", "ping")
	require.NoError(t, err)

	bulk := NewUnreadCounter("u1", l, nil)
	defer bulk.Close()
	require.NoError(t, bulk.Bootstrap(ctx, []string{"u2"}))

	live := NewUnreadCounter("u1", l, nil)
	defer live.Close()
	require.NoError(t, live.Sync(ctx, []string{"u2"}))

	assert.Equal(t, bulk.Counts()["u2"], live.Counts()["u2"])
}

func TestUnreadBootstrapDoesNotOverrideLive(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	l := NewLog(backend)

	c := NewUnreadCounter("u1", l, nil)
	defer c.Close()
	require.NoError(t, c.Sync(ctx, []string{"u2"}))

	_, err := l.Append(ctx, "u2", "u1", "ping")
	require.NoError(t, err)

	// the live path already owns this peer; a late bulk pass must not race it
	require.NoError(t, c.Bootstrap(ctx, []string{"u2"}))
	assert.Equal(t, 1, c.Counts()["u2"])
}

func TestUnreadSyncRosterDiff(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	l := NewLog(backend)

	c := NewUnreadCounter("u1", l, nil)
	require.NoError(t, c.Sync(ctx, []string{"u2", "u3"}))
	assert.Equal(t, 1, backend.watcherCount("u1_u2"))
	assert.Equal(t, 1, backend.watcherCount("u1_u3"))

	// u3 leaves the roster, u4 joins
	require.NoError(t, c.Sync(ctx, []string{"u2", "u4"}))
	assert.Equal(t, 1, backend.watcherCount("u1_u2"))
	assert.Equal(t, 0, backend.watcherCount("u1_u3"), "removed peers unsubscribe")
	assert.Equal(t, 1, backend.watcherCount("u1_u4"))
	_, tracked := c.Counts()["u3"]
	assert.False(t, tracked)

	c.Close()
	assert.Equal(t, 0, backend.watcherCount("u1_u2"))
	assert.Equal(t, 0, backend.watcherCount("u1_u4"))
}
