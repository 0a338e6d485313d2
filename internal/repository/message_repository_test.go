package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/repository"
	"github.com/oggyb/vivah/internal/testutil"
)

// seedThread writes messages with explicit, increasing timestamps.
func seedThread(t *testing.T, store repository.MessageStore, msgs ...db.Message) []db.Message {
	t.Helper()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	out := make([]db.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Create(context.Background(), &m))
		out = append(out, m)
	}
	return out
}

func TestMessageRepository_ThreadAndRead(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMessageRepository(testutil.NewDB(t))

	msgs := seedThread(t, store,
		db.Message{SenderID: "a", ReceiverID: "b", Content: "hello"},
		db.Message{SenderID: "b", ReceiverID: "a", Content: "hi"},
		db.Message{SenderID: "a", ReceiverID: "b", Content: "how are you"},
		db.Message{SenderID: "a", ReceiverID: "c", Content: "elsewhere"},
	)

	thread, err := store.ListThread(ctx, "b", "a")
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "hello", thread[0].Content)
	assert.Equal(t, "how are you", thread[2].Content)

	unread, err := store.CountUnread(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	ids := make([]string, 0, len(thread))
	for _, m := range thread {
		ids = append(ids, m.ID)
	}
	now := time.Now().UTC()
	n, err := store.MarkThreadRead(ctx, "b", ids, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.MarkThreadRead(ctx, "b", ids, now)
	require.NoError(t, err)
	assert.Zero(t, n, "second pass is a no-op")

	n, err = store.MarkThreadRead(ctx, "b", nil, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	// b's own message to a is in ids but stays unread
	got, err := store.GetByID(ctx, msgs[1].ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)

	ok, err := store.MarkRead(ctx, msgs[1].ID, now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.MarkRead(ctx, msgs[1].ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = store.GetByID(ctx, msgs[1].ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
}

func TestMessageRepository_ListConversations(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMessageRepository(testutil.NewDB(t))

	seedThread(t, store,
		db.Message{SenderID: "b", ReceiverID: "a", Content: "b1"},
		db.Message{SenderID: "c", ReceiverID: "a", Content: "c1"},
		db.Message{SenderID: "b", ReceiverID: "a", Content: "b2"},
		db.Message{SenderID: "a", ReceiverID: "c", Content: "c2"},
	)

	convs, err := store.ListConversations(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 2)

	assert.Equal(t, "c", convs[0].CounterpartID)
	assert.Equal(t, "c2", convs[0].LastMessage)
	assert.Equal(t, "a", convs[0].LastSenderID)
	assert.Equal(t, int64(1), convs[0].UnreadCount)

	assert.Equal(t, "b", convs[1].CounterpartID)
	assert.Equal(t, "b2", convs[1].LastMessage)
	assert.Equal(t, int64(2), convs[1].UnreadCount)

	deleted, err := store.DeleteForUser(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
