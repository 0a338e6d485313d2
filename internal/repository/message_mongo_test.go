package repository_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/config"
	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/repository"
)

// newMongoStore connects to MONGODB_TEST_URI; the test is skipped without it.
func newMongoStore(t *testing.T) *repository.MongoMessageRepository {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	cfg := config.New()
	cfg.Mongo.URI = uri
	cfg.Mongo.Database = "vivah_test_" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))

	ctx := context.Background()
	client, database, err := db.ConnectMongo(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	store := repository.NewMongoMessageRepository(database)
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestMongoMessageRepository_Conversations(t *testing.T) {
	ctx := context.Background()
	store := newMongoStore(t)

	msgs := seedThread(t, store,
		db.Message{SenderID: "b", ReceiverID: "a", Content: "b1"},
		db.Message{SenderID: "c", ReceiverID: "a", Content: "c1"},
		db.Message{SenderID: "b", ReceiverID: "a", Content: "b2"},
		db.Message{SenderID: "a", ReceiverID: "c", Content: "c2"},
	)

	convs, err := store.ListConversations(ctx, "a")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c", convs[0].CounterpartID)
	assert.Equal(t, int64(1), convs[0].UnreadCount)
	assert.Equal(t, "b", convs[1].CounterpartID)
	assert.Equal(t, int64(2), convs[1].UnreadCount)

	n, err := store.MarkThreadRead(ctx, "a", []string{msgs[0].ID, msgs[2].ID, msgs[3].ID}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	unread, err := store.CountUnread(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	thread, err := store.ListThread(ctx, "a", "c")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, msgs[1].ID, thread[0].ID)

	_, err = store.GetByID(ctx, "missing")
	assert.Error(t, err)
}
