package httptransport_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/relay"
	"github.com/oggyb/vivah/internal/testutil"
)

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) relay.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev relay.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// readUntil skips events of other types, e.g. presence noise.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) relay.Event {
	t.Helper()
	for {
		if ev := read(t, conn); ev.Type == typ {
			return ev
		}
	}
}

func TestWebSocket_RejectsMissingToken(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_LiveMessaging(t *testing.T) {
	f := setup(t)
	testutil.NewUser(t, f.appCtx.DB, "u1")
	testutil.NewUser(t, f.appCtx.DB, "u2", testutil.WithGender(db.GenderFemale))
	testutil.Accepted(t, f.appCtx.DB, "u1", "u2")
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	c1 := dial(t, srv, f.token(t, "u1", db.RoleUser))
	assert.Equal(t, []string{"u1"}, readUntil(t, c1, relay.EventOnlineUsers).Users)

	c2 := dial(t, srv, f.token(t, "u2", db.RoleUser))
	readUntil(t, c2, relay.EventOnlineUsers)

	presence := readUntil(t, c1, relay.EventPresence)
	assert.Equal(t, "u2", presence.UserID)
	assert.True(t, *presence.Online)

	require.NoError(t, c1.WriteJSON(relay.Frame{Type: relay.FrameTyping, To: "u2", Typing: true}))
	typing := readUntil(t, c2, relay.EventTyping)
	assert.Equal(t, "u1", typing.From)

	require.NoError(t, c1.WriteJSON(relay.Frame{Type: relay.FrameMessage, ClientID: "c-1", To: "u2", Content: "Namaste"}))
	ack := readUntil(t, c1, relay.EventMessageAck)
	assert.Equal(t, "c-1", ack.ClientID)
	require.NotNil(t, ack.Message)

	in := readUntil(t, c2, relay.EventMessage)
	assert.Equal(t, ack.Message.ID, in.Message.ID)
	assert.Equal(t, "Namaste", in.Message.Content)

	require.NoError(t, c2.WriteMessage(websocket.TextMessage, []byte("{not json")))
	bad := readUntil(t, c2, relay.EventError)
	assert.Equal(t, "malformed frame", bad.Error.Message)

	require.NoError(t, c2.Close())
	offline := readUntil(t, c1, relay.EventPresence)
	assert.Equal(t, "u2", offline.UserID)
	assert.False(t, *offline.Online)
}
