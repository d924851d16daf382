package broadcaster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := Upgrade(hub, w, r, zerolog.Nop())
		require.NoError(t, err)
	}))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, wsURL
}

func TestHubBroadcastsConnectedOnJoin(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv, wsURL := newTestServer(t, hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg Message
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, TypeConnected, msg.Type)
}

func TestHubBroadcastDeliversToAllClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv, wsURL := newTestServer(t, hub)
	defer srv.Close()

	conn1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn1.Close()
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn2.Close()

	// drain each connection's initial "connected" message.
	var discard Message
	_ = conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn1.ReadJSON(&discard))
	_ = conn2.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn2.ReadJSON(&discard))

	hub.Broadcast(Message{Type: TypeLibrarySynced})

	var m1, m2 Message
	_ = conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn1.ReadJSON(&m1))
	_ = conn2.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn2.ReadJSON(&m2))

	assert.Equal(t, TypeLibrarySynced, m1.Type)
	assert.Equal(t, TypeLibrarySynced, m2.Type)
}

func TestHubClientCountTracksConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv, wsURL := newTestServer(t, hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
