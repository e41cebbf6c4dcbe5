package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkchat/internal/app/pipeline"
)

func TestClientRoundTrip(t *testing.T) {
	hub := NewHub(nil)
	hub.SetServer(&stubServer{resp: pipeline.Response{Data: "pong"}})

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, "c1")
		hub.Register(r.Context(), client, "")
		go client.WritePump()
		client.ReadPump(context.Background())
	}))
	t.Cleanup(server.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"id":1,"event":"ping"}`)))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ack AckFrame
	require.NoError(t, ws.ReadJSON(&ack))
	assert.Equal(t, FrameAck, ack.Type)
	assert.Equal(t, int64(1), ack.ID)
	assert.Equal(t, "pong", ack.Data)

	require.NoError(t, hub.Registry().Bind("c1", "alice"))
	assert.Equal(t, 1, hub.EmitToUser("alice", EventChangeTag, "vip", ""))

	var event EventFrame
	require.NoError(t, ws.ReadJSON(&event))
	assert.Equal(t, EventFrame{Type: FrameEvent, Event: EventChangeTag, Data: "vip"}, event)

	// closing the client side unregisters the connection
	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hub.Registry().Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestClientSendAfterClose(t *testing.T) {
	client := &Client{id: "c1", send: make(chan []byte, 1), done: make(chan struct{})}

	require.NoError(t, client.Send([]byte("a")))
	assert.ErrorIs(t, client.Send([]byte("b")), ErrSendQueueFull)
	assert.ErrorIs(t, client.Send([]byte("c")), ErrConnClosed)

	client.Close()
}
