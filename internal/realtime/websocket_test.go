package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := ws.Read(ctx)
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func waitForViewers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestWebSocketHandler_ConnectingThenBroadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewWebSocketHandler(hub, "", true))
	defer srv.Close()

	first := dial(t, srv)
	assert.Equal(t, Frame{Event: EventMessage, Data: StatusConnecting}, readFrame(t, first))

	second := dial(t, srv)
	assert.Equal(t, Frame{Event: EventMessage, Data: StatusConnecting}, readFrame(t, second))
	waitForViewers(t, hub, 2)

	hub.Hooks().OnReady()

	for _, ws := range []*websocket.Conn{first, second} {
		assert.Equal(t, Frame{Event: EventReady, Data: StatusReady}, readFrame(t, ws))
		assert.Equal(t, Frame{Event: EventMessage, Data: StatusReady}, readFrame(t, ws))
	}
}

func TestWebSocketHandler_UnregistersOnClose(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewWebSocketHandler(hub, "", true))
	defer srv.Close()

	ws := dial(t, srv)
	readFrame(t, ws)
	waitForViewers(t, hub, 1)

	require.NoError(t, ws.Close(websocket.StatusNormalClosure, "bye"))
	waitForViewers(t, hub, 0)
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(NewHub(), "https://wa.example.com", false)

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://gateway.internal:8000/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, h.checkOrigin(req("")))
	assert.True(t, h.checkOrigin(req("https://wa.example.com")))
	assert.True(t, h.checkOrigin(req("http://gateway.internal:8000")))
	assert.False(t, h.checkOrigin(req("https://evil.example.com")))

	dev := NewWebSocketHandler(NewHub(), "", true)
	assert.True(t, dev.checkOrigin(req("https://anything.example.com")))
}

func TestWebSocketHandler_ConnectingPrecedesConcurrentBroadcasts(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewWebSocketHandler(hub, "", true))
	defer srv.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				hub.Broadcast(EventReady, StatusReady)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	for i := 0; i < 5; i++ {
		ws := dial(t, srv)
		assert.Equal(t, Frame{Event: EventMessage, Data: StatusConnecting}, readFrame(t, ws))
	}

	close(stop)
	<-done
}
