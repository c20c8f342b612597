package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/wa-gateway/internal/session"
)

type recordingConn struct {
	mu       sync.Mutex
	frames   []Frame
	writeErr error
	closed   bool
}

func (c *recordingConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	var f Frame
	if err := json.Unmarshal(p, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close(websocket.StatusCode, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = f.Event
	}
	return out
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	c1, c2 := &recordingConn{}, &recordingConn{}

	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.Len())

	hub.Unregister(c1)
	hub.Unregister(c1)
	assert.Equal(t, 1, hub.Len())

	hub.Broadcast(EventMessage, "hello")
	assert.Empty(t, c1.frames)
	assert.Equal(t, []Frame{{Event: EventMessage, Data: "hello"}}, c2.frames)
}

func TestHub_EachViewerGetsEachEventOnce(t *testing.T) {
	hub := NewHub()
	viewers := make([]*recordingConn, 5)
	for i := range viewers {
		viewers[i] = &recordingConn{}
		hub.Register(viewers[i])
	}

	hooks := hub.Hooks()
	hooks.OnReady()

	for _, v := range viewers {
		assert.Equal(t, []string{EventReady, EventMessage}, v.events())
		assert.Equal(t, StatusReady, v.frames[0].Data)
	}
}

func TestHub_NoReplayForLateViewers(t *testing.T) {
	hub := NewHub()
	early := &recordingConn{}
	hub.Register(early)

	hub.Hooks().OnAuthenticated(session.Record{JID: "62811@s.whatsapp.net"})

	late := &recordingConn{}
	hub.Register(late)

	assert.Equal(t, []string{EventAuthenticated, EventMessage}, early.events())
	assert.Empty(t, late.frames)
}

func TestHub_DropsFailedViewers(t *testing.T) {
	hub := NewHub()
	good := &recordingConn{}
	bad := &recordingConn{writeErr: errors.New("broken pipe")}
	hub.Register(good)
	hub.Register(bad)

	hub.Broadcast(EventMessage, "x")

	assert.Equal(t, 1, hub.Len())
	assert.True(t, bad.closed)
	assert.Len(t, good.frames, 1)
}

func TestHub_QRHook(t *testing.T) {
	hub := NewHub()
	v := &recordingConn{}
	hub.Register(v)

	hub.Hooks().OnQR("2@AbCdEf,key1,key2,adv")

	require.Equal(t, []string{EventQR, EventMessage}, v.events())
	assert.True(t, strings.HasPrefix(v.frames[0].Data, "data:image/png;base64,"))
	assert.Equal(t, StatusQRReceived, v.frames[1].Data)
}

func TestHub_LoggedOutHook(t *testing.T) {
	hub := NewHub()
	v := &recordingConn{}
	hub.Register(v)

	hub.Hooks().OnLoggedOut("logged out")

	assert.Equal(t, []string{EventDisconnected, EventMessage}, v.events())
}

func TestQRDataURL(t *testing.T) {
	url, err := QRDataURL("2@code")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,iVBOR"))
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c := &recordingConn{}
			hub.Register(c)
			if i%2 == 0 {
				hub.Unregister(c)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			hub.Broadcast(EventMessage, strconv.Itoa(i))
		}
	}()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent register/broadcast did not finish")
	}
	assert.Equal(t, 250, hub.Len())
}
