// Package realtime relays WhatsApp lifecycle events to browser viewers over
// WebSocket.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ashureev/wa-gateway/internal/session"
	"github.com/ashureev/wa-gateway/internal/whatsapp"
)

// Event names sent to viewers.
const (
	EventMessage       = "message"
	EventQR            = "qr"
	EventReady         = "ready"
	EventAuthenticated = "authenticated"
	EventDisconnected  = "disconnected"
)

// Status texts shown to viewers.
const (
	StatusConnecting    = "Connecting..."
	StatusQRReceived    = "QR Diterima, Silahkan Scan"
	StatusReady         = "Whatsapp is ready!"
	StatusAuthenticated = "Whatsapp is authenticated!"
	StatusLoggedOut     = "Whatsapp is logged out!"
)

const writeTimeout = 5 * time.Second

// Frame is one server-to-viewer message.
type Frame struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// conn is what the hub writes to. *websocket.Conn satisfies it.
type conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Hub tracks connected viewers and broadcasts frames to all of them.
type Hub struct {
	mu     sync.RWMutex
	active map[conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[conn]struct{}),
	}
}

// Register adds a viewer.
func (h *Hub) Register(c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[c] = struct{}{}
	slog.Info("Viewer registered", "viewers", len(h.active))
}

// Unregister removes a viewer. Unknown viewers are ignored.
func (h *Hub) Unregister(c conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.active[c]; ok {
		delete(h.active, c)
		slog.Info("Viewer unregistered", "viewers", len(h.active))
	}
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Broadcast sends one frame to every viewer. Viewers whose write fails are
// dropped.
func (h *Hub) Broadcast(event, data string) {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to encode frame", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]conn, 0, len(h.active))
	for c := range h.active {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := h.write(c, payload); err != nil {
			slog.Debug("Dropping viewer after failed write", "event", event, "error", err)
			h.Unregister(c)
			_ = c.Close(websocket.StatusGoingAway, "write failed")
		}
	}
}

// Send writes one frame to a single viewer.
func (h *Hub) Send(c conn, event, data string) error {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return h.write(c, payload)
}

func (h *Hub) write(c conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, payload)
}

// Hooks returns the lifecycle hooks that feed this hub. Subscribe them once.
func (h *Hub) Hooks() whatsapp.Hooks {
	return whatsapp.Hooks{
		OnQR: func(code string) {
			url, err := QRDataURL(code)
			if err != nil {
				slog.Error("Failed to render QR code", "error", err)
				return
			}
			h.Broadcast(EventQR, url)
			h.Broadcast(EventMessage, StatusQRReceived)
		},
		OnAuthenticated: func(session.Record) {
			h.Broadcast(EventAuthenticated, StatusAuthenticated)
			h.Broadcast(EventMessage, StatusAuthenticated)
		},
		OnReady: func() {
			h.Broadcast(EventReady, StatusReady)
			h.Broadcast(EventMessage, StatusReady)
		},
		OnLoggedOut: func(string) {
			h.Broadcast(EventDisconnected, StatusLoggedOut)
			h.Broadcast(EventMessage, StatusLoggedOut)
		},
	}
}

// QRDataURL renders a pairing code as a PNG data URL.
func QRDataURL(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
