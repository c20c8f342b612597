package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
)

// WebSocketHandler accepts viewer connections and keeps them in the hub
// until they close.
type WebSocketHandler struct {
	hub           *Hub
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "viewer left"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	// Connecting goes out before any broadcast can reach this viewer.
	if err := h.hub.Send(ws, EventMessage, StatusConnecting); err != nil {
		slog.Debug("Failed to send connecting status", "error", err)
		return
	}

	h.hub.Register(ws)
	defer h.hub.Unregister(ws)

	h.readLoop(r.Context(), ws)
}

// readLoop drains client frames until the connection closes. Viewers only
// listen; anything they send is discarded.
func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by viewer")
			} else {
				slog.Debug("WebSocket read error", "error", err)
			}
			return
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	// The pairing dashboard connects from the server's own host.
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
