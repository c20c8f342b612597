// Package whatsapp wraps the whatsmeow engine: pairing, lifecycle hooks,
// registration checks, outgoing text and media, and inbound auto-replies.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"

	"github.com/ashureev/wa-gateway/internal/autoreply"
	"github.com/ashureev/wa-gateway/internal/session"
)

var (
	// ErrNotReady is returned when the engine is not connected and logged in.
	ErrNotReady = errors.New("whatsapp client is not ready")
	// ErrInvalidAddress is returned for addresses the engine cannot parse.
	ErrInvalidAddress = errors.New("invalid whatsapp address")
)

// engine is the subset of *whatsmeow.Client used after startup.
type engine interface {
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
	Upload(ctx context.Context, plaintext []byte, appInfo whatsmeow.MediaType) (whatsmeow.UploadResponse, error)
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	IsConnected() bool
	IsLoggedIn() bool
}

// Hooks receive lifecycle events. Nil fields are skipped.
type Hooks struct {
	OnQR            func(code string)
	OnAuthenticated func(rec session.Record)
	OnReady         func()
	OnLoggedOut     func(reason string)
}

// Options configure a Client.
type Options struct {
	Logger         *slog.Logger
	EngineLogLevel string
	Replies        autoreply.Table
	ReplyTimeout   time.Duration
}

// Client is the single long-lived connection to WhatsApp.
type Client struct {
	wa      *whatsmeow.Client
	engine  engine
	device  *store.Device
	replies autoreply.Table
	log     *slog.Logger
	now     func() time.Time

	replyTimeout time.Duration

	// Set from wa in New; replaced in tests.
	qrChannel func(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error)
	connect   func() error

	mu    sync.RWMutex
	hooks []Hooks

	// pending tracks auto-replies still being sent.
	pending sync.WaitGroup
}

// New creates a client for device. Call Subscribe before Start so no
// lifecycle event is missed.
func New(device *store.Device, opts Options) *Client {
	c := newClient(device, opts)
	c.wa = whatsmeow.NewClient(device, NewLogger(c.log.With("component", "whatsmeow"), opts.EngineLogLevel))
	c.wa.EnableAutoReconnect = true
	c.wa.AddEventHandler(c.handleEvent)
	c.engine = c.wa
	c.qrChannel = c.wa.GetQRChannel
	c.connect = c.wa.Connect
	return c
}

func newClient(device *store.Device, opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	replies := opts.Replies
	if replies == nil {
		replies = autoreply.Default()
	}
	replyTimeout := opts.ReplyTimeout
	if replyTimeout <= 0 {
		replyTimeout = 30 * time.Second
	}
	return &Client{
		device:       device,
		replies:      replies,
		log:          log,
		now:          time.Now,
		replyTimeout: replyTimeout,
	}
}

// Subscribe registers hooks for every subsequent lifecycle event.
func (c *Client) Subscribe(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
}

// NeedsPairing reports whether the device has never been logged in, in
// which case Start emits QR codes before connecting.
func (c *Client) NeedsPairing() bool {
	return c.device.ID == nil
}

// Start begins authentication. It returns once the connection attempt is
// under way; progress is reported only through hooks.
func (c *Client) Start(ctx context.Context) error {
	if c.NeedsPairing() {
		qrChan, err := c.qrChannel(ctx)
		if err != nil {
			return fmt.Errorf("open qr channel: %w", err)
		}
		go c.watchQR(qrChan)
		c.log.Info("No session found, waiting for QR scan")
	} else {
		c.log.Info("Resuming session", "jid", c.device.ID.String())
	}

	if err := c.connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Stop waits for in-flight auto-replies, then disconnects from WhatsApp.
func (c *Client) Stop() {
	c.pending.Wait()
	if c.wa != nil {
		c.wa.Disconnect()
	}
}

// IsReady reports whether sends can be attempted.
func (c *Client) IsReady() bool {
	return c.engine != nil && c.engine.IsConnected() && c.engine.IsLoggedIn()
}

func (c *Client) watchQR(ch <-chan whatsmeow.QRChannelItem) {
	for item := range ch {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.log.Info("QR received", "timeout", item.Timeout)
			c.emitQR(item.Code)
		case whatsmeow.QRChannelEventError:
			c.log.Error("QR pairing failed", "error", item.Error)
		default:
			c.log.Info("QR channel event", "event", item.Event)
		}
	}
}

func (c *Client) snapshot() []Hooks {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hooks := make([]Hooks, len(c.hooks))
	copy(hooks, c.hooks)
	return hooks
}

func (c *Client) emitQR(code string) {
	for _, h := range c.snapshot() {
		if h.OnQR != nil {
			h.OnQR(code)
		}
	}
}

func (c *Client) emitAuthenticated(rec session.Record) {
	for _, h := range c.snapshot() {
		if h.OnAuthenticated != nil {
			h.OnAuthenticated(rec)
		}
	}
}

func (c *Client) emitReady() {
	for _, h := range c.snapshot() {
		if h.OnReady != nil {
			h.OnReady()
		}
	}
}

func (c *Client) emitLoggedOut(reason string) {
	for _, h := range c.snapshot() {
		if h.OnLoggedOut != nil {
			h.OnLoggedOut(reason)
		}
	}
}
