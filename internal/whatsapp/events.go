package whatsapp

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func (c *Client) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.log.Info("Pairing successful", "jid", e.ID.String(), "platform", e.Platform)
	case *events.Connected:
		if c.device.ID == nil {
			return
		}
		rec := recordFromDevice(c.device, c.now())
		c.log.Info("Authenticated", "jid", rec.JID)
		c.emitAuthenticated(rec)
		c.emitReady()
	case *events.LoggedOut:
		reason := fmt.Sprint(e.Reason)
		c.log.Warn("Logged out", "reason", reason, "on_connect", e.OnConnect)
		c.emitLoggedOut(reason)
	case *events.Disconnected:
		c.log.Warn("Disconnected from WhatsApp")
	case *events.Message:
		c.handleMessage(e)
	}
}

func (c *Client) handleMessage(evt *events.Message) {
	if evt.Info.IsFromMe {
		return
	}

	reply, ok := c.replies.Lookup(messageText(evt.Message))
	if !ok {
		return
	}
	if c.engine == nil {
		c.log.Warn("Auto-reply skipped, engine unavailable", "chat", evt.Info.Chat.String())
		return
	}

	// Sending off the event goroutine keeps later events flowing.
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.sendReply(evt, reply)
	}()
}

func (c *Client) sendReply(evt *events.Message, reply string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.replyTimeout)
	defer cancel()

	if _, err := c.engine.SendMessage(ctx, evt.Info.Chat, quotedReply(evt, reply)); err != nil {
		c.log.Error("Auto-reply failed", "error", err, "chat", evt.Info.Chat.String(), "message_id", evt.Info.ID)
		return
	}
	c.log.Info("Auto-reply sent", "chat", evt.Info.Chat.String(), "message_id", evt.Info.ID)
}

// messageText returns the plain text body of a message, or "".
func messageText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if text := m.GetConversation(); text != "" {
		return text
	}
	return m.GetExtendedTextMessage().GetText()
}

// quotedReply builds a text message that quotes evt.
func quotedReply(evt *events.Message, text string) *waE2E.Message {
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(evt.Info.ID),
				Participant:   proto.String(evt.Info.Sender.ToNonAD().String()),
				QuotedMessage: evt.Message,
			},
		},
	}
}
