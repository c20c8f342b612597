package whatsapp

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/ashureev/wa-gateway/internal/domain"
)

func parseAddress(address string) (types.JID, error) {
	jid, err := types.ParseJID(address)
	if err != nil {
		return types.JID{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	if jid.User == "" || jid.Server == "" {
		return types.JID{}, fmt.Errorf("%w: %s", ErrInvalidAddress, address)
	}
	return jid, nil
}

// IsRegisteredUser asks the network whether address has a WhatsApp account.
// Results are not cached. Addresses that cannot name a user are reported as
// unregistered; only an unavailable transport is an error.
func (c *Client) IsRegisteredUser(ctx context.Context, address string) (bool, error) {
	jid, err := parseAddress(address)
	if err != nil || jid.Server != types.DefaultUserServer {
		// Not a phone number.
		return false, nil
	}
	if !c.IsReady() {
		return false, ErrNotReady
	}

	resp, err := c.engine.IsOnWhatsApp(ctx, []string{"+" + jid.User})
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	for _, r := range resp {
		if r.IsIn {
			return true, nil
		}
	}
	return false, nil
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, address, text string) (domain.Receipt, error) {
	jid, err := parseAddress(address)
	if err != nil {
		return domain.Receipt{}, err
	}
	if !c.IsReady() {
		return domain.Receipt{}, ErrNotReady
	}

	return c.send(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
}

// SendMedia uploads media and sends it with an optional caption.
func (c *Client) SendMedia(ctx context.Context, address string, media domain.Media, caption string) (domain.Receipt, error) {
	jid, err := parseAddress(address)
	if err != nil {
		return domain.Receipt{}, err
	}
	if !c.IsReady() {
		return domain.Receipt{}, ErrNotReady
	}

	raw, err := media.Bytes()
	if err != nil {
		return domain.Receipt{}, err
	}

	kind := mediaTypeFor(media.BaseType())
	uploaded, err := c.engine.Upload(ctx, raw, kind)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("upload media: %w", err)
	}

	return c.send(ctx, jid, buildMediaMessage(kind, uploaded, media, caption))
}

func (c *Client) send(ctx context.Context, to types.JID, msg *waE2E.Message) (domain.Receipt, error) {
	resp, err := c.engine.SendMessage(ctx, to, msg)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("send message: %w", err)
	}

	receipt := domain.Receipt{
		ID:        string(resp.ID),
		ServerID:  int(resp.ServerID),
		To:        to.String(),
		Timestamp: resp.Timestamp,
	}
	if !resp.Sender.IsEmpty() {
		receipt.Sender = resp.Sender.String()
	}
	return receipt, nil
}

func mediaTypeFor(mimetype string) whatsmeow.MediaType {
	switch {
	case strings.HasPrefix(mimetype, "image/"):
		return whatsmeow.MediaImage
	case strings.HasPrefix(mimetype, "video/"):
		return whatsmeow.MediaVideo
	case strings.HasPrefix(mimetype, "audio/"):
		return whatsmeow.MediaAudio
	default:
		return whatsmeow.MediaDocument
	}
}

func buildMediaMessage(kind whatsmeow.MediaType, up whatsmeow.UploadResponse, media domain.Media, caption string) *waE2E.Message {
	mimetype := media.BaseType()
	var captionPtr *string
	if caption != "" {
		captionPtr = proto.String(caption)
	}

	switch kind {
	case whatsmeow.MediaImage:
		return &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
			Caption:       captionPtr,
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	case whatsmeow.MediaVideo:
		return &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
			Caption:       captionPtr,
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	case whatsmeow.MediaAudio:
		// Audio messages have no caption field.
		return &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	default:
		filename := media.Filename
		if filename == "" {
			filename = domain.DefaultMediaFilename
		}
		return &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
			Caption:       captionPtr,
			FileName:      proto.String(filename),
			Title:         proto.String(filename),
			Mimetype:      proto.String(mimetype),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		}}
	}
}
