// Package domain contains core domain types for the gateway.
package domain

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"
)

// DefaultMediaFilename names fetched attachments that carry no name of their own.
const DefaultMediaFilename = "Media"

// Media is an attachment ready to be sent: a MIME type, the payload as
// standard base64, and a filename.
type Media struct {
	Mimetype string `json:"mimetype"`
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

// NewMedia builds a Media from raw bytes.
func NewMedia(mimetype string, raw []byte, filename string) Media {
	return Media{
		Mimetype: mimetype,
		Data:     base64.StdEncoding.EncodeToString(raw),
		Filename: filename,
	}
}

// Bytes decodes the payload.
func (m Media) Bytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return nil, fmt.Errorf("decode media payload: %w", err)
	}
	return raw, nil
}

// BaseType returns the MIME type without parameters, lowercased.
// "image/jpeg; charset=binary" becomes "image/jpeg".
func (m Media) BaseType() string {
	mt, _, err := mime.ParseMediaType(m.Mimetype)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(m.Mimetype))
	}
	return mt
}

// Receipt is returned after the engine accepted an outgoing message.
type Receipt struct {
	ID        string    `json:"id"`
	ServerID  int       `json:"server_id,omitempty"`
	To        string    `json:"to"`
	Sender    string    `json:"sender,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
