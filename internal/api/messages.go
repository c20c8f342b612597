package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/wa-gateway/internal/domain"
	"github.com/ashureev/wa-gateway/internal/phone"
)

const (
	invalidValue     = "Invalid value"
	notRegisteredMsg = "Nomor tidak terdaftar !"
)

// Messenger sends through the WhatsApp engine. *whatsapp.Client satisfies it.
type Messenger interface {
	IsRegisteredUser(ctx context.Context, address string) (bool, error)
	SendText(ctx context.Context, address, text string) (domain.Receipt, error)
	SendMedia(ctx context.Context, address string, media domain.Media, caption string) (domain.Receipt, error)
}

// MediaFetcher downloads a remote attachment.
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL string) (domain.Media, error)
}

// Result is the body of every send endpoint response.
type Result struct {
	Status   bool        `json:"status"`
	Message  interface{} `json:"message,omitempty"`
	Response interface{} `json:"response,omitempty"`
}

// MessageHandler serves the send endpoints.
type MessageHandler struct {
	messenger Messenger
	fetcher   MediaFetcher
	formatter phone.Formatter
}

// NewMessageHandler creates a handler sharing one messenger across requests.
func NewMessageHandler(messenger Messenger, fetcher MediaFetcher, formatter phone.Formatter) *MessageHandler {
	return &MessageHandler{
		messenger: messenger,
		fetcher:   fetcher,
		formatter: formatter,
	}
}

// RegisterRoutes registers the send routes.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send-message", h.SendMessage)
	r.Post("/send-media", h.SendMedia)
}

// SendMessage validates the request, checks the recipient is registered
// and sends a text message.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r)
	if err != nil {
		JSON(w, http.StatusBadRequest, Result{Status: false, Message: err.Error()})
		return
	}

	if errs := requireFields(fields, "number", "message"); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, Result{Status: false, Message: errs})
		return
	}

	ctx := r.Context()
	number := h.formatter.Format(fields["number"])

	registered, err := h.messenger.IsRegisteredUser(ctx, number)
	if err != nil {
		slog.Error("Registration check failed", "error", err, "number", number)
		JSON(w, http.StatusInternalServerError, Result{Status: false, Response: err.Error()})
		return
	}
	if !registered {
		JSON(w, http.StatusUnprocessableEntity, Result{Status: false, Message: notRegisteredMsg})
		return
	}

	receipt, err := h.messenger.SendText(ctx, number, fields["message"])
	if err != nil {
		slog.Error("Failed to send message", "error", err, "number", number)
		JSON(w, http.StatusInternalServerError, Result{Status: false, Response: err.Error()})
		return
	}

	slog.Info("Message sent", "number", number, "message_id", receipt.ID)
	JSON(w, http.StatusOK, Result{Status: true, Response: receipt})
}

// SendMedia fetches the attachment at the given URL and sends it with an
// optional caption.
func (h *MessageHandler) SendMedia(w http.ResponseWriter, r *http.Request) {
	fields, err := readFields(r)
	if err != nil {
		JSON(w, http.StatusBadRequest, Result{Status: false, Message: err.Error()})
		return
	}

	errs := requireFields(fields, "number", "file")
	if _, ok := errs["file"]; !ok && !isHTTPURL(fields["file"]) {
		errs["file"] = invalidValue
	}
	if len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, Result{Status: false, Message: errs})
		return
	}

	ctx := r.Context()
	number := h.formatter.Format(fields["number"])

	media, err := h.fetcher.Fetch(ctx, fields["file"])
	if err != nil {
		slog.Error("Failed to fetch media", "error", err, "url", fields["file"])
		JSON(w, http.StatusInternalServerError, Result{Status: false, Response: err.Error()})
		return
	}

	receipt, err := h.messenger.SendMedia(ctx, number, media, fields["caption"])
	if err != nil {
		slog.Error("Failed to send media", "error", err, "number", number)
		JSON(w, http.StatusInternalServerError, Result{Status: false, Response: err.Error()})
		return
	}

	slog.Info("Media sent", "number", number, "message_id", receipt.ID, "mimetype", media.Mimetype)
	JSON(w, http.StatusOK, Result{Status: true, Response: receipt})
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

