package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/logging"
)

// WebhookSender posts messages to an HTTP mail API.
//
// Request body:
//
//	{"id": "...", "from": "...", "from_name": "...", "to": "...", "subject": "...", "html": "..."}
//
// A JSON response carrying "id" overrides the generated delivery id.
type WebhookSender struct {
	url      string
	apiKey   string
	from     string
	fromName string
	client   *HTTPClient
}

// NewWebhookSender creates a sender for the configured endpoint.
func NewWebhookSender(cfg config.MailConfig, client *HTTPClient) *WebhookSender {
	return &WebhookSender{
		url:      cfg.Webhook.URL,
		apiKey:   cfg.Webhook.APIKey,
		from:     cfg.From,
		fromName: cfg.FromName,
		client:   client,
	}
}

type webhookPayload struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	FromName string `json:"from_name,omitempty"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
}

// Send posts msg and returns the delivery id.
func (s *WebhookSender) Send(ctx context.Context, msg Message) (string, error) {
	payload := webhookPayload{
		ID:       uuid.NewString(),
		From:     s.from,
		FromName: s.fromName,
		To:       msg.To,
		Subject:  msg.Subject,
		HTML:     msg.HTML,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if rid := logging.RequestIDFromContext(ctx); rid != "" {
		header.Set("X-Request-ID", rid)
	}

	res := s.client.Post(ctx, s.url, header, body)
	logging.DebugContext(ctx, "mail webhook call",
		logging.KeyTransport, TransportWebhook,
		"url", logging.MaskURL(s.url),
		logging.KeyStatus, res.StatusCode,
		"attempts", res.Attempts,
		logging.KeyDuration, res.Duration.Milliseconds(),
	)
	if res.Error != nil {
		return "", res.Error
	}

	var reply struct {
		ID string `json:"id"`
	}
	if len(res.Body) > 0 && json.Unmarshal(res.Body, &reply) == nil && reply.ID != "" {
		return reply.ID, nil
	}
	return payload.ID, nil
}
