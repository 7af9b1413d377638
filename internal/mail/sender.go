// Package mail renders reminder emails and delivers them through a
// configurable transport.
package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/imparable/imparable/internal/config"
	"github.com/imparable/imparable/internal/logging"
)

// Message is a rendered email for a single recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message and returns the transport's delivery id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Transport names accepted by NewSender.
const (
	TransportSMTP    = "smtp"
	TransportWebhook = "webhook"
	TransportLog     = "log"
)

// NewSender builds the transport selected in cfg.
func NewSender(cfg config.MailConfig, httpCfg config.HTTPConfig) (Sender, error) {
	switch cfg.Transport {
	case TransportSMTP:
		return NewSMTPSender(cfg), nil
	case TransportWebhook:
		return NewWebhookSender(cfg, NewHTTPClient(httpCfg)), nil
	case "", TransportLog:
		return &LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

// Send logs the message and returns a generated id.
func (LogSender) Send(ctx context.Context, msg Message) (string, error) {
	id := uuid.NewString()
	logging.InfoContext(ctx, "email not delivered (log transport)",
		logging.KeyRecipient, logging.MaskEmail(msg.To),
		"subject", msg.Subject,
		logging.KeyDeliveryID, id,
	)
	return id, nil
}

// RecordingSender keeps every message in memory. Recipients listed in
// FailFor get Err instead of a delivery.
type RecordingSender struct {
	mu      sync.Mutex
	sent    []Message
	FailFor map[string]bool
	Err     error
}

// NewRecordingSender returns an empty RecordingSender.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{FailFor: map[string]bool{}}
}

// Send records msg.
func (r *RecordingSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailFor[msg.To] {
		err := r.Err
		if err == nil {
			err = fmt.Errorf("recording sender: refused %s", msg.To)
		}
		return "", err
	}
	r.sent = append(r.sent, msg)
	return fmt.Sprintf("rec-%d", len(r.sent)), nil
}

// Sent returns a copy of the delivered messages.
func (r *RecordingSender) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
