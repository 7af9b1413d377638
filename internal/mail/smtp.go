package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/imparable/imparable/internal/config"
)

// SMTPSender delivers messages to an SMTP relay. The connection is either TLS
// from the start or upgraded with STARTTLS when configured, and PLAIN auth is
// used when a username is set.
type SMTPSender struct {
	addr        string
	host        string
	username    string
	password    string
	from        string
	fromName    string
	implicitTLS bool
	startTLS    bool
	tlsConfig   *tls.Config
	now         func() time.Time
}

// NewSMTPSender creates a sender for the configured relay.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	port := cfg.SMTP.Port
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		addr:        net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(port)),
		host:        cfg.SMTP.Host,
		username:    cfg.SMTP.Username,
		password:    cfg.SMTP.Password,
		from:        cfg.From,
		fromName:    cfg.FromName,
		implicitTLS: cfg.SMTP.ImplicitTLS,
		startTLS:    cfg.SMTP.StartTLS,
		tlsConfig:   &tls.Config{ServerName: cfg.SMTP.Host},
		now:         time.Now,
	}
}

// Compose builds the MIME message and returns it with its Message-ID.
func (s *SMTPSender) Compose(msg Message) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetAddressList("From", []*mail.Address{{Name: s.fromName, Address: s.from}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(msg.Subject)

	id := uuid.NewString() + "@" + domainOf(s.from)
	h.SetMessageID(id)
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := w.Write([]byte(msg.HTML)); err != nil {
		return nil, "", fmt.Errorf("writing body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing message: %w", err)
	}
	return buf.Bytes(), id, nil
}

// Send delivers msg and returns its Message-ID.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (string, error) {
	data, id, err := s.Compose(msg)
	if err != nil {
		return "", err
	}

	c, err := s.dial(ctx)
	if err != nil {
		return "", err
	}
	defer c.Close()

	if s.username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.username, s.password)); err != nil {
			return "", fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.SendMail(s.from, []string{msg.To}, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	if err := c.Quit(); err != nil {
		return "", fmt.Errorf("smtp quit: %w", err)
	}
	return id, nil
}

func (s *SMTPSender) dial(ctx context.Context) (*smtp.Client, error) {
	var (
		conn net.Conn
		err  error
	)
	if s.implicitTLS {
		d := &tls.Dialer{Config: s.tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", s.addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", s.addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", s.addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if s.implicitTLS || !s.startTLS {
		return smtp.NewClient(conn), nil
	}
	c, err := smtp.NewClientStartTLS(conn, s.tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("smtp starttls: %w", err)
	}
	return c, nil
}

func domainOf(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return "localhost"
}
