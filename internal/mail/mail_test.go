package mail

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imparable/imparable/internal/config"
	ierrors "github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// =============================================================================
// Templates
// =============================================================================

func TestRender(t *testing.T) {
	data := TemplateData{ObjectiveText: "Terminar la tesis", Percent: 50, Days: 3, AppName: "Imparable"}

	tests := []struct {
		category model.Category
		subject  string
		contains []string
	}{
		{model.CategoryDueToday, "🚨 ¡Tu objetivo vence HOY!", []string{"Tu objetivo vence HOY", "50% completado"}},
		{model.CategoryDueTomorrow, "⚡ Tu objetivo vence MAÑANA", []string{"Te queda 1 día"}},
		{model.CategoryThreeDayReminder, "📍 Recordatorio: Te quedan 3 días", []string{"Te quedan 3 días"}},
		{model.CategoryCompleted, "🎉 ¡Felicidades! Objetivo completado", []string{"100% COMPLETADO", "próximos objetivos"}},
	}

	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			subject, html, err := Render(tt.category, data)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, subject)
			assert.Contains(t, html, "Terminar la tesis")
			for _, s := range tt.contains {
				assert.Contains(t, html, s)
			}
		})
	}
}

func TestRenderOverdueDays(t *testing.T) {
	_, html, err := Render(model.CategoryOverdueWeekly, TemplateData{ObjectiveText: "Aprender Go", Percent: 20, Days: 14})
	require.NoError(t, err)
	assert.Contains(t, html, "Hace 14 días")
	assert.Contains(t, html, "20% completado")
	assert.Contains(t, html, "aplicación Imparable")
}

func TestRenderEscapesObjectiveText(t *testing.T) {
	_, html, err := Render(model.CategoryDueToday, TemplateData{ObjectiveText: "<script>alert(1)</script>"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderRejectsNoAction(t *testing.T) {
	_, _, err := Render(model.CategoryNoAction, TemplateData{})
	assert.ErrorIs(t, err, ierrors.ErrInvalidCategory)

	_, _, err = Render(model.Category("bogus"), TemplateData{})
	assert.ErrorIs(t, err, ierrors.ErrInvalidCategory)
}

func TestEveryCategoryHasTemplate(t *testing.T) {
	for _, c := range model.AllCategories {
		_, _, err := Render(c, TemplateData{ObjectiveText: "x"})
		assert.NoError(t, err, c.String())
	}
}

// =============================================================================
// Senders
// =============================================================================

func TestNewSender(t *testing.T) {
	httpCfg := config.Default().HTTP

	s, err := NewSender(config.MailConfig{Transport: "log"}, httpCfg)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.MailConfig{Transport: "smtp", SMTP: config.SMTPConfig{Host: "localhost"}}, httpCfg)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewSender(config.MailConfig{Transport: "webhook"}, httpCfg)
	require.NoError(t, err)
	assert.IsType(t, &WebhookSender{}, s)

	_, err = NewSender(config.MailConfig{Transport: "fax"}, httpCfg)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	id, err := LogSender{}.Send(context.Background(), Message{To: "a@b.io", Subject: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestRecordingSender(t *testing.T) {
	r := NewRecordingSender()
	r.FailFor["bad@example.com"] = true

	id, err := r.Send(context.Background(), Message{To: "ok@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)

	_, err = r.Send(context.Background(), Message{To: "bad@example.com"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Send(ctx, Message{To: "ok@example.com"})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Len(t, r.Sent(), 1)
}

// =============================================================================
// HTTP Client
// =============================================================================

func fastHTTP(retries int) config.HTTPConfig {
	return config.HTTPConfig{Timeout: 5 * time.Second, MaxRetries: retries}
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	res := NewHTTPClient(fastHTTP(3)).Post(context.Background(), srv.URL, nil, []byte("{}"))
	require.NoError(t, res.Error)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
}

func TestHTTPClientStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	res := NewHTTPClient(fastHTTP(3)).Post(context.Background(), srv.URL, nil, nil)
	assert.ErrorContains(t, res.Error, "HTTP 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := NewHTTPClient(fastHTTP(2)).Post(context.Background(), srv.URL, nil, nil)
	assert.ErrorContains(t, res.Error, "rate limited")
	assert.Equal(t, 2, res.Attempts)
}

func TestHTTPClientCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(config.HTTPConfig{Timeout: time.Second, MaxRetries: 3, RetryDelays: []time.Duration{0, time.Hour}})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := client.Post(ctx, srv.URL, nil, nil)
	assert.ErrorIs(t, res.Error, context.DeadlineExceeded)
	assert.Equal(t, 2, res.Attempts)
}

// =============================================================================
// Webhook Sender
// =============================================================================

func TestWebhookSender(t *testing.T) {
	var got webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg-123"}`)
	}))
	defer srv.Close()

	cfg := config.MailConfig{
		From:     "reminders@example.com",
		FromName: "Imparable App",
		Webhook:  config.WebhookConfig{URL: srv.URL, APIKey: "k"},
	}
	s := NewWebhookSender(cfg, NewHTTPClient(fastHTTP(1)))

	id, err := s.Send(context.Background(), Message{To: "ana@example.com", Subject: "s", HTML: "<p>h</p>"})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)
	assert.Equal(t, "Bearer k", auth)
	assert.Equal(t, "ana@example.com", got.To)
	assert.Equal(t, "reminders@example.com", got.From)
	assert.Equal(t, "<p>h</p>", got.HTML)
}

func TestWebhookSenderFallbackID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(config.MailConfig{Webhook: config.WebhookConfig{URL: srv.URL}}, NewHTTPClient(fastHTTP(1)))
	id, err := s.Send(context.Background(), Message{To: "a@b.io"})
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestWebhookSenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewWebhookSender(config.MailConfig{Webhook: config.WebhookConfig{URL: srv.URL}}, NewHTTPClient(fastHTTP(3)))
	_, err := s.Send(context.Background(), Message{To: "a@b.io"})
	assert.ErrorContains(t, err, "HTTP 401")
}

// =============================================================================
// SMTP Sender
// =============================================================================

type smtpBackend struct {
	mu   sync.Mutex
	msgs []smtpMsg
}

type smtpMsg struct {
	from string
	to   []string
	data string
	tls  bool
}

func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	_, isTLS := c.TLSConnectionState()
	return &smtpSession{b: b, tls: isTLS}, nil
}

type smtpSession struct {
	b   *smtpBackend
	cur smtpMsg
	tls bool
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.cur.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if strings.HasPrefix(to, "reject") {
		return errors.New("mailbox unavailable")
	}
	s.cur.to = append(s.cur.to, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.data = string(b)
	s.cur.tls = s.tls
	s.b.mu.Lock()
	s.b.msgs = append(s.b.msgs, s.cur)
	s.b.mu.Unlock()
	return nil
}

func (s *smtpSession) Reset()        { s.cur = smtpMsg{} }
func (s *smtpSession) Logout() error { return nil }

func startSMTP(t *testing.T) (*smtpBackend, config.MailConfig) {
	return startSMTPWithTLS(t, nil)
}

// startSMTPWithTLS starts a local relay that offers STARTTLS when tlsConfig is set.
func startSMTPWithTLS(t *testing.T, tlsConfig *tls.Config) (*smtpBackend, config.MailConfig) {
	t.Helper()
	be := &smtpBackend{}
	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.TLSConfig = tlsConfig

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return be, config.MailConfig{
		From:     "reminders@imparable.app",
		FromName: "Imparable App",
		SMTP:     config.SMTPConfig{Host: host, Port: port},
	}
}

func TestSMTPSenderCompose(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{From: "reminders@imparable.app", FromName: "Imparable App"})
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	data, id, err := s.Compose(Message{To: "ana@example.com", Subject: "🚨 ¡Tu objetivo vence HOY!", HTML: "<p>Hola</p>"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(id, "@imparable.app"))

	raw := string(data)
	assert.Contains(t, raw, "From: \"Imparable App\" <reminders@imparable.app>")
	assert.Contains(t, raw, "To: <ana@example.com>")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "<"+id+">")
	assert.Contains(t, raw, "<p>Hola</p>")
	assert.Contains(t, raw, "=?utf-8?")
}

func TestSMTPSenderSend(t *testing.T) {
	be, cfg := startSMTP(t)
	s := NewSMTPSender(cfg)

	id, err := s.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hola", HTML: "<p>x</p>"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.msgs, 1)
	assert.False(t, be.msgs[0].tls)
	assert.Equal(t, "reminders@imparable.app", be.msgs[0].from)
	assert.Equal(t, []string{"ana@example.com"}, be.msgs[0].to)
	assert.Contains(t, be.msgs[0].data, "Subject: Hola")
}

func TestSMTPSenderStartTLS(t *testing.T) {
	ts := httptest.NewTLSServer(http.NotFoundHandler())
	defer ts.Close()

	be, cfg := startSMTPWithTLS(t, ts.TLS.Clone())
	cfg.SMTP.StartTLS = true
	s := NewSMTPSender(cfg)
	roots := x509.NewCertPool()
	roots.AddCert(ts.Certificate())
	s.tlsConfig.RootCAs = roots

	_, err := s.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hola", HTML: "<p>x</p>"})
	require.NoError(t, err)

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.msgs, 1)
	assert.True(t, be.msgs[0].tls)
}

func TestSMTPSenderStartTLSUnsupported(t *testing.T) {
	be, cfg := startSMTP(t)
	cfg.SMTP.StartTLS = true
	s := NewSMTPSender(cfg)

	_, err := s.Send(context.Background(), Message{To: "ana@example.com", Subject: "Hola", HTML: "<p>x</p>"})
	assert.ErrorContains(t, err, "smtp starttls")

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Empty(t, be.msgs)
}

func TestSMTPSenderRejected(t *testing.T) {
	_, cfg := startSMTP(t)
	s := NewSMTPSender(cfg)

	_, err := s.Send(context.Background(), Message{To: "rejected@example.com", Subject: "x", HTML: "x"})
	assert.ErrorContains(t, err, "smtp send")
}

func TestSMTPSenderDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	s := NewSMTPSender(config.MailConfig{From: "a@b.io", SMTP: config.SMTPConfig{Host: "127.0.0.1", Port: addr.Port}})
	_, err = s.Send(context.Background(), Message{To: "x@y.z"})
	assert.ErrorContains(t, err, "smtp dial")
}
