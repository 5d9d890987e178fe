package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/carepulse/internal/compliance"
	"github.com/wolfman30/carepulse/pkg/logging"
)

const defaultFromName = "CarePulse"

// EmailSender delivers one message. SendGrid, SES, the stub and the
// background Dispatcher all satisfy it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one patient notification.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string // plain text
	HTML    string // optional

	// Category groups messages in provider analytics ("appointment_scheduled").
	Category string
	// Tags are provider metadata such as appointment_id. Never PHI.
	Tags map[string]string
}

func (m EmailMessage) sortedTagKeys() []string {
	keys := make([]string, 0, len(m.Tags))
	for k := range m.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends through the SendGrid v3 API.
type SendGridSender struct {
	client   *sendgrid.Client
	from     *mail.Email
	fromName string
	logger   *logging.Logger
}

// NewSendGridSender returns nil without an API key; callers must check before
// assigning the result to an EmailSender.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     mail.NewEmail(cfg.FromName, cfg.FromEmail),
		fromName: cfg.FromName,
		logger:   logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	resp, err := s.client.SendWithContext(ctx, buildSendGridMail(s.from, msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", compliance.MaskEmail(msg.To))
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected message",
			"status", resp.StatusCode,
			"to", compliance.MaskEmail(msg.To),
			"category", msg.Category,
		)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", compliance.MaskEmail(msg.To), "category", msg.Category, "status", resp.StatusCode)
	return nil
}

// buildSendGridMail maps a message onto the v3 payload. The plain body doubles
// as HTML when none is given, since v3 requires both parts.
func buildSendGridMail(from *mail.Email, msg EmailMessage) *mail.SGMailV3 {
	htmlBody := msg.HTML
	if htmlBody == "" {
		htmlBody = msg.Body
	}
	m := mail.NewSingleEmail(from, msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, htmlBody)
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	for _, k := range msg.sortedTagKeys() {
		m.SetCustomArg(k, msg.Tags[k])
	}
	return m
}

// StubEmailSender logs instead of sending and keeps what it would have sent.
type StubEmailSender struct {
	logger *logging.Logger

	mu   sync.Mutex
	sent []EmailMessage
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info("stub email sender: would send email", "to", compliance.MaskEmail(msg.To), "subject", msg.Subject, "category", msg.Category)
	return nil
}

// Sent returns a copy of every message handed to the stub.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.sent...)
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
