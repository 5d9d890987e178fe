package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/carepulse/internal/events"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// Mock implementations

type mockEmailSender struct {
	sent    []EmailMessage
	callErr error
}

func (m *mockEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if m.callErr != nil {
		return m.callErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockDirectory struct {
	contacts map[string]Contact
	err      error
}

func (m *mockDirectory) Contact(ctx context.Context, userID string) (Contact, error) {
	if m.err != nil {
		return Contact{}, m.err
	}
	c, ok := m.contacts[userID]
	if !ok {
		return Contact{}, store.ErrNotFound
	}
	return c, nil
}

type mockSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

var schedule = time.Date(2026, 11, 3, 15, 30, 0, 0, time.UTC)

func janeDirectory() *mockDirectory {
	return &mockDirectory{contacts: map[string]Contact{
		"user-1": {Name: "Jane Smith", Email: "jane@example.com"},
	}}
}

// Tests

func TestService_NotifyAppointmentRequested(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, janeDirectory(), nil, logging.Discard())

	err := svc.NotifyAppointmentRequested(context.Background(), events.AppointmentCreatedV1{
		AppointmentID:    "appt-1",
		UserID:           "user-1",
		PrimaryPhysician: "John Green",
		Schedule:         schedule,
		Reason:           "Annual check-up",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "jane@example.com" {
		t.Errorf("expected email to jane@example.com, got %s", msg.To)
	}
	if !strings.Contains(msg.Body, "Hi Jane") || !strings.Contains(msg.Body, "Dr. John Green") {
		t.Errorf("unexpected body: %s", msg.Body)
	}
	if !strings.Contains(msg.Body, "Tuesday, November 3, 2026 at 3:30 PM") {
		t.Errorf("expected formatted schedule in body: %s", msg.Body)
	}
	if msg.Category != "appointment_requested" || msg.Tags["appointment_id"] != "appt-1" {
		t.Errorf("unexpected category/tags: %q %v", msg.Category, msg.Tags)
	}
}

func TestService_NotifyStatusChanged_Scheduled(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, janeDirectory(), nil, logging.Discard())

	err := svc.NotifyAppointmentStatusChanged(context.Background(), events.AppointmentStatusChangedV1{
		AppointmentID:    "appt-1",
		UserID:           "user-1",
		Status:           "scheduled",
		PrimaryPhysician: "Leila Cameron",
		Schedule:         schedule,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.sent))
	}
	if sender.sent[0].Subject != "Your appointment is confirmed" {
		t.Errorf("unexpected subject %q", sender.sent[0].Subject)
	}
	if !strings.Contains(sender.sent[0].Body, "confirmed for Tuesday, November 3, 2026 at 3:30 PM with Dr. Leila Cameron") {
		t.Errorf("unexpected body: %s", sender.sent[0].Body)
	}
}

func TestService_NotifyStatusChanged_CancelledWithReason(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, janeDirectory(), nil, logging.Discard())

	err := svc.NotifyAppointmentStatusChanged(context.Background(), events.AppointmentStatusChangedV1{
		UserID:             "user-1",
		Status:             "cancelled",
		Schedule:           schedule,
		CancellationReason: "Physician unavailable",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.HasSuffix(sender.sent[0].Body, "Reason: Physician unavailable") {
		t.Errorf("unexpected body: %s", sender.sent[0].Body)
	}
}

func TestService_NotifyStatusChanged_UsesLocation(t *testing.T) {
	sender := &mockEmailSender{}
	loc := time.FixedZone("EST", -5*60*60)
	svc := NewService(sender, janeDirectory(), loc, logging.Discard())

	_ = svc.NotifyAppointmentStatusChanged(context.Background(), events.AppointmentStatusChangedV1{
		UserID:   "user-1",
		Status:   "scheduled",
		Schedule: schedule,
	})
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0].Body, "10:30 AM") {
		t.Fatalf("expected schedule rendered in EST, got %#v", sender.sent)
	}
}

func TestService_NotifyStatusChanged_PendingIgnored(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, janeDirectory(), nil, logging.Discard())

	err := svc.NotifyAppointmentStatusChanged(context.Background(), events.AppointmentStatusChangedV1{UserID: "user-1", Status: "pending"})
	if err != nil || len(sender.sent) != 0 {
		t.Fatalf("expected pending to be ignored, err=%v sent=%d", err, len(sender.sent))
	}
}

func TestService_UnknownUserSkipped(t *testing.T) {
	sender := &mockEmailSender{}
	svc := NewService(sender, janeDirectory(), nil, logging.Discard())

	err := svc.NotifyAppointmentRequested(context.Background(), events.AppointmentCreatedV1{UserID: "ghost"})
	if err != nil {
		t.Fatalf("expected missing contact to be skipped, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no email")
	}
}

func TestService_DirectoryError(t *testing.T) {
	svc := NewService(&mockEmailSender{}, &mockDirectory{err: errors.New("timeout")}, nil, logging.Discard())

	err := svc.NotifyAppointmentRequested(context.Background(), events.AppointmentCreatedV1{UserID: "user-1"})
	if err == nil || !strings.Contains(err.Error(), "notify: lookup contact") {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestService_EmailFailure(t *testing.T) {
	svc := NewService(&mockEmailSender{callErr: errors.New("smtp down")}, janeDirectory(), nil, logging.Discard())

	err := svc.NotifyAppointmentRequested(context.Background(), events.AppointmentCreatedV1{UserID: "user-1"})
	if err == nil {
		t.Fatal("expected send error")
	}
}

func TestService_NilSenderSkips(t *testing.T) {
	svc := NewService(nil, janeDirectory(), nil, logging.Discard())
	if err := svc.NotifyAppointmentRequested(context.Background(), events.AppointmentCreatedV1{UserID: "user-1"}); err != nil {
		t.Fatalf("expected nil sender to skip, got %v", err)
	}
}

func TestIdentityDirectory_Contact(t *testing.T) {
	identities := store.NewMemoryIdentityService()
	_, err := identities.Create(context.Background(), "user-9", "sam@example.com", "+15551234567", "Sam Lee")
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}

	contact, err := IdentityDirectory{Identities: identities}.Contact(context.Background(), "user-9")
	if err != nil {
		t.Fatalf("contact: %v", err)
	}
	if contact.Email != "sam@example.com" || contact.Name != "Sam Lee" {
		t.Fatalf("unexpected contact %#v", contact)
	}
}

func TestSESSender_Send(t *testing.T) {
	client := &mockSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "noreply@carepulse.test"}, logging.Discard())

	err := sender.Send(context.Background(), EmailMessage{
		To: "jane@example.com", Subject: "Hi", Body: "text", HTML: "<p>text</p>",
		Category: "appointment_scheduled",
		Tags:     map[string]string{"appointment_id": "appt:1"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := aws.ToString(client.input.FromEmailAddress); got != "CarePulse <noreply@carepulse.test>" {
		t.Errorf("unexpected from address %q", got)
	}
	if client.input.Content.Simple.Body.Html == nil || client.input.Content.Simple.Body.Text == nil {
		t.Error("expected both text and html bodies")
	}
	tags := map[string]string{}
	for _, tag := range client.input.EmailTags {
		tags[aws.ToString(tag.Name)] = aws.ToString(tag.Value)
	}
	if tags["category"] != "appointment_scheduled" || tags["appointment_id"] != "appt_1" {
		t.Errorf("unexpected SES tags %v", tags)
	}
	if client.input.ConfigurationSetName != nil {
		t.Error("expected no configuration set by default")
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&mockSES{err: errors.New("denied")}, SESConfig{}, logging.Discard())
	if err := sender.Send(context.Background(), EmailMessage{To: "x@example.com"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncate(strings.Repeat("a", 20), 10); got != "aaaaaaa..." {
		t.Errorf("unexpected %q", got)
	}
}
