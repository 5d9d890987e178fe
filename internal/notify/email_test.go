package notify

import (
	"context"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/carepulse/pkg/logging"
)

func TestNewSendGridSender(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SendGridConfig
		wantNil  bool
		wantFrom string
	}{
		{"no api key", SendGridConfig{FromEmail: "care@example.com"}, true, ""},
		{"blank api key", SendGridConfig{APIKey: "  "}, true, ""},
		{"default from name", SendGridConfig{APIKey: "SG.key", FromEmail: "care@example.com"}, false, "CarePulse"},
		{"custom from name", SendGridConfig{APIKey: "SG.key", FromName: "Front Desk"}, false, "Front Desk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := NewSendGridSender(tt.cfg, logging.Discard())
			if tt.wantNil {
				if sender != nil {
					t.Fatalf("expected nil sender")
				}
				return
			}
			if sender == nil {
				t.Fatalf("expected sender")
			}
			if sender.fromName != tt.wantFrom || sender.from.Name != tt.wantFrom {
				t.Fatalf("expected from name %q, got %q", tt.wantFrom, sender.fromName)
			}
		})
	}
}

func TestSendGridSender_NilClient(t *testing.T) {
	var sender *SendGridSender
	if err := sender.Send(context.Background(), EmailMessage{To: "x@example.com"}); err == nil {
		t.Fatalf("expected error for unconfigured sender")
	}
}

func TestBuildSendGridMail(t *testing.T) {
	from := mail.NewEmail("CarePulse", "care@example.com")
	m := buildSendGridMail(from, EmailMessage{
		To:       "jane@example.com",
		ToName:   "Jane Doe",
		Subject:  "Your appointment is confirmed",
		Body:     "plain",
		Category: "appointment_scheduled",
		Tags:     map[string]string{"appointment_id": "appt-1"},
	})

	if m.Subject != "Your appointment is confirmed" {
		t.Fatalf("unexpected subject %q", m.Subject)
	}
	if len(m.Content) != 2 || m.Content[1].Value != "plain" {
		t.Fatalf("expected plain body reused as html, got %+v", m.Content)
	}
	if len(m.Categories) != 1 || m.Categories[0] != "appointment_scheduled" {
		t.Fatalf("unexpected categories %v", m.Categories)
	}
	if m.CustomArgs["appointment_id"] != "appt-1" {
		t.Fatalf("expected appointment_id custom arg, got %v", m.CustomArgs)
	}
	if got := m.Personalizations[0].To[0].Address; got != "jane@example.com" {
		t.Fatalf("unexpected recipient %q", got)
	}
}

func TestStubEmailSender_RecordsMessages(t *testing.T) {
	sender := NewStubEmailSender(logging.Discard())

	if err := sender.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "one"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	_ = sender.Send(context.Background(), EmailMessage{To: "b@example.com", Subject: "two"})

	sent := sender.Sent()
	if len(sent) != 2 || sent[1].Subject != "two" {
		t.Fatalf("unexpected sent messages %+v", sent)
	}
	sent[0].Subject = "mutated"
	if sender.Sent()[0].Subject != "one" {
		t.Fatalf("Sent must return a copy")
	}
}
