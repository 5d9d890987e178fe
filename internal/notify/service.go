package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/wolfman30/carepulse/internal/events"
	"github.com/wolfman30/carepulse/internal/store"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// Contact is who an appointment notification goes to.
type Contact struct {
	Name  string
	Email string
}

// ContactDirectory resolves the account that owns an appointment.
type ContactDirectory interface {
	Contact(ctx context.Context, userID string) (Contact, error)
}

// IdentityDirectory resolves contacts through the identity service.
type IdentityDirectory struct {
	Identities store.IdentityService
}

func (d IdentityDirectory) Contact(ctx context.Context, userID string) (Contact, error) {
	user, err := d.Identities.Get(ctx, userID)
	if err != nil {
		return Contact{}, err
	}
	return Contact{Name: user.Name, Email: user.Email}, nil
}

// Service sends appointment notifications to patients.
type Service struct {
	email     EmailSender
	directory ContactDirectory
	location  *time.Location
	logger    *logging.Logger
}

// NewService creates a notification service. A nil location means UTC.
func NewService(email EmailSender, directory ContactDirectory, location *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		email:     email,
		directory: directory,
		location:  location,
		logger:    logger,
	}
}

// NotifyAppointmentRequested confirms receipt of a new appointment request.
func (s *Service) NotifyAppointmentRequested(ctx context.Context, evt events.AppointmentCreatedV1) error {
	contact, ok, err := s.lookup(ctx, evt.UserID)
	if !ok {
		return err
	}

	when := s.formatSchedule(evt.Schedule)
	body := fmt.Sprintf("Hi %s,\n\nWe received your appointment request with Dr. %s for %s.\nReason: %s\n\nWe will be in touch shortly to confirm.\n\nCarePulse",
		firstName(contact.Name), evt.PrimaryPhysician, when, truncate(evt.Reason, 200))
	htmlBody := fmt.Sprintf("<p>Hi %s,</p><p>We received your appointment request with <strong>Dr. %s</strong> for <strong>%s</strong>.</p><p>Reason: %s</p><p>We will be in touch shortly to confirm.</p>",
		html.EscapeString(firstName(contact.Name)), html.EscapeString(evt.PrimaryPhysician), when, html.EscapeString(truncate(evt.Reason, 200)))

	return s.send(ctx, EmailMessage{
		To:      contact.Email,
		ToName:  contact.Name,
		Subject:  "We received your appointment request",
		Body:     body,
		HTML:     htmlBody,
		Category: "appointment_requested",
	}, evt.AppointmentID)
}

// NotifyAppointmentStatusChanged tells the patient their appointment was
// scheduled or cancelled. Other statuses are ignored.
func (s *Service) NotifyAppointmentStatusChanged(ctx context.Context, evt events.AppointmentStatusChangedV1) error {
	var subject, body string
	when := s.formatSchedule(evt.Schedule)
	category := "appointment_" + evt.Status
	switch evt.Status {
	case "scheduled":
		subject = "Your appointment is confirmed"
		body = fmt.Sprintf("Greetings from CarePulse. Your appointment is confirmed for %s with Dr. %s.", when, evt.PrimaryPhysician)
	case "cancelled":
		subject = "Your appointment was cancelled"
		body = fmt.Sprintf("We regret to inform you that your appointment for %s is cancelled.", when)
		if evt.CancellationReason != "" {
			body += " Reason: " + truncate(evt.CancellationReason, 200)
		}
	default:
		s.logger.Debug("notify: no template for status", "status", evt.Status, "appointment_id", evt.AppointmentID)
		return nil
	}

	contact, ok, err := s.lookup(ctx, evt.UserID)
	if !ok {
		return err
	}
	return s.send(ctx, EmailMessage{
		To:      contact.Email,
		ToName:  contact.Name,
		Subject:  subject,
		Body:     body,
		HTML:     "<p>" + html.EscapeString(body) + "</p>",
		Category: category,
	}, evt.AppointmentID)
}

// lookup reports ok=false when the notification should be skipped; err is
// set only for real failures.
func (s *Service) lookup(ctx context.Context, userID string) (Contact, bool, error) {
	if s.email == nil || s.directory == nil {
		s.logger.Debug("notify: email not configured, skipping notification")
		return Contact{}, false, nil
	}
	contact, err := s.directory.Contact(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("notify: no contact for user", "user_id", userID)
			return Contact{}, false, nil
		}
		return Contact{}, false, fmt.Errorf("notify: lookup contact: %w", err)
	}
	if strings.TrimSpace(contact.Email) == "" {
		return Contact{}, false, nil
	}
	return contact, true, nil
}

func (s *Service) send(ctx context.Context, msg EmailMessage, appointmentID string) error {
	msg.Tags = map[string]string{"appointment_id": appointmentID}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send appointment email", "error", err, "appointment_id", appointmentID)
		return fmt.Errorf("notify: send email: %w", err)
	}
	return nil
}

func (s *Service) formatSchedule(t time.Time) string {
	return t.In(s.location).Format("Monday, January 2, 2006 at 3:04 PM")
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
