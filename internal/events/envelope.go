// Package events defines versioned appointment events and their transport.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wolfman30/carepulse/internal/actor"
)

// Source identifies this service on every envelope.
const Source = "carepulse.api"

// CanonicalEvent is a versioned payload. EventType must end in ".v<N>".
type CanonicalEvent interface {
	EventType() string
}

// Envelope is the wire shape consumers receive. Data holds the event payload.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	Source        string          `json:"source"`
	Subject       string          `json:"subject"`
	Actor         string          `json:"actor"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}

// EnvelopeOption overrides generated envelope metadata.
type EnvelopeOption func(*Envelope)

// WithEventID fixes the envelope id; used for idempotent replays and tests.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.ID = id.String()
		}
	}
}

func WithOccurredAt(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if !ts.IsZero() {
			e.OccurredAt = ts.UTC()
		}
	}
}

var (
	ErrMissingSubject = errors.New("events: subject is required")
	ErrNilEvent       = errors.New("events: event is required")
	ErrEventType      = errors.New("events: event type must look like name.v<N>")

	eventTypeRe = regexp.MustCompile(`^[a-z][a-z_]*(\.[a-z][a-z_]*)*\.v([1-9][0-9]*)$`)
	nowFunc     = time.Now
)

// NewEnvelope wraps evt for subject ("appointment:<id>"). The acting subject
// and chi request id are taken from ctx.
func NewEnvelope(ctx context.Context, subject string, evt CanonicalEvent, opts ...EnvelopeOption) (Envelope, error) {
	if subject == "" {
		return Envelope{}, ErrMissingSubject
	}
	if evt == nil {
		return Envelope{}, ErrNilEvent
	}
	m := eventTypeRe.FindStringSubmatch(evt.EventType())
	if m == nil {
		return Envelope{}, fmt.Errorf("%w: %q", ErrEventType, evt.EventType())
	}
	version, _ := strconv.Atoi(m[2])

	data, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", m[0], err)
	}
	env := Envelope{
		ID:            uuid.NewString(),
		Type:          m[0],
		Version:       version,
		Source:        Source,
		Subject:       subject,
		Actor:         actor.Subject(ctx),
		CorrelationID: chimw.GetReqID(ctx),
		OccurredAt:    nowFunc().UTC(),
		Data:          data,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}
