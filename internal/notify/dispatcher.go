package notify

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/carepulse/internal/compliance"
	"github.com/wolfman30/carepulse/pkg/logging"
)

// ErrQueueFull is returned by Dispatcher.Send when the backlog is at capacity.
var ErrQueueFull = errors.New("notify: email queue full")

type queuedEmail struct {
	msg      EmailMessage
	attempts int
}

// Dispatcher delivers e-mail in the background so appointment requests never
// wait on the provider. Failed sends are retried with exponential backoff
// until maxAttempts.
type Dispatcher struct {
	sender      EmailSender
	queue       chan queuedEmail
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	after       func(time.Duration, func())
}

// NewDispatcher wraps sender. Call Run to start delivering.
func NewDispatcher(sender EmailSender, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		sender:      sender,
		queue:       make(chan queuedEmail, 256),
		logger:      logger,
		maxAttempts: 5,
		baseDelay:   2 * time.Second,
		maxDelay:    5 * time.Minute,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

func (d *Dispatcher) WithMaxAttempts(n int) *Dispatcher {
	if n > 0 {
		d.maxAttempts = n
	}
	return d
}

func (d *Dispatcher) WithBaseDelay(delay time.Duration) *Dispatcher {
	if delay > 0 {
		d.baseDelay = delay
	}
	return d
}

// WithQueueSize replaces the backlog. Call before Run.
func (d *Dispatcher) WithQueueSize(n int) *Dispatcher {
	if n > 0 {
		d.queue = make(chan queuedEmail, n)
	}
	return d
}

// Send enqueues msg. It never blocks on the provider.
func (d *Dispatcher) Send(_ context.Context, msg EmailMessage) error {
	if !d.enqueue(queuedEmail{msg: msg}) {
		return ErrQueueFull
	}
	return nil
}

// Run delivers queued messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if pending := len(d.queue); pending > 0 {
				d.logger.Warn("email dispatcher stopped with pending messages", "pending", pending)
			}
			return
		case item := <-d.queue:
			d.deliver(ctx, item)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, item queuedEmail) {
	if d.sender == nil {
		return
	}
	err := d.sender.Send(ctx, item.msg)
	if err == nil {
		return
	}
	item.attempts++
	if item.attempts >= d.maxAttempts {
		d.logger.Error("email delivery abandoned",
			"error", err,
			"to", compliance.MaskEmail(item.msg.To),
			"attempts", item.attempts,
		)
		return
	}
	delay := d.nextDelay(item.attempts)
	d.logger.Warn("email delivery failed; retrying",
		"error", err,
		"to", compliance.MaskEmail(item.msg.To),
		"attempt", item.attempts,
		"retry_in", delay.String(),
	)
	d.after(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if !d.enqueue(item) {
			d.logger.Error("email retry dropped; queue full", "to", compliance.MaskEmail(item.msg.To))
		}
	})
}

func (d *Dispatcher) enqueue(item queuedEmail) bool {
	select {
	case d.queue <- item:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) nextDelay(attempts int) time.Duration {
	delay := d.baseDelay * time.Duration(1<<(attempts-1))
	if delay > d.maxDelay || delay <= 0 {
		delay = d.maxDelay
	}
	return delay
}

var _ EmailSender = (*Dispatcher)(nil)
