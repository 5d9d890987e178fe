package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/carepulse/pkg/logging"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	sent     []EmailMessage
	calls    int
}

func (f *flakySender) Send(_ context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *flakySender) snapshot() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, len(f.sent)
}

// immediate runs retries synchronously so tests need no sleeps.
func immediate(_ time.Duration, f func()) { f() }

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	sender := &flakySender{failures: 2}
	d := NewDispatcher(sender, logging.Discard())
	d.after = immediate

	if err := d.Send(context.Background(), EmailMessage{To: "jane@example.com", Subject: "Confirmed"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	for i := 0; i < 3; i++ {
		select {
		case item := <-d.queue:
			d.deliver(context.Background(), item)
		default:
			t.Fatalf("expected queued message on round %d", i)
		}
	}

	calls, sent := sender.snapshot()
	if calls != 3 || sent != 1 {
		t.Fatalf("expected 3 calls and 1 delivery, got %d/%d", calls, sent)
	}
	if len(d.queue) != 0 {
		t.Fatalf("expected empty queue")
	}
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	sender := &flakySender{failures: 10}
	d := NewDispatcher(sender, logging.Discard()).WithMaxAttempts(2)
	d.after = immediate

	_ = d.Send(context.Background(), EmailMessage{To: "jane@example.com"})
	for len(d.queue) > 0 {
		d.deliver(context.Background(), <-d.queue)
	}

	if calls, sent := sender.snapshot(); calls != 2 || sent != 0 {
		t.Fatalf("expected 2 attempts and no delivery, got %d/%d", calls, sent)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(&flakySender{}, logging.Discard()).WithQueueSize(1)

	if err := d.Send(context.Background(), EmailMessage{To: "a@example.com"}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := d.Send(context.Background(), EmailMessage{To: "b@example.com"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcherNextDelay(t *testing.T) {
	d := NewDispatcher(nil, logging.Discard()).WithBaseDelay(time.Second)
	d.maxDelay = 5 * time.Second

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := d.nextDelay(i + 1); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestDispatcherRunDeliversAndStops(t *testing.T) {
	sender := &flakySender{}
	d := NewDispatcher(sender, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	_ = d.Send(ctx, EmailMessage{To: "jane@example.com"})
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, sent := sender.snapshot(); sent == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message was not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
