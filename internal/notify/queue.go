package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/naryn-heritage/heritage-backend/internal/metrics"
	"github.com/sony/gobreaker"
)

type message struct {
	subject string
	body    string
	to      []string
}

// Queue moves email delivery off the request path. Notify never blocks and
// never fails: a full queue drops the message, and send errors are logged.
type Queue struct {
	sender  Sender
	ch      chan message
	retries uint64
	timeout time.Duration

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewQueue(sender Sender, size int) *Queue {
	return newQueue(sender, size, 2)
}

func newQueue(sender Sender, size int, retries uint64) *Queue {
	if size <= 0 {
		size = 100
	}
	q := &Queue{
		sender:  sender,
		ch:      make(chan message, size),
		retries: retries,
		timeout: 30 * time.Second,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) Notify(subject, body string, to []string) {
	if len(to) == 0 {
		return
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case q.ch <- message{subject: subject, body: body, to: to}:
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		slog.Warn("notification queue full, dropping message", "subject", subject)
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for m := range q.ch {
		q.deliver(m)
	}
}

func (q *Queue) deliver(m message) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	op := func() error {
		err := q.sender.Send(ctx, m.subject, m.body, m.to)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), q.retries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		slog.Warn("notification delivery failed", "subject", m.subject, "recipients", len(m.to), "error", err)
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discard is used when no SMTP relay is configured.
type Discard struct{}

func (Discard) Notify(subject, body string, to []string) {}
