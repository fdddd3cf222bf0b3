// Package notify holds the notification dispatchers wired into the attendance service.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/attendance"
	"github.com/JudeDesigns/attendance-sub000/internal/models"
)

// LogDispatcher writes each notification to the structured log. It is the default channel
// until a real transport is configured.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d *LogDispatcher) Send(ctx context.Context, event attendance.EventType, recipient models.User, payload map[string]any) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"event", string(event),
		"recipient_id", recipient.ID,
		"recipient_email", recipient.Email,
	}
	for k, v := range payload {
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.InfoContext(ctx, "notification", attrs...)
	return nil
}

// Async hands each notification to a goroutine so callers never wait on delivery. Delivery
// errors are logged.
type Async struct {
	next    attendance.Dispatcher
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next attendance.Dispatcher, logger *slog.Logger, timeout time.Duration) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, log: logger, timeout: timeout}
}

func (a *Async) Send(ctx context.Context, event attendance.EventType, recipient models.User, payload map[string]any) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Send(sendCtx, event, recipient, payload); err != nil {
			a.log.Error("notification delivery failed",
				"event", string(event), "recipient_id", recipient.ID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every in-flight notification has finished.
func (a *Async) Wait() { a.wg.Wait() }
