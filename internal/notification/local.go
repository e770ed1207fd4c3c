package notification

import (
	"context"
	"time"
)

// LocalNotifier dispatches in-process when no Pub/Sub project is configured.
type LocalNotifier struct {
	handler Handler
	timeout time.Duration
}

func NewLocalNotifier(handler Handler) *LocalNotifier {
	return &LocalNotifier{handler: handler, timeout: time.Minute}
}

func (n *LocalNotifier) Notify(_ context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		n.handler.Dispatch(ctx, e)
	}()
}

// InlineNotifier dispatches on the caller's goroutine. Used by one-shot
// commands that exit right after notifying.
type InlineNotifier struct {
	handler Handler
}

func NewInlineNotifier(handler Handler) *InlineNotifier {
	return &InlineNotifier{handler: handler}
}

func (n *InlineNotifier) Notify(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	n.handler.Dispatch(ctx, e)
}
