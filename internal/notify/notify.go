// Package notify fans snapshot changes out to interested parties: the log,
// configured webhooks, and the browser push bridge.
package notify

import (
	"context"
	"log"
	"time"

	"convosense.local/dashboard/internal/orchestrator"
)

type Subscriber interface {
	Name() string
	Handle(context.Context, orchestrator.Snapshot) error
}

// Notifier delivers each snapshot to every subscriber concurrently, with a
// small bounded retry per subscriber. Delivery is best-effort: a dead
// webhook never slows the session down.
type Notifier struct {
	logger       *log.Logger
	subscribers  []Subscriber
	retryCount   int
	retryBackoff time.Duration
}

func New(logger *log.Logger, subs []Subscriber) *Notifier {
	return &Notifier{
		logger:       logger,
		subscribers:  subs,
		retryCount:   3,
		retryBackoff: 150 * time.Millisecond,
	}
}

func (n *Notifier) Publish(ctx context.Context, snapshot orchestrator.Snapshot) {
	for _, sub := range n.subscribers {
		s := sub
		go n.publishOne(ctx, s, snapshot)
	}
}

func (n *Notifier) publishOne(ctx context.Context, sub Subscriber, snapshot orchestrator.Snapshot) {
	for attempt := 1; attempt <= n.retryCount; attempt++ {
		err := sub.Handle(ctx, snapshot)
		if err == nil {
			return
		}

		n.logger.Printf("subscriber=%s session_id=%s attempt=%d err=%v", sub.Name(), snapshot.Session.ID, attempt, err)
		if attempt == n.retryCount {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(n.retryBackoff):
		}
	}
}
