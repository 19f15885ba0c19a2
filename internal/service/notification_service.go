package service

import (
	"context"
	"sync"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"

	"github.com/rs/zerolog"
)

// NotificationService implements ports.Notifier. Every event is logged, then
// handed to each sink on its own goroutine. Delivery never blocks or fails
// the operation that produced the event.
type NotificationService struct {
	sinks   []ports.EventSink
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewNotificationService creates a notifier fanning out to sinks.
func NewNotificationService(timeout time.Duration, log zerolog.Logger, sinks ...ports.EventSink) *NotificationService {
	return &NotificationService{
		sinks:   sinks,
		timeout: timeout,
		log:     log,
	}
}

// Notify implements ports.Notifier.
func (n *NotificationService) Notify(ctx context.Context, event domain.Event) {
	logEvent := n.log.Info().
		Str("event_id", event.ID.String()).
		Str("event_type", string(event.Type)).
		Str("vault_id", event.VaultID.String())
	if event.ApprovalID != nil {
		logEvent = logEvent.Str("approval_id", event.ApprovalID.String())
	}
	if event.ActorID != "" {
		logEvent = logEvent.Str("actor_id", event.ActorID)
	}
	logEvent.Msg("event")

	// Delivery outlives the request that triggered it.
	base := context.WithoutCancel(ctx)
	for _, sink := range n.sinks {
		n.wg.Add(1)
		go func(sink ports.EventSink) {
			defer n.wg.Done()
			sinkCtx, cancel := context.WithTimeout(base, n.timeout)
			defer cancel()
			if err := sink.Publish(sinkCtx, event); err != nil {
				n.log.Warn().Err(err).
					Str("sink", sink.Name()).
					Str("event_id", event.ID.String()).
					Str("event_type", string(event.Type)).
					Msg("event delivery failed")
			}
		}(sink)
	}
}

// Wait blocks until in-flight deliveries finish. Called on shutdown.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}
