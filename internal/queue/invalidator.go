package queue

import (
	"context"
	"log/slog"
	"time"

	"bankpilot.app/concierge/common/logger"
)

// RegistryInvalidator is the slice of the entity registry the worker needs.
type RegistryInvalidator interface {
	Invalidate()
}

// Invalidator consumes catalog-change notifications and drops the registry
// cache so the next utterance resolves against fresh entities. One
// invalidation per batch is enough; the registry rebuilds lazily.
type Invalidator struct {
	consumer *RedisConsumer
	registry RegistryInvalidator

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewInvalidator(consumer *RedisConsumer, registry RegistryInvalidator) *Invalidator {
	return &Invalidator{
		consumer:  consumer,
		registry:  registry,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Invalidator) Run(ctx context.Context) {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "concierge.queue.invalidator",
	})

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "failed to read catalog notifications", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if len(messages) == 0 {
			continue
		}

		w.registry.Invalidate()
		slog.InfoContext(ctx, "registry invalidated",
			"notifications", len(messages),
			"first_event", messages[0].Event)

		for _, msg := range messages {
			if err := w.consumer.Ack(ctx, msg); err != nil {
				slog.WarnContext(ctx, "failed to ack notification",
					"message_id", msg.ID, "error", err)
			}
		}
	}
}

func (w *Invalidator) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}
