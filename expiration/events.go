package expiration

import (
	"context"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/delayqueue"
	"ticketing/entity"
	"ticketing/metrics"
)

// EventHandlers schedules an expiration job for every created order. The job
// id is the order id; ZADD NX in the queue keeps the first deadline when the
// event is redelivered.
type EventHandlers struct {
	queue *delayqueue.Queue
}

func NewEventHandlers(queue *delayqueue.Queue) EventHandlers {
	return EventHandlers{queue: queue}
}

func (h EventHandlers) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.OrderCreatedHandler(),
	}
}

func (h EventHandlers) OrderCreatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ScheduleExpiration",
		func(ctx context.Context, event *entity.OrderCreated) error {
			if err := h.queue.Schedule(ctx, event.ID, event.ExpiresAt); err != nil {
				return err
			}

			metrics.ExpirationJobsScheduled.Inc()
			log.FromContext(ctx).
				WithField("order_id", event.ID).
				WithField("expires_at", event.ExpiresAt).
				Info("Expiration scheduled")
			return nil
		},
	)
}

// fireExpiration publishes expiration:complete for a due order. The queue
// removes the job only after this returns nil, so a crash between publish and
// removal re-publishes; the orders service tolerates the duplicate.
func (s Service) fireExpiration(ctx context.Context, orderID string) error {
	event := entity.ExpirationComplete{
		Header:  entity.NewEventHeader(),
		OrderID: orderID,
	}

	if err := s.eventBus.Publish(ctx, event); err != nil {
		return err
	}

	metrics.ExpirationJobsFired.Inc()
	log.FromContext(ctx).
		WithField("order_id", orderID).
		Info("Expiration fired")
	return nil
}
