package payments

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/entity"
)

type OrderReplica interface {
	ApplyCreate(ctx context.Context, event entity.OrderCreated) error
	ApplyStatus(ctx context.Context, orderID string, version int, status entity.OrderStatus) error
}

// EventHandlers maintains the order replica from the orders service's event
// stream.
type EventHandlers struct {
	orders OrderReplica
}

func NewEventHandlers(orders OrderReplica) EventHandlers {
	return EventHandlers{orders: orders}
}

func (h EventHandlers) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.OrderCreatedHandler(),
		h.OrderCancelledHandler(),
		h.OrderCompletedHandler(),
	}
}

func (h EventHandlers) OrderCreatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"StoreOrderReplica",
		func(ctx context.Context, event *entity.OrderCreated) error {
			return h.orders.ApplyCreate(ctx, *event)
		},
	)
}

func (h EventHandlers) OrderCancelledHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"MarkOrderCancelled",
		func(ctx context.Context, event *entity.OrderCancelled) error {
			return h.orders.ApplyStatus(ctx, event.ID, event.Version, entity.OrderStatusCancelled)
		},
	)
}

func (h EventHandlers) OrderCompletedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"MarkOrderCompleted",
		func(ctx context.Context, event *entity.OrderCompleted) error {
			return h.orders.ApplyStatus(ctx, event.ID, event.Version, entity.OrderStatusCompleted)
		},
	)
}
