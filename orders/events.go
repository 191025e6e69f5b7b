package orders

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"ticketing/entity"
)

type OrderRepository interface {
	Cancel(ctx context.Context, orderID string) (entity.Order, error)
	Complete(ctx context.Context, orderID string) (entity.Order, error)
}

type TicketReplica interface {
	ApplyCreate(ctx context.Context, event entity.TicketCreated) error
	ApplyUpdate(ctx context.Context, event entity.TicketUpdated) error
}

// EventHandlers reacts to the event stream: ticket events keep the local
// replica current, expiration and payment events drive the order state
// machine. Handlers are idempotent because every event can be delivered more
// than once.
type EventHandlers struct {
	orders  OrderRepository
	tickets TicketReplica
}

func NewEventHandlers(orders OrderRepository, tickets TicketReplica) EventHandlers {
	return EventHandlers{orders: orders, tickets: tickets}
}

func (h EventHandlers) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.TicketCreatedHandler(),
		h.TicketUpdatedHandler(),
		h.ExpirationCompleteHandler(),
		h.PaymentCreatedHandler(),
	}
}

func (h EventHandlers) TicketCreatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"StoreTicketReplica",
		func(ctx context.Context, event *entity.TicketCreated) error {
			return h.tickets.ApplyCreate(ctx, *event)
		},
	)
}

func (h EventHandlers) TicketUpdatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"UpdateTicketReplica",
		func(ctx context.Context, event *entity.TicketUpdated) error {
			return h.tickets.ApplyUpdate(ctx, *event)
		},
	)
}

// ExpirationCompleteHandler resolves the payment-vs-expiration race. The
// expiration worker fires blindly; only the current stored status decides
// whether the order is cancelled. An order that was completed in the meantime
// stays completed.
func (h EventHandlers) ExpirationCompleteHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ExpireOrder",
		func(ctx context.Context, event *entity.ExpirationComplete) error {
			order, err := h.orders.Cancel(ctx, event.OrderID)
			if errors.Is(err, entity.ErrOrderFinalized) {
				log.FromContext(ctx).
					WithField("order_id", event.OrderID).
					WithField("status", order.Status).
					Info("Expiration fired for a finalized order, nothing to do")
				return nil
			}
			return err
		},
	)
}

func (h EventHandlers) PaymentCreatedHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"CompleteOrder",
		func(ctx context.Context, event *entity.PaymentCreated) error {
			_, err := h.orders.Complete(ctx, event.OrderID)
			if errors.Is(err, entity.ErrOrderCancelled) {
				// The payment raced the expiration and lost. The money was
				// taken for a cancelled order; this needs a refund, which is
				// out of this service's hands.
				log.FromContext(ctx).
					WithField("order_id", event.OrderID).
					WithField("payment_id", event.ID).
					Error("Payment received for a cancelled order")
				return nil
			}
			return err
		},
	)
}
