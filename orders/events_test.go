package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/entity"
)

type orderRepositoryFake struct {
	lock   sync.Mutex
	orders map[string]entity.Order
}

func newOrderRepositoryFake(orders ...entity.Order) *orderRepositoryFake {
	fake := &orderRepositoryFake{orders: map[string]entity.Order{}}
	for _, order := range orders {
		fake.orders[order.OrderID] = order
	}
	return fake
}

func (f *orderRepositoryFake) Cancel(ctx context.Context, orderID string) (entity.Order, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return entity.Order{}, entity.ErrNotFound
	}
	if order.Status.Terminal() {
		return order, entity.ErrOrderFinalized
	}

	order.Status = entity.OrderStatusCancelled
	order.Version++
	f.orders[orderID] = order
	return order, nil
}

func (f *orderRepositoryFake) Complete(ctx context.Context, orderID string) (entity.Order, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	order, ok := f.orders[orderID]
	if !ok {
		return entity.Order{}, entity.ErrNotFound
	}
	switch order.Status {
	case entity.OrderStatusCancelled:
		return order, entity.ErrOrderCancelled
	case entity.OrderStatusCompleted:
		return order, nil
	}

	order.Status = entity.OrderStatusCompleted
	order.Version++
	f.orders[orderID] = order
	return order, nil
}

type ticketReplicaFake struct{}

func (ticketReplicaFake) ApplyCreate(ctx context.Context, event entity.TicketCreated) error {
	return nil
}

func (ticketReplicaFake) ApplyUpdate(ctx context.Context, event entity.TicketUpdated) error {
	return nil
}

func expirationComplete(orderID string) *entity.ExpirationComplete {
	return &entity.ExpirationComplete{
		Header:  entity.NewEventHeader(),
		OrderID: orderID,
	}
}

func paymentCreated(orderID string) *entity.PaymentCreated {
	return &entity.PaymentCreated{
		Header:  entity.NewEventHeader(),
		ID:      "payment-1",
		OrderID: orderID,
	}
}

func TestExpireOrderCancelsCreatedOrder(t *testing.T) {
	repo := newOrderRepositoryFake(entity.Order{OrderID: "order-1", Status: entity.OrderStatusCreated})
	handlers := NewEventHandlers(repo, ticketReplicaFake{})

	err := handlers.ExpirationCompleteHandler().Handle(context.Background(), expirationComplete("order-1"))
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCancelled, repo.orders["order-1"].Status)
}

func TestExpireOrderAcksCompletedOrder(t *testing.T) {
	repo := newOrderRepositoryFake(entity.Order{OrderID: "order-1", Status: entity.OrderStatusCompleted})
	handlers := NewEventHandlers(repo, ticketReplicaFake{})

	// the delay fired after payment; the event must be acked without a transition
	err := handlers.ExpirationCompleteHandler().Handle(context.Background(), expirationComplete("order-1"))
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCompleted, repo.orders["order-1"].Status)
}

func TestExpireOrderPropagatesUnknownOrder(t *testing.T) {
	handlers := NewEventHandlers(newOrderRepositoryFake(), ticketReplicaFake{})

	// the order replica may lag; an error leaves the event unacked for redelivery
	err := handlers.ExpirationCompleteHandler().Handle(context.Background(), expirationComplete("order-1"))
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestPaymentCompletesOrder(t *testing.T) {
	repo := newOrderRepositoryFake(entity.Order{OrderID: "order-1", Status: entity.OrderStatusCreated})
	handlers := NewEventHandlers(repo, ticketReplicaFake{})

	err := handlers.PaymentCreatedHandler().Handle(context.Background(), paymentCreated("order-1"))
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCompleted, repo.orders["order-1"].Status)
}

func TestPaymentForCancelledOrderIsAcked(t *testing.T) {
	repo := newOrderRepositoryFake(entity.Order{OrderID: "order-1", Status: entity.OrderStatusCancelled})
	handlers := NewEventHandlers(repo, ticketReplicaFake{})

	// the money was taken for a dead order; logged, never retried
	err := handlers.PaymentCreatedHandler().Handle(context.Background(), paymentCreated("order-1"))
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCancelled, repo.orders["order-1"].Status)
}
