package tickets_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/db/tickets"
	"ticketing/entity"
)

func ticketCreated(ticketID string) entity.TicketCreated {
	return entity.TicketCreated{
		Header:  entity.NewEventHeader(),
		ID:      ticketID,
		Version: 0,
		Title:   "The Necks live",
		Price:   entity.Money{Amount: "50.00", Currency: "USD"},
	}
}

func ticketUpdated(ticketID string, version int, orderID *string) entity.TicketUpdated {
	return entity.TicketUpdated{
		Header:  entity.NewEventHeader(),
		ID:      ticketID,
		Version: version,
		Title:   "The Necks live",
		Price:   entity.Money{Amount: "50.00", Currency: "USD"},
		OrderID: orderID,
	}
}

func TestReplicaApplyCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	replica := tickets.NewPostgresReplica(dbConn)
	ticketID := uuid.NewString()

	require.NoError(t, replica.ApplyCreate(ctx, ticketCreated(ticketID)))
	require.NoError(t, replica.ApplyCreate(ctx, ticketCreated(ticketID)))

	ticket, err := replica.FindByID(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, 0, ticket.Version)
}

func TestReplicaAppliesUpdatesInSequence(t *testing.T) {
	ctx := context.Background()
	replica := tickets.NewPostgresReplica(dbConn)
	ticketID := uuid.NewString()
	orderID := uuid.NewString()

	require.NoError(t, replica.ApplyCreate(ctx, ticketCreated(ticketID)))

	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 1, &orderID)))

	ticket, err := replica.FindByID(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Version)
	require.NotNil(t, ticket.OrderID)
	assert.Equal(t, orderID, *ticket.OrderID)
}

func TestReplicaSkipsDuplicateUpdate(t *testing.T) {
	ctx := context.Background()
	replica := tickets.NewPostgresReplica(dbConn)
	ticketID := uuid.NewString()
	orderID := uuid.NewString()

	require.NoError(t, replica.ApplyCreate(ctx, ticketCreated(ticketID)))
	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 1, &orderID)))

	// redelivery of an already applied version is acked without effect
	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 1, nil)))

	ticket, err := replica.FindByID(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.Version)
	require.NotNil(t, ticket.OrderID)
}

func TestReplicaSkipsGappedUpdateUntilRedelivery(t *testing.T) {
	ctx := context.Background()
	replica := tickets.NewPostgresReplica(dbConn)
	ticketID := uuid.NewString()
	orderID := uuid.NewString()

	require.NoError(t, replica.ApplyCreate(ctx, ticketCreated(ticketID)))

	// version 2 arrives before version 1 and must not apply
	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 2, nil)))

	ticket, err := replica.FindByID(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, 0, ticket.Version)

	// once version 1 lands the redelivered version 2 applies
	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 1, &orderID)))
	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 2, nil)))

	ticket, err = replica.FindByID(ctx, ticketID)
	require.NoError(t, err)
	assert.Equal(t, 2, ticket.Version)
	assert.Nil(t, ticket.OrderID)
}

func TestReplicaUpdateBeforeCreateIsAcked(t *testing.T) {
	ctx := context.Background()
	replica := tickets.NewPostgresReplica(dbConn)
	ticketID := uuid.NewString()

	require.NoError(t, replica.ApplyUpdate(ctx, ticketUpdated(ticketID, 1, nil)))

	_, err := replica.FindByID(ctx, ticketID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
