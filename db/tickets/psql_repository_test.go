package tickets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/db/tickets"
	"ticketing/entity"
)

func outboxMessageCount(t *testing.T) int {
	t.Helper()

	var count int
	err := dbConn.Get(&count, `SELECT COUNT(*) FROM "watermill_events_to_forward"`)
	require.NoError(t, err)
	return count
}

func TestRepositoryAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewPostgresRepository(dbConn)

	ticket := entity.Ticket{
		TicketID:      uuid.NewString(),
		Title:         "GoDays workshop",
		PriceAmount:   "120.00",
		PriceCurrency: "EUR",
	}

	require.NoError(t, repo.Add(ctx, ticket))
	published := outboxMessageCount(t)

	// a redelivered command must not publish a second ticket:created
	require.NoError(t, repo.Add(ctx, ticket))
	assert.Equal(t, published, outboxMessageCount(t))

	stored, err := repo.FindByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Version)
	assert.Equal(t, ticket.Title, stored.Title)
}

func TestRepositoryUpdateByIDBumpsVersion(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewPostgresRepository(dbConn)

	ticket := entity.Ticket{
		TicketID:      uuid.NewString(),
		Title:         "Old title",
		PriceAmount:   "10.00",
		PriceCurrency: "USD",
	}
	require.NoError(t, repo.Add(ctx, ticket))

	updated, err := repo.UpdateByID(ctx, ticket.TicketID, func(t entity.Ticket) (entity.Ticket, error) {
		t.Title = "New title"
		return t, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, "New title", updated.Title)

	stored, err := repo.FindByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestRepositoryUpdateByIDPropagatesError(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewPostgresRepository(dbConn)

	ticket := entity.Ticket{
		TicketID:      uuid.NewString(),
		Title:         "Untouchable",
		PriceAmount:   "10.00",
		PriceCurrency: "USD",
	}
	require.NoError(t, repo.Add(ctx, ticket))

	rejected := errors.New("rejected")
	_, err := repo.UpdateByID(ctx, ticket.TicketID, func(t entity.Ticket) (entity.Ticket, error) {
		return entity.Ticket{}, rejected
	})
	require.ErrorIs(t, err, rejected)

	stored, err := repo.FindByID(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Version)
	assert.Equal(t, "Untouchable", stored.Title)
}

func TestRepositoryUpdateByIDNotFound(t *testing.T) {
	repo := tickets.NewPostgresRepository(dbConn)

	_, err := repo.UpdateByID(context.Background(), uuid.NewString(), func(t entity.Ticket) (entity.Ticket, error) {
		return t, nil
	})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
