package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketing/db"
	"ticketing/entity"
	"ticketing/pubsub/outbox"
)

// PostgresRepository is the primary ticket store of the tickets service.
// Every mutation bumps the version and publishes the matching event through
// the outbox in the same transaction.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, ticket entity.Ticket) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO tickets (ticket_id, title, price_amount, price_currency, version, order_id)
			VALUES (:ticket_id, :title, :price_amount, :price_currency, 0, NULL)
			ON CONFLICT (ticket_id) DO NOTHING
		`, ticket)
		if err != nil {
			return fmt.Errorf("could not insert ticket: %w", err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			// already exists, nothing to announce
			return nil
		}

		return outbox.PublishInTx(ctx, tx, entity.TicketCreated{
			Header:  entity.NewEventHeader(),
			ID:      ticket.TicketID,
			Version: 0,
			Title:   ticket.Title,
			Price:   ticket.Price(),
		})
	})
}

// UpdateByID applies updateFn to the current ticket, bumps the version and
// publishes ticket:updated, all in one transaction. The version condition on
// the save protects against a concurrent writer sneaking in between read and
// write.
func (r *PostgresRepository) UpdateByID(
	ctx context.Context,
	ticketID string,
	updateFn func(ticket entity.Ticket) (entity.Ticket, error),
) (entity.Ticket, error) {
	var updated entity.Ticket

	err := db.UpdateInTx(ctx, r.db, sql.LevelRepeatableRead, func(ctx context.Context, tx *sqlx.Tx) error {
		var current entity.Ticket
		err := tx.GetContext(ctx, &current, `
			SELECT ticket_id, title, price_amount, price_currency, version, order_id
			FROM tickets
			WHERE ticket_id = $1
			FOR UPDATE
		`, ticketID)
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not get ticket: %w", err)
		}

		updated, err = updateFn(current)
		if err != nil {
			return err
		}

		updated.Version = current.Version + 1

		res, err := tx.ExecContext(ctx, `
			UPDATE tickets
			SET title = $2, price_amount = $3, price_currency = $4, order_id = $5, version = $6
			WHERE ticket_id = $1 AND version = $6 - 1
		`, updated.TicketID, updated.Title, updated.PriceAmount, updated.PriceCurrency, updated.OrderID, updated.Version)
		if err != nil {
			return fmt.Errorf("could not update ticket: %w", err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return fmt.Errorf("concurrent modification of ticket %s", ticketID)
		}

		return outbox.PublishInTx(ctx, tx, entity.TicketUpdated{
			Header:  entity.NewEventHeader(),
			ID:      updated.TicketID,
			Version: updated.Version,
			Title:   updated.Title,
			Price:   updated.Price(),
			OrderID: updated.OrderID,
		})
	})
	if err != nil {
		return entity.Ticket{}, err
	}

	return updated, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, ticketID string) (entity.Ticket, error) {
	return findByID(ctx, r.db, ticketID)
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, title, price_amount, price_currency, version, order_id
		FROM tickets
		ORDER BY ticket_id
	`)
	return tickets, err
}

func findByID(ctx context.Context, q sqlx.QueryerContext, ticketID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := sqlx.GetContext(ctx, q, &ticket, `
		SELECT ticket_id, title, price_amount, price_currency, version, order_id
		FROM tickets
		WHERE ticket_id = $1
	`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get ticket: %w", err)
	}
	return ticket, nil
}
