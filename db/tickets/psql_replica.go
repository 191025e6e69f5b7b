package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"ticketing/entity"
)

// PostgresReplica is the ticket projection kept by services that don't own
// tickets. It is mutated only by applying ticket events, in version order:
//
//   - a create inserts version 0 and is a no-op when the row already exists;
//   - an update applies only when its version is exactly the stored
//     version + 1. Anything older is a duplicate, anything newer arrived out
//     of order and is dropped until redelivery fills the gap.
//
// Non-applicable events are not failures: the handler returns nil so the
// message is acked either way.
type PostgresReplica struct {
	db *sqlx.DB
}

func NewPostgresReplica(db *sqlx.DB) *PostgresReplica {
	return &PostgresReplica{db: db}
}

func (r *PostgresReplica) ApplyCreate(ctx context.Context, event entity.TicketCreated) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tickets (ticket_id, title, price_amount, price_currency, version, order_id)
		VALUES ($1, $2, $3, $4, $5, NULL)
		ON CONFLICT (ticket_id) DO NOTHING
	`, event.ID, event.Title, event.Price.Amount, event.Price.Currency, event.Version)
	if err != nil {
		return fmt.Errorf("could not insert ticket replica: %w", err)
	}
	return nil
}

func (r *PostgresReplica) ApplyUpdate(ctx context.Context, event entity.TicketUpdated) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET title = $2, price_amount = $3, price_currency = $4, order_id = $5, version = $6
		WHERE ticket_id = $1 AND version = $6 - 1
	`, event.ID, event.Title, event.Price.Amount, event.Price.Currency, event.OrderID, event.Version)
	if err != nil {
		return fmt.Errorf("could not update ticket replica: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 1 {
		return nil
	}

	// Not applicable: either a duplicate of an already applied version or a
	// version from the future. Log which one so gaps are visible.
	var currentVersion int
	err = r.db.GetContext(ctx, &currentVersion, `
		SELECT version FROM tickets WHERE ticket_id = $1
	`, event.ID)

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"ticket_id":     event.ID,
		"event_version": event.Version,
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		logger.Warn("Ticket update before create, waiting for redelivery of earlier versions")
	case err != nil:
		return fmt.Errorf("could not check ticket replica version: %w", err)
	case currentVersion >= event.Version:
		logger.WithField("current_version", currentVersion).Debug("Skipping already applied ticket update")
	default:
		logger.WithField("current_version", currentVersion).Warn("Out-of-order ticket update, waiting for missing versions")
	}

	return nil
}

func (r *PostgresReplica) FindByID(ctx context.Context, ticketID string) (entity.Ticket, error) {
	return findByID(ctx, r.db, ticketID)
}
