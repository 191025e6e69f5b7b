package orders

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

// PostgresRepository is the primary order store of the orders service. Order
// transitions and the events announcing them are committed in one
// transaction; the ticket replica's reservation field is maintained in the
// same transaction so a crash can't leave the two out of sync.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create reserves the ticket for the order. It fails with ErrTicketReserved
// when another order with status created or completed already references the
// ticket: at most one active order may hold a ticket at any time. On success
// the ticket replica's order_id is set, its version bumped, and
// order:created plus ticket:updated are published through the outbox.
func (r *PostgresRepository) Create(ctx context.Context, order entity.Order) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var ticket entity.Ticket
		err := tx.GetContext(ctx, &ticket, `
			SELECT ticket_id, title, price_amount, price_currency, version, order_id
			FROM tickets
			WHERE ticket_id = $1
			FOR UPDATE
		`, order.TicketID)
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not get ticket: %w", err)
		}

		var activeOrders int
		err = tx.GetContext(ctx, &activeOrders, `
			SELECT COUNT(*) FROM orders
			WHERE ticket_id = $1 AND status IN ($2, $3)
		`, order.TicketID, entity.OrderStatusCreated, entity.OrderStatusCompleted)
		if err != nil {
			return fmt.Errorf("could not check ticket reservation: %w", err)
		}
		if activeOrders > 0 {
			return entity.ErrTicketReserved
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO orders (order_id, user_id, status, expires_at, ticket_id, ticket_price_amount, ticket_price_currency, version)
			VALUES (:order_id, :user_id, :status, :expires_at, :ticket_id, :ticket_price_amount, :ticket_price_currency, 0)
		`, order)
		if err != nil {
			return fmt.Errorf("could not insert order: %w", err)
		}

		var ticketVersion int
		err = tx.GetContext(ctx, &ticketVersion, `
			UPDATE tickets
			SET order_id = $2, version = version + 1
			WHERE ticket_id = $1
			RETURNING version
		`, order.TicketID, order.OrderID)
		if err != nil {
			return fmt.Errorf("could not reserve ticket: %w", err)
		}

		return outbox.PublishInTx(ctx, tx,
			entity.OrderCreated{
				Header:    entity.NewEventHeader(),
				ID:        order.OrderID,
				Version:   0,
				UserID:    order.UserID,
				Status:    entity.OrderStatusCreated,
				ExpiresAt: order.ExpiresAt,
				Ticket: entity.OrderTicketSnapshot{
					ID:    ticket.TicketID,
					Price: ticket.Price(),
				},
			},
			entity.TicketUpdated{
				Header:  entity.NewEventHeader(),
				ID:      ticket.TicketID,
				Version: ticketVersion,
				Title:   ticket.Title,
				Price:   ticket.Price(),
				OrderID: &order.OrderID,
			},
		)
	})
}

// Cancel moves the order to cancelled and releases the ticket. The caller
// gets ErrOrderFinalized when the order already reached a terminal status;
// deciding whether that is an error or a no-op is the caller's business (it
// is a 400 for a user cancelling twice, and a plain no-op when the
// expiration delay fires after payment).
func (r *PostgresRepository) Cancel(ctx context.Context, orderID string) (entity.Order, error) {
	var cancelled entity.Order

	err := db.UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		order, err := getForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if order.Status.Terminal() {
			cancelled = order
			return entity.ErrOrderFinalized
		}

		order.Status = entity.OrderStatusCancelled
		order.Version++
		if err := saveStatus(ctx, tx, order); err != nil {
			return err
		}

		events := []entity.Event{
			entity.OrderCancelled{
				Header:   entity.NewEventHeader(),
				ID:       order.OrderID,
				Version:  order.Version,
				TicketID: order.TicketID,
			},
		}

		released, err := releaseTicket(ctx, tx, order)
		if err != nil {
			return err
		}
		if released != nil {
			events = append(events, *released)
		}

		cancelled = order
		return outbox.PublishInTx(ctx, tx, events...)
	})

	return cancelled, err
}

// Complete marks the order paid. Completing a cancelled order fails with
// ErrOrderCancelled; completing twice is a no-op.
func (r *PostgresRepository) Complete(ctx context.Context, orderID string) (entity.Order, error) {
	var completed entity.Order

	err := db.UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		order, err := getForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}

		switch order.Status {
		case entity.OrderStatusCancelled:
			completed = order
			return entity.ErrOrderCancelled
		case entity.OrderStatusCompleted:
			completed = order
			return nil
		}

		order.Status = entity.OrderStatusCompleted
		order.Version++
		if err := saveStatus(ctx, tx, order); err != nil {
			return err
		}

		completed = order
		return outbox.PublishInTx(ctx, tx, entity.OrderCompleted{
			Header:  entity.NewEventHeader(),
			ID:      order.OrderID,
			Version: order.Version,
		})
	})

	return completed, err
}

func (r *PostgresRepository) FindByID(ctx context.Context, orderID string) (entity.Order, error) {
	var order entity.Order
	err := r.db.GetContext(ctx, &order, `
		SELECT order_id, user_id, status, expires_at, ticket_id, ticket_price_amount, ticket_price_currency, version
		FROM orders
		WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order: %w", err)
	}
	return order, nil
}

func (r *PostgresRepository) FindAllForUser(ctx context.Context, userID string) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT order_id, user_id, status, expires_at, ticket_id, ticket_price_amount, ticket_price_currency, version
		FROM orders
		WHERE user_id = $1
		ORDER BY expires_at
	`, userID)
	return orders, err
}

func getForUpdate(ctx context.Context, tx *sqlx.Tx, orderID string) (entity.Order, error) {
	var order entity.Order
	err := tx.GetContext(ctx, &order, `
		SELECT order_id, user_id, status, expires_at, ticket_id, ticket_price_amount, ticket_price_currency, version
		FROM orders
		WHERE order_id = $1
		FOR UPDATE
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("could not get order: %w", err)
	}
	return order, nil
}

func saveStatus(ctx context.Context, tx *sqlx.Tx, order entity.Order) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, version = $3
		WHERE order_id = $1 AND version = $3 - 1
	`, order.OrderID, order.Status, order.Version)
	if err != nil {
		return fmt.Errorf("could not update order: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("concurrent modification of order %s", order.OrderID)
	}

	return nil
}

// releaseTicket clears the replica's reservation if this order still holds
// it, bumping the ticket version. Returns the resulting ticket:updated event
// or nil when the reservation already belonged to someone else.
func releaseTicket(ctx context.Context, tx *sqlx.Tx, order entity.Order) (*entity.TicketUpdated, error) {
	var ticket entity.Ticket
	err := tx.GetContext(ctx, &ticket, `
		UPDATE tickets
		SET order_id = NULL, version = version + 1
		WHERE ticket_id = $1 AND order_id = $2
		RETURNING ticket_id, title, price_amount, price_currency, version, order_id
	`, order.TicketID, order.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not release ticket: %w", err)
	}

	return &entity.TicketUpdated{
		Header:  entity.NewEventHeader(),
		ID:      ticket.TicketID,
		Version: ticket.Version,
		Title:   ticket.Title,
		Price:   ticket.Price(),
		OrderID: nil,
	}, nil
}
