package orders

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

// OrderReplica is the order projection kept by the payments service. Same
// version discipline as the ticket replica: create inserts version 0
// idempotently, updates apply only in sequence, and non-applicable events are
// acked without effect.
type OrderReplica struct {
	db *sqlx.DB
}

func NewOrderReplica(db *sqlx.DB) *OrderReplica {
	return &OrderReplica{db: db}
}

type ReplicatedOrder struct {
	OrderID       string             `db:"order_id"`
	UserID        string             `db:"user_id"`
	Status        entity.OrderStatus `db:"status"`
	PriceAmount   string             `db:"price_amount"`
	PriceCurrency string             `db:"price_currency"`
	Version       int                `db:"version"`
}

func (o ReplicatedOrder) Price() entity.Money {
	return entity.Money{Amount: o.PriceAmount, Currency: o.PriceCurrency}
}

func (r *OrderReplica) ApplyCreate(ctx context.Context, event entity.OrderCreated) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, user_id, status, price_amount, price_currency, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING
	`, event.ID, event.UserID, event.Status, event.Ticket.Price.Amount, event.Ticket.Price.Currency, event.Version)
	if err != nil {
		return fmt.Errorf("could not insert order replica: %w", err)
	}
	return nil
}

func (r *OrderReplica) ApplyStatus(ctx context.Context, orderID string, version int, status entity.OrderStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, version = $3
		WHERE order_id = $1 AND version = $3 - 1
	`, orderID, status, version)
	if err != nil {
		return fmt.Errorf("could not update order replica: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 1 {
		return nil
	}

	var currentVersion int
	err = r.db.GetContext(ctx, &currentVersion, `
		SELECT version FROM orders WHERE order_id = $1
	`, orderID)

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"order_id":      orderID,
		"event_version": version,
	})

	switch {
	case errors.Is(err, sql.ErrNoRows):
		logger.Warn("Order update before create, waiting for redelivery of earlier versions")
	case err != nil:
		return fmt.Errorf("could not check order replica version: %w", err)
	case currentVersion >= version:
		logger.WithField("current_version", currentVersion).Debug("Skipping already applied order update")
	default:
		logger.WithField("current_version", currentVersion).Warn("Out-of-order order update, waiting for missing versions")
	}

	return nil
}

func (r *OrderReplica) FindByID(ctx context.Context, orderID string) (ReplicatedOrder, error) {
	var order ReplicatedOrder
	err := r.db.GetContext(ctx, &order, `
		SELECT order_id, user_id, status, price_amount, price_currency, version
		FROM orders
		WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return ReplicatedOrder{}, entity.ErrNotFound
	}
	if err != nil {
		return ReplicatedOrder{}, fmt.Errorf("could not get order replica: %w", err)
	}
	return order, nil
}
