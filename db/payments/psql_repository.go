package payments

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

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add stores the payment and publishes payment:created in one transaction.
// The unique constraint on order_id makes a second payment for the same order
// a no-op, so a redelivered charge confirmation doesn't publish twice.
func (r *PostgresRepository) Add(ctx context.Context, payment entity.Payment) error {
	return db.UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO payments (payment_id, order_id, provider_charge_id)
			VALUES (:payment_id, :order_id, :provider_charge_id)
			ON CONFLICT (order_id) DO NOTHING
		`, payment)
		if err != nil {
			return fmt.Errorf("could not insert payment: %w", err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return nil
		}

		return outbox.PublishInTx(ctx, tx, entity.PaymentCreated{
			Header:           entity.NewEventHeader(),
			ID:               payment.PaymentID,
			OrderID:          payment.OrderID,
			ProviderChargeID: payment.ProviderChargeID,
		})
	})
}

func (r *PostgresRepository) FindByOrderID(ctx context.Context, orderID string) (entity.Payment, error) {
	var payment entity.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT payment_id, order_id, provider_charge_id
		FROM payments
		WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Payment{}, entity.ErrNotFound
	}
	if err != nil {
		return entity.Payment{}, fmt.Errorf("could not get payment: %w", err)
	}
	return payment, nil
}
