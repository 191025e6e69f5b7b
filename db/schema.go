package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Each service owns its database. The tickets table appears in two schemas:
// as the primary store of the tickets service and as a replica in the orders
// service, mutated only by applying ticket events.

func InitializeTicketsSchema(db *sqlx.DB) error {
	return initialize(db, `
		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			price_amount NUMERIC(10, 2) NOT NULL,
			price_currency CHAR(3) NOT NULL,
			version INT NOT NULL,
			order_id UUID
		);
	`)
}

func InitializeOrdersSchema(db *sqlx.DB) error {
	return initialize(db, `
		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id UUID PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			price_amount NUMERIC(10, 2) NOT NULL,
			price_currency CHAR(3) NOT NULL,
			version INT NOT NULL,
			order_id UUID
		);

		CREATE TABLE IF NOT EXISTS orders (
			order_id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			ticket_id UUID NOT NULL,
			ticket_price_amount NUMERIC(10, 2) NOT NULL,
			ticket_price_currency CHAR(3) NOT NULL,
			version INT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS orders_ticket_id_idx ON orders (ticket_id);
	`)
}

func InitializePaymentsSchema(db *sqlx.DB) error {
	return initialize(db, `
		CREATE TABLE IF NOT EXISTS orders (
			order_id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			price_amount NUMERIC(10, 2) NOT NULL,
			price_currency CHAR(3) NOT NULL,
			version INT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS payments (
			payment_id UUID PRIMARY KEY,
			order_id UUID NOT NULL UNIQUE,
			provider_charge_id VARCHAR(255) NOT NULL
		);
	`)
}

func initialize(db *sqlx.DB, schema string) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}
	return nil
}
