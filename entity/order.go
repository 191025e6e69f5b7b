package entity

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusCompleted OrderStatus = "completed"
)

// Terminal reports whether the status can never change again.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusCompleted
}

// Active reports whether the order still holds its ticket reservation.
// Completed orders keep the reservation forever.
func (s OrderStatus) Active() bool {
	return s == OrderStatusCreated || s == OrderStatusCompleted
}

type Order struct {
	OrderID             string      `json:"order_id" db:"order_id"`
	UserID              string      `json:"user_id" db:"user_id"`
	Status              OrderStatus `json:"status" db:"status"`
	ExpiresAt           time.Time   `json:"expires_at" db:"expires_at"`
	TicketID            string      `json:"ticket_id" db:"ticket_id"`
	TicketPriceAmount   string      `json:"ticket_price_amount" db:"ticket_price_amount"`
	TicketPriceCurrency string      `json:"ticket_price_currency" db:"ticket_price_currency"`
	Version             int         `json:"version" db:"version"`
}

func (o Order) TicketPrice() Money {
	return Money{Amount: o.TicketPriceAmount, Currency: o.TicketPriceCurrency}
}
