package entity

import (
	"time"
)

// Every payload carries the entity's id and the version assigned by the
// owning service. Replicas use the version to apply updates in sequence
// regardless of delivery order.

type TicketCreated struct {
	Header  EventHeader `json:"header"`
	ID      string      `json:"id"`
	Version int         `json:"version"`
	Title   string      `json:"title"`
	Price   Money       `json:"price"`
}

func (TicketCreated) Subject() Subject { return SubjectTicketCreated }

type TicketUpdated struct {
	Header  EventHeader `json:"header"`
	ID      string      `json:"id"`
	Version int         `json:"version"`
	Title   string      `json:"title"`
	Price   Money       `json:"price"`
	OrderID *string     `json:"order_id"`
}

func (TicketUpdated) Subject() Subject { return SubjectTicketUpdated }

type OrderTicketSnapshot struct {
	ID    string `json:"id"`
	Price Money  `json:"price"`
}

type OrderCreated struct {
	Header    EventHeader         `json:"header"`
	ID        string              `json:"id"`
	Version   int                 `json:"version"`
	UserID    string              `json:"user_id"`
	Status    OrderStatus         `json:"status"`
	ExpiresAt time.Time           `json:"expires_at"`
	Ticket    OrderTicketSnapshot `json:"ticket"`
}

func (OrderCreated) Subject() Subject { return SubjectOrderCreated }

type OrderCancelled struct {
	Header   EventHeader `json:"header"`
	ID       string      `json:"id"`
	Version  int         `json:"version"`
	TicketID string      `json:"ticket_id"`
}

func (OrderCancelled) Subject() Subject { return SubjectOrderCancelled }

type OrderCompleted struct {
	Header  EventHeader `json:"header"`
	ID      string      `json:"id"`
	Version int         `json:"version"`
}

func (OrderCompleted) Subject() Subject { return SubjectOrderCompleted }

// ExpirationComplete is published by the expiration worker when an order's
// delay elapses. The worker does not know the order's current status; the
// orders service re-checks it on receipt.
type ExpirationComplete struct {
	Header  EventHeader `json:"header"`
	OrderID string      `json:"order_id"`
}

func (ExpirationComplete) Subject() Subject { return SubjectExpirationComplete }

type PaymentCreated struct {
	Header           EventHeader `json:"header"`
	ID               string      `json:"id"`
	OrderID          string      `json:"order_id"`
	ProviderChargeID string      `json:"provider_charge_id"`
}

func (PaymentCreated) Subject() Subject { return SubjectPaymentCreated }
