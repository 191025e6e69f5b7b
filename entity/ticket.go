package entity

// Ticket is owned by the tickets service. Every other service that needs it
// keeps a replica updated from ticket:created and ticket:updated events.
//
// OrderID is a derived field: it is set and cleared by the orders service
// through the same versioned event protocol as every other change.
type Ticket struct {
	TicketID      string  `json:"ticket_id" db:"ticket_id"`
	Title         string  `json:"title" db:"title"`
	PriceAmount   string  `json:"price_amount" db:"price_amount"`
	PriceCurrency string  `json:"price_currency" db:"price_currency"`
	Version       int     `json:"version" db:"version"`
	OrderID       *string `json:"order_id" db:"order_id"`
}

func (t Ticket) Price() Money {
	return Money{Amount: t.PriceAmount, Currency: t.PriceCurrency}
}

// Reserved reports whether the ticket is currently held by an order.
func (t Ticket) Reserved() bool {
	return t.OrderID != nil
}
