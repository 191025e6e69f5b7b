package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subject is a broker topic name. The set of subjects is closed: every event
// payload in the catalog maps to exactly one subject, and both publishing and
// subscribing derive the topic from the payload type, never from a free-form
// string.
type Subject string

const (
	SubjectTicketCreated      Subject = "ticket:created"
	SubjectTicketUpdated      Subject = "ticket:updated"
	SubjectOrderCreated       Subject = "order:created"
	SubjectOrderCancelled     Subject = "order:cancelled"
	SubjectOrderCompleted     Subject = "order:completed"
	SubjectExpirationComplete Subject = "expiration:complete"
	SubjectPaymentCreated     Subject = "payment:created"
)

// Event is implemented by every payload in the catalog.
type Event interface {
	Subject() Subject
}

type EventHeader struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

// Catalog returns one zero value per known event type.
func Catalog() []Event {
	return []Event{
		TicketCreated{},
		TicketUpdated{},
		OrderCreated{},
		OrderCancelled{},
		OrderCompleted{},
		ExpirationComplete{},
		PaymentCreated{},
	}
}

// ValidateCatalog checks that every subject is claimed by exactly one payload
// type. Run at service startup so a subject/payload mismatch fails fast
// instead of silently routing events to the wrong place.
func ValidateCatalog() error {
	claimed := map[Subject]Event{}
	for _, event := range Catalog() {
		subject := event.Subject()
		if subject == "" {
			return fmt.Errorf("event %T has an empty subject", event)
		}
		if other, ok := claimed[subject]; ok {
			return fmt.Errorf("subject %q is claimed by both %T and %T", subject, other, event)
		}
		claimed[subject] = event
	}
	return nil
}
