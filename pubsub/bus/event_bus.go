package bus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketing/entity"
)

// NewEventBus builds the publish side of the event catalog. The topic is
// derived from the payload type's Subject method, so an event can never be
// published under a subject that doesn't belong to it. Payloads outside the
// catalog are rejected.
func NewEventBus(pub message.Publisher) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			event, ok := params.Event.(entity.Event)
			if !ok {
				return "", fmt.Errorf("invalid event type: %T doesn't implement entity.Event", params.Event)
			}

			return string(event.Subject()), nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
	})
}
