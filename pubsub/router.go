package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewRouter builds the dispatch loop shared by all services: the router
// receives messages, invokes the matching handler and acks on a nil return.
// A non-nil return leaves the message unacked so the broker redelivers it.
func NewRouter(
	serviceName string,
	broker *Broker,
	handlers []cqrs.EventHandler,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	useMiddlewares(router, watermillLogger)

	if len(handlers) == 0 {
		return router, nil
	}

	eventProcessorConfig := NewEventProcessorConfig(serviceName, broker, watermillLogger)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	if err := eventProcessor.AddHandlers(handlers...); err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}

	return router, nil
}
