package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketing/entity"
)

// NewEventProcessorConfig builds the subscribe side for one service.
//
// The subscribe topic comes from the handler's event type, so a handler can
// only ever receive the subject its payload belongs to. The consumer group is
// prefixed with the service name: all replicas of a service share the group,
// so each message is delivered once per service and load-balanced across
// replicas. Unacked messages are redelivered, which is where the at-least-once
// guarantee comes from.
func NewEventProcessorConfig(
	serviceName string,
	broker *Broker,
	watermillLogger watermill.LoggerAdapter,
) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			handlerEvent := params.EventHandler.NewEvent()
			event, ok := handlerEvent.(entity.Event)
			if !ok {
				return "", fmt.Errorf("invalid event type: %T doesn't implement entity.Event", handlerEvent)
			}

			return string(event.Subject()), nil
		},
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        broker.Client(),
				ConsumerGroup: serviceName + "." + params.HandlerName,
			}, watermillLogger)
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: watermillLogger,
	}
}
