package pubsub

import (
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"

	"ticketing/tracing"
)

// NewPublisher returns the broker-side publisher. Publish blocks until the
// broker acknowledges the append to the stream, so a nil error means the
// event is durably stored. There is no retry here: callers decide what a
// failed publish means for them.
func NewPublisher(broker *Broker, watermillLogger watermill.LoggerAdapter) message.Publisher {
	var publisher message.Publisher
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: broker.Client(),
	}, watermillLogger)
	if err != nil {
		panic(err)
	}

	publisher = log.CorrelationPublisherDecorator{Publisher: publisher}
	publisher = tracing.PublisherDecorator{Publisher: publisher}
	return publisher
}
