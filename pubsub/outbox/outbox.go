package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"

	"ticketing/entity"
	"ticketing/pubsub/bus"
)

const topic = "events_to_forward"

// NewPublisherForTx returns a publisher that stores events in the outbox
// table within the given transaction. The events become visible to the
// forwarder only when the transaction commits, so an entity change and the
// events announcing it are durable together or not at all.
func NewPublisherForTx(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	watermillLogger := log.NewWatermill(log.FromContext(ctx))

	var publisher message.Publisher
	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		watermillLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	return forwarder.NewPublisher(publisher, forwarder.PublisherConfig{
		ForwarderTopic: topic,
	}), nil
}

// PublishInTx stores catalog events in the outbox within tx. They are
// published to the broker by the forwarder after the transaction commits.
func PublishInTx(ctx context.Context, tx *sqlx.Tx, events ...entity.Event) error {
	publisher, err := NewPublisherForTx(ctx, tx)
	if err != nil {
		return err
	}

	eventBus, err := bus.NewEventBus(publisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	for _, event := range events {
		if err := eventBus.Publish(ctx, event); err != nil {
			return fmt.Errorf("could not publish %s to outbox: %w", event.Subject(), err)
		}
	}

	return nil
}

// InitializeSchema creates the outbox tables without starting a forwarder.
func InitializeSchema(db *sqlx.DB, watermillLogger watermill.LoggerAdapter) error {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		watermillLogger,
	)
	if err != nil {
		return fmt.Errorf("could not create outbox subscriber: %w", err)
	}

	if err := subscriber.SubscribeInitialize(topic); err != nil {
		return fmt.Errorf("could not initialize outbox schema: %w", err)
	}

	return subscriber.Close()
}

// Forwarder moves committed outbox rows to the broker. It runs alongside the
// service's router and keeps retrying until each row is published, so a crash
// between commit and publish delays delivery instead of losing it.
type Forwarder struct {
	fwd *forwarder.Forwarder
}

func NewForwarder(
	db *sqlx.DB,
	publisher message.Publisher,
	watermillLogger watermill.LoggerAdapter,
) (*Forwarder, error) {
	subscriber, err := watermillSQL.NewSubscriber(
		db,
		watermillSQL.SubscriberConfig{
			SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
		},
		watermillLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox subscriber: %w", err)
	}

	if err := subscriber.SubscribeInitialize(topic); err != nil {
		return nil, fmt.Errorf("could not initialize outbox schema: %w", err)
	}

	fwd, err := forwarder.NewForwarder(subscriber, publisher, watermillLogger, forwarder.Config{
		ForwarderTopic: topic,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create forwarder: %w", err)
	}

	return &Forwarder{fwd: fwd}, nil
}

func (f *Forwarder) Run(ctx context.Context) error {
	return f.fwd.Run(ctx)
}

func (f *Forwarder) Running() chan struct{} {
	return f.fwd.Running()
}
