package expiration

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ticketing/delayqueue"
	"ticketing/entity"
	"ticketing/http"
	"ticketing/pubsub"
	"ticketing/pubsub/bus"
)

const serviceName = "svc-expiration"

const queueKey = "expiration:orders"

func init() {
	log.Init(logrus.InfoLevel)
}

// Service turns order creation into a delayed expiration:complete event. It
// keeps no database; the delay queue lives in Redis and the orders service
// decides what the fired event means. Events are published straight to the
// broker since there is no transaction to anchor an outbox to.
type Service struct {
	watermillRouter *message.Router
	queue           *delayqueue.Queue
	eventBus        *cqrs.EventBus
	httpServer      *http.Server
}

func New(addr string, broker *pubsub.Broker) Service {
	if err := entity.ValidateCatalog(); err != nil {
		panic(fmt.Errorf("invalid event catalog: %w", err))
	}

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))
	publisher := pubsub.NewPublisher(broker, watermillLogger)

	eventBus, err := bus.NewEventBus(publisher)
	if err != nil {
		panic(fmt.Errorf("failed to create event bus: %w", err))
	}

	queue := delayqueue.New(broker.Client(), queueKey)

	eventHandlers := NewEventHandlers(queue)

	watermillRouter, err := pubsub.NewRouter(serviceName, broker, eventHandlers.Handlers(), watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create router: %w", err))
	}

	httpServer := http.NewServer(addr, serviceName, func(e *echo.Echo) {})

	return Service{
		watermillRouter: watermillRouter,
		queue:           queue,
		eventBus:        eventBus,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		return s.queue.Run(ctx, s.fireExpiration)
	})

	g.Go(func() error {
		<-s.watermillRouter.Running()
		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
