package payments

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ticketing/auth"
	"ticketing/db"
	dbOrders "ticketing/db/orders"
	dbPayments "ticketing/db/payments"
	"ticketing/entity"
	"ticketing/gateway"
	"ticketing/http"
	"ticketing/pubsub"
	"ticketing/pubsub/outbox"
)

const serviceName = "svc-payments"

func init() {
	log.Init(logrus.InfoLevel)
}

// PaymentsProvider charges the customer's card. The real implementation
// lives in gateway; tests plug in a mock.
type PaymentsProvider interface {
	Charge(ctx context.Context, request gateway.ChargeRequest) (gateway.ChargeResponse, error)
}

// Service owns Payment entities and keeps an Order replica so it can decide,
// without asking the orders service, whether an order may still be paid for.
type Service struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	forwarder       *outbox.Forwarder
	httpServer      *http.Server
}

func New(
	addr string,
	dbConn *sqlx.DB,
	broker *pubsub.Broker,
	provider PaymentsProvider,
	verifier auth.TokenVerifier,
) Service {
	if err := entity.ValidateCatalog(); err != nil {
		panic(fmt.Errorf("invalid event catalog: %w", err))
	}

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))
	publisher := pubsub.NewPublisher(broker, watermillLogger)

	repo := dbPayments.NewPostgresRepository(dbConn)
	orderReplica := dbOrders.NewOrderReplica(dbConn)

	eventHandlers := NewEventHandlers(orderReplica)

	watermillRouter, err := pubsub.NewRouter(serviceName, broker, eventHandlers.Handlers(), watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create router: %w", err))
	}

	fwd, err := outbox.NewForwarder(dbConn, publisher, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(addr, serviceName, registerRoutes(repo, orderReplica, provider, verifier))

	return Service{
		db:              dbConn,
		watermillRouter: watermillRouter,
		forwarder:       fwd,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializePaymentsSchema(s.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		return s.forwarder.Run(ctx)
	})

	g.Go(func() error {
		<-s.watermillRouter.Running()
		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
