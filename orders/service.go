package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ticketing/auth"
	"ticketing/db"
	dbOrders "ticketing/db/orders"
	dbTickets "ticketing/db/tickets"
	"ticketing/entity"
	"ticketing/http"
	"ticketing/pubsub"
	"ticketing/pubsub/outbox"
)

const serviceName = "svc-orders"

// ExpirationWindow is how long an unpaid order holds its ticket.
const ExpirationWindow = 15 * time.Minute

func init() {
	log.Init(logrus.InfoLevel)
}

// Service owns the Order entity and runs the order lifecycle: reservation on
// create, cancellation when the expiration delay fires first, completion when
// payment arrives first. All cross-service coordination happens through the
// event stream; the race between payment and expiration is settled by
// re-checking the stored status, never by timing.
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
	verifier auth.TokenVerifier,
) Service {
	if err := entity.ValidateCatalog(); err != nil {
		panic(fmt.Errorf("invalid event catalog: %w", err))
	}

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))
	publisher := pubsub.NewPublisher(broker, watermillLogger)

	repo := dbOrders.NewPostgresRepository(dbConn)
	ticketReplica := dbTickets.NewPostgresReplica(dbConn)

	eventHandlers := NewEventHandlers(repo, ticketReplica)

	watermillRouter, err := pubsub.NewRouter(serviceName, broker, eventHandlers.Handlers(), watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create router: %w", err))
	}

	fwd, err := outbox.NewForwarder(dbConn, publisher, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(addr, serviceName, registerRoutes(repo, ticketReplica, verifier))

	return Service{
		db:              dbConn,
		watermillRouter: watermillRouter,
		forwarder:       fwd,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeOrdersSchema(s.db); err != nil {
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
