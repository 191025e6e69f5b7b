package tickets

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ticketing/auth"
	"ticketing/db"
	dbTickets "ticketing/db/tickets"
	"ticketing/entity"
	"ticketing/http"
	"ticketing/pubsub"
	"ticketing/pubsub/outbox"
)

const serviceName = "svc-tickets"

func init() {
	log.Init(logrus.InfoLevel)
}

// Service owns the Ticket entity. Commands come in over HTTP; every mutation
// is versioned and announced on the event stream. The service also consumes
// ticket:updated so reservation changes made by the orders service land in
// the primary store through the same versioned protocol.
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

	repo := dbTickets.NewPostgresRepository(dbConn)
	replica := dbTickets.NewPostgresReplica(dbConn)

	watermillRouter, err := pubsub.NewRouter(serviceName, broker, []cqrs.EventHandler{
		cqrs.NewEventHandler(
			"ApplyTicketUpdated",
			func(ctx context.Context, event *entity.TicketUpdated) error {
				return replica.ApplyUpdate(ctx, *event)
			},
		),
	}, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create router: %w", err))
	}

	fwd, err := outbox.NewForwarder(dbConn, publisher, watermillLogger)
	if err != nil {
		panic(fmt.Errorf("failed to create outbox forwarder: %w", err))
	}

	httpServer := http.NewServer(addr, serviceName, registerRoutes(repo, verifier))

	return Service{
		db:              dbConn,
		watermillRouter: watermillRouter,
		forwarder:       fwd,
		httpServer:      httpServer,
	}
}

func (s Service) Run(ctx context.Context) error {
	if err := db.InitializeTicketsSchema(s.db); err != nil {
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
		// HTTP starts only once the router is ready, so the service is not
		// reported healthy before it can process events.
		<-s.watermillRouter.Running()
		return s.httpServer.Run(ctx)
	})

	return g.Wait()
}
