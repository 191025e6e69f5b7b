package orders_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ticketing/db"
	"ticketing/pubsub/outbox"
)

var dbConn *sqlx.DB

func TestMain(m *testing.M) {
	postgresContainer, connStr := db.StartPostgresContainer()

	var err error
	dbConn, err = sqlx.Open("postgres", connStr)
	if err != nil {
		panic(err)
	}

	if err := db.InitializeOrdersSchema(dbConn); err != nil {
		panic(err)
	}
	if err := outbox.InitializeSchema(dbConn, watermill.NopLogger{}); err != nil {
		panic(err)
	}

	code := m.Run()

	_ = dbConn.Close()
	if err := postgresContainer.Terminate(context.Background()); err != nil {
		fmt.Println("could not terminate postgres container:", err)
	}

	os.Exit(code)
}
