package main

import (
	"context"
	"os"
	"os/signal"

	"ticketing/auth"
	"ticketing/db"
	"ticketing/pubsub"
	"ticketing/tickets"
	"ticketing/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tp := tracing.ConfigureTraceProvider("svc-tickets", os.Getenv("JAEGER_ENDPOINT"))
	if tp != nil {
		defer tp.Shutdown(context.Background())
	}

	dbConn, err := db.Connect(os.Getenv("POSTGRES_URL"))
	if err != nil {
		panic(err)
	}
	defer dbConn.Close()

	broker, err := pubsub.Connect(ctx, os.Getenv("REDIS_ADDR"))
	if err != nil {
		panic(err)
	}
	defer broker.Close()

	verifier := auth.NewTokenVerifier(os.Getenv("JWT_SECRET"))

	addr := ":" + os.Getenv("PORT")

	err = tickets.New(addr, dbConn, broker, verifier).Run(ctx)
	if err != nil {
		panic(err)
	}
}
