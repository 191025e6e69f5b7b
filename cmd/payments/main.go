package main

import (
	"context"
	"os"
	"os/signal"

	"ticketing/auth"
	"ticketing/db"
	"ticketing/gateway"
	"ticketing/payments"
	"ticketing/pubsub"
	"ticketing/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tp := tracing.ConfigureTraceProvider("svc-payments", os.Getenv("JAEGER_ENDPOINT"))
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

	provider := gateway.NewPaymentsProviderClient(os.Getenv("PAYMENTS_PROVIDER_ADDR"))
	verifier := auth.NewTokenVerifier(os.Getenv("JWT_SECRET"))

	addr := ":" + os.Getenv("PORT")

	err = payments.New(addr, dbConn, broker, provider, verifier).Run(ctx)
	if err != nil {
		panic(err)
	}
}
