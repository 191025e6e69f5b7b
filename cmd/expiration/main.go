package main

import (
	"context"
	"os"
	"os/signal"

	"ticketing/expiration"
	"ticketing/pubsub"
	"ticketing/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	tp := tracing.ConfigureTraceProvider("svc-expiration", os.Getenv("JAEGER_ENDPOINT"))
	if tp != nil {
		defer tp.Shutdown(context.Background())
	}

	broker, err := pubsub.Connect(ctx, os.Getenv("REDIS_ADDR"))
	if err != nil {
		panic(err)
	}
	defer broker.Close()

	addr := ":" + os.Getenv("PORT")

	err = expiration.New(addr, broker).Run(ctx)
	if err != nil {
		panic(err)
	}
}
