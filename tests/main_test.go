package tests

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"ticketing/db"
)

var (
	startedContainers = make([]testcontainers.Container, 0)

	redisAddr string

	// each service owns its database
	ticketsPostgresURL  string
	ordersPostgresURL   string
	paymentsPostgresURL string
)

func TestMain(m *testing.M) {
	var code int
	defer func() {
		if r := recover(); r != nil {
			code = 1
			teardown(&code)
		}
	}()
	setup()
	defer teardown(&code)
	code = m.Run()
}

func setup() {
	fmt.Printf("\033[1;33m%s\033[0m", "> Setup redis container\n")
	redisContainer, addr := db.StartRedisContainer()
	redisAddr = addr
	startedContainers = append(startedContainers, redisContainer)

	for _, target := range []*string{&ticketsPostgresURL, &ordersPostgresURL, &paymentsPostgresURL} {
		fmt.Printf("\033[1;33m%s\033[0m", "> Setup postgres container\n")
		postgresContainer, connStr := db.StartPostgresContainer()
		*target = connStr
		startedContainers = append(startedContainers, postgresContainer)
	}

	fmt.Printf("\033[1;33m%s\033[0m", "> Setup completed\n")
}

func teardown(i *int) {
	ctx := context.Background()
	for _, container := range startedContainers {
		if err := container.Terminate(ctx); err != nil {
			fmt.Printf("\033[1;31m%s\033[0m", "> Teardown failed\n")
		}
	}

	fmt.Printf("\033[1;33m%s\033[0m", "> Teardown completed\n")

	os.Exit(*i)
}
