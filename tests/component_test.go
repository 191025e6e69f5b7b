package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ticketing/auth"
	"ticketing/expiration"
	"ticketing/gateway"
	"ticketing/orders"
	"ticketing/payments"
	"ticketing/pubsub"
	"ticketing/tickets"
)

const (
	jwtSecret = "component-test-secret"

	ticketsAddr    = "http://localhost:8091"
	ordersAddr     = "http://localhost:8092"
	paymentsAddr   = "http://localhost:8093"
	expirationAddr = "http://localhost:8094"
)

type moneyPayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type ticketPayload struct {
	TicketID string       `json:"id"`
	Title    string       `json:"title"`
	Price    moneyPayload `json:"price"`
}

type orderPayload struct {
	OrderID string `json:"id"`
	Status  string `json:"status"`
	Ticket  struct {
		TicketID string       `json:"id"`
		Price    moneyPayload `json:"price"`
	} `json:"ticket"`
}

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)

	ctx, cancel := context.WithCancel(context.Background())

	providerMock := &gateway.PaymentsProviderMock{}
	verifier := auth.NewTokenVerifier(jwtSecret)

	services := []func(ctx context.Context) error{
		startService(t, ticketsPostgresURL, func(dbConn *sqlx.DB, broker *pubsub.Broker) runner {
			return tickets.New(":8091", dbConn, broker, verifier)
		}),
		startService(t, ordersPostgresURL, func(dbConn *sqlx.DB, broker *pubsub.Broker) runner {
			return orders.New(":8092", dbConn, broker, verifier)
		}),
		startService(t, paymentsPostgresURL, func(dbConn *sqlx.DB, broker *pubsub.Broker) runner {
			return payments.New(":8093", dbConn, broker, providerMock, verifier)
		}),
	}

	expirationBroker, err := pubsub.Connect(ctx, redisAddr)
	require.NoError(t, err)
	defer expirationBroker.Close()
	services = append(services, expiration.New(":8094", expirationBroker).Run)

	finished := make(chan struct{}, len(services))
	for _, run := range services {
		run := run
		go func() {
			assert.NoError(t, run(ctx))
			finished <- struct{}{}
		}()
	}

	defer func() {
		cancel()
		for range services {
			<-finished
		}
	}()

	for _, addr := range []string{ticketsAddr, ordersAddr, paymentsAddr, expirationAddr} {
		waitForHTTPServer(t, addr)
	}

	token := signToken(t, "alice")

	t.Run("order and pay", func(t *testing.T) {
		ticket := createTicket(t, token, "Jazz night")

		order := createOrderEventually(t, token, ticket.TicketID)
		assert.Equal(t, "created", order.Status)
		assert.Equal(t, ticket.Price, order.Ticket.Price)

		// the ticket is held: a second order is rejected
		status, _ := postJSON(t, token, ordersAddr+"/orders", map[string]any{"ticket_id": ticket.TicketID})
		assert.Equal(t, http.StatusBadRequest, status)

		payForOrderEventually(t, token, order.OrderID)

		assert.Eventually(t, func() bool {
			return getOrder(t, token, order.OrderID).Status == "completed"
		}, 20*time.Second, 100*time.Millisecond)

		require.NotEmpty(t, providerMock.Charges)
		charge := providerMock.Charges[len(providerMock.Charges)-1]
		assert.Equal(t, ticket.Price.Amount, charge.Amount.Amount)
		assert.Equal(t, ticket.Price.Currency, charge.Amount.Currency)
	})

	t.Run("cancel releases the ticket", func(t *testing.T) {
		ticket := createTicket(t, token, "Open mic")

		order := createOrderEventually(t, token, ticket.TicketID)

		status, body := deleteOrder(t, token, order.OrderID)
		require.Equal(t, http.StatusOK, status, string(body))

		assert.Equal(t, "cancelled", getOrder(t, token, order.OrderID).Status)

		// the released ticket can be ordered again
		reordered := createOrderEventually(t, token, ticket.TicketID)
		assert.NotEqual(t, order.OrderID, reordered.OrderID)
	})

	t.Run("requests without a token are rejected", func(t *testing.T) {
		status, _ := postJSON(t, "", ticketsAddr+"/tickets", map[string]any{
			"title": "Nope",
			"price": moneyPayload{Amount: "1.00", Currency: "USD"},
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}

type runner interface {
	Run(ctx context.Context) error
}

func startService(t *testing.T, postgresURL string, build func(dbConn *sqlx.DB, broker *pubsub.Broker) runner) func(ctx context.Context) error {
	t.Helper()

	dbConn, err := sqlx.Open("postgres", postgresURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbConn.Close() })

	broker, err := pubsub.Connect(context.Background(), redisAddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = broker.Close() })

	return build(dbConn, broker).Run
}

func signToken(t *testing.T, userID string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    userID,
		"email": userID + "@example.com",
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return token
}

func createTicket(t *testing.T, token, title string) ticketPayload {
	t.Helper()

	status, body := postJSON(t, token, ticketsAddr+"/tickets", map[string]any{
		"title": title,
		"price": moneyPayload{Amount: "50.00", Currency: "USD"},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var ticket ticketPayload
	require.NoError(t, json.Unmarshal(body, &ticket))
	return ticket
}

// createOrderEventually retries until the ticket replica of the orders service
// has caught up with the ticket events.
func createOrderEventually(t *testing.T, token, ticketID string) orderPayload {
	t.Helper()

	var order orderPayload
	require.EventuallyWithT(t, func(collectT *assert.CollectT) {
		status, body := postJSON(t, token, ordersAddr+"/orders", map[string]any{"ticket_id": ticketID})
		if !assert.Equal(collectT, http.StatusCreated, status, string(body)) {
			return
		}
		assert.NoError(collectT, json.Unmarshal(body, &order))
	}, 20*time.Second, 100*time.Millisecond)

	return order
}

// payForOrderEventually retries until the order replica of the payments
// service has caught up with order:created.
func payForOrderEventually(t *testing.T, token, orderID string) {
	t.Helper()

	require.EventuallyWithT(t, func(collectT *assert.CollectT) {
		status, body := postJSON(t, token, paymentsAddr+"/payments", map[string]any{
			"order_id": orderID,
			"token":    "tok_visa",
		})
		assert.Equal(collectT, http.StatusCreated, status, string(body))
	}, 20*time.Second, 100*time.Millisecond)
}

func getOrder(t *testing.T, token, orderID string) orderPayload {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ordersAddr+"/orders/"+orderID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var order orderPayload
	require.NoError(t, json.Unmarshal(body, &order))
	return order
}

func deleteOrder(t *testing.T, token, orderID string) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, ordersAddr+"/orders/"+orderID, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func postJSON(t *testing.T, token, url string, payload any) (int, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

func waitForHTTPServer(t *testing.T, addr string) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(addr + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, fmt.Sprintf("API not ready, http status: %d", resp.StatusCode))
		},
		time.Second*20,
		time.Millisecond*50,
	)
}
