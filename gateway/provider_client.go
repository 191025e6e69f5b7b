package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"ticketing/entity"
)

type ChargeRequest struct {
	Token  string       `json:"token"`
	Amount entity.Money `json:"amount"`
}

type ChargeResponse struct {
	ChargeID string `json:"charge_id"`
}

// PaymentsProviderClient talks to the external card processor. Charging is
// the only operation the payments service needs; refunds are handled by the
// provider's own dashboard.
type PaymentsProviderClient struct {
	addr   string
	client *http.Client
}

func NewPaymentsProviderClient(addr string) PaymentsProviderClient {
	return PaymentsProviderClient{
		addr: addr,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c PaymentsProviderClient) Charge(ctx context.Context, request ChargeRequest) (ChargeResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("could not marshal charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/charges", bytes.NewReader(body))
	if err != nil {
		return ChargeResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return ChargeResponse{}, fmt.Errorf("could not charge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return ChargeResponse{}, fmt.Errorf("unexpected status code while charging: %d", resp.StatusCode)
	}

	var response ChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return ChargeResponse{}, fmt.Errorf("could not decode charge response: %w", err)
	}

	return response, nil
}
