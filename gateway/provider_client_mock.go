package gateway

import (
	"context"
	"sync"

	"github.com/lithammer/shortuuid/v3"
)

type PaymentsProviderMock struct {
	mock    sync.Mutex
	Charges []ChargeRequest
}

func (c *PaymentsProviderMock) Charge(ctx context.Context, request ChargeRequest) (ChargeResponse, error) {
	c.mock.Lock()
	defer c.mock.Unlock()

	c.Charges = append(c.Charges, request)

	return ChargeResponse{ChargeID: "ch_" + shortuuid.New()}, nil
}
