package payments

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"ticketing/auth"
	dbOrders "ticketing/db/orders"
	dbPayments "ticketing/db/payments"
	"ticketing/entity"
	"ticketing/gateway"
)

type postPaymentRequest struct {
	OrderID string `json:"order_id"`
	Token   string `json:"token"`
}

type paymentResponse struct {
	PaymentID string `json:"id"`
	OrderID   string `json:"order_id"`
}

func registerRoutes(
	repo *dbPayments.PostgresRepository,
	orders *dbOrders.OrderReplica,
	provider PaymentsProvider,
	verifier auth.TokenVerifier,
) func(e *echo.Echo) {
	return func(e *echo.Echo) {
		e.Use(auth.Middleware(verifier))

		h := handlers{repo: repo, orders: orders, provider: provider}
		e.POST("/payments", h.PostPayment)
	}
}

type handlers struct {
	repo     *dbPayments.PostgresRepository
	orders   *dbOrders.OrderReplica
	provider PaymentsProvider
}

func (h handlers) PostPayment(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	var request postPaymentRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	var fields []entity.FieldError
	if request.OrderID == "" {
		fields = append(fields, entity.FieldError{Message: "order_id is required", Field: "order_id"})
	}
	if request.Token == "" {
		fields = append(fields, entity.FieldError{Message: "token is required", Field: "token"})
	}
	if len(fields) > 0 {
		return entity.NewValidationError(fields...)
	}

	ctx := c.Request().Context()

	order, err := h.orders.FindByID(ctx, request.OrderID)
	if err != nil {
		return err
	}
	if order.UserID != user.UserID {
		return entity.ErrUnauthorized
	}
	if order.Status == entity.OrderStatusCancelled {
		return entity.ErrOrderCancelled
	}

	charge, err := h.provider.Charge(ctx, gateway.ChargeRequest{
		Token:  request.Token,
		Amount: order.Price(),
	})
	if err != nil {
		return err
	}

	payment := entity.Payment{
		PaymentID:        uuid.NewString(),
		OrderID:          order.OrderID,
		ProviderChargeID: charge.ChargeID,
	}

	if err := h.repo.Add(ctx, payment); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, paymentResponse{
		PaymentID: payment.PaymentID,
		OrderID:   payment.OrderID,
	})
}
