package orders

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"ticketing/auth"
	dbOrders "ticketing/db/orders"
	dbTickets "ticketing/db/tickets"
	"ticketing/entity"
)

type postOrderRequest struct {
	TicketID string `json:"ticket_id"`
}

type orderResponse struct {
	OrderID   string             `json:"id"`
	Status    entity.OrderStatus `json:"status"`
	ExpiresAt time.Time          `json:"expires_at"`
	Version   int                `json:"version"`
	Ticket    struct {
		TicketID string       `json:"id"`
		Price    entity.Money `json:"price"`
	} `json:"ticket"`
}

func registerRoutes(
	repo *dbOrders.PostgresRepository,
	tickets *dbTickets.PostgresReplica,
	verifier auth.TokenVerifier,
) func(e *echo.Echo) {
	return func(e *echo.Echo) {
		e.Use(auth.Middleware(verifier))

		h := handlers{repo: repo, tickets: tickets}
		e.POST("/orders", h.PostOrder)
		e.GET("/orders", h.GetOrders)
		e.GET("/orders/:order_id", h.GetOrder)
		e.DELETE("/orders/:order_id", h.DeleteOrder)
	}
}

type handlers struct {
	repo    *dbOrders.PostgresRepository
	tickets *dbTickets.PostgresReplica
}

func (h handlers) PostOrder(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	var request postOrderRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.TicketID == "" {
		return entity.NewValidationError(entity.FieldError{
			Message: "ticket_id is required",
			Field:   "ticket_id",
		})
	}

	ctx := c.Request().Context()

	ticket, err := h.tickets.FindByID(ctx, request.TicketID)
	if err != nil {
		return err
	}

	order := entity.Order{
		OrderID:             uuid.NewString(),
		UserID:              user.UserID,
		Status:              entity.OrderStatusCreated,
		ExpiresAt:           time.Now().UTC().Add(ExpirationWindow),
		TicketID:            ticket.TicketID,
		TicketPriceAmount:   ticket.PriceAmount,
		TicketPriceCurrency: ticket.PriceCurrency,
	}

	if err := h.repo.Create(ctx, order); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toResponse(order))
}

func (h handlers) GetOrders(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	orders, err := h.repo.FindAllForUser(c.Request().Context(), user.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lo.Map(orders, func(order entity.Order, _ int) orderResponse {
		return toResponse(order)
	}))
}

func (h handlers) GetOrder(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	order, err := h.repo.FindByID(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return err
	}
	if order.UserID != user.UserID {
		return entity.ErrUnauthorized
	}

	return c.JSON(http.StatusOK, toResponse(order))
}

func (h handlers) DeleteOrder(c echo.Context) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	order, err := h.repo.FindByID(ctx, c.Param("order_id"))
	if err != nil {
		return err
	}
	if order.UserID != user.UserID {
		return entity.ErrUnauthorized
	}

	cancelled, err := h.repo.Cancel(ctx, order.OrderID)
	if err != nil {
		// Cancelling an already cancelled order is fine; a completed one is not.
		if errors.Is(err, entity.ErrOrderFinalized) && cancelled.Status == entity.OrderStatusCancelled {
			return c.JSON(http.StatusOK, toResponse(cancelled))
		}
		return err
	}

	return c.JSON(http.StatusOK, toResponse(cancelled))
}

func toResponse(order entity.Order) orderResponse {
	response := orderResponse{
		OrderID:   order.OrderID,
		Status:    order.Status,
		ExpiresAt: order.ExpiresAt,
		Version:   order.Version,
	}
	response.Ticket.TicketID = order.TicketID
	response.Ticket.Price = order.TicketPrice()
	return response
}
