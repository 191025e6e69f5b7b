package tickets

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"ticketing/auth"
	dbTickets "ticketing/db/tickets"
	"ticketing/entity"
)

type ticketRequest struct {
	Title string       `json:"title"`
	Price entity.Money `json:"price"`
}

type ticketResponse struct {
	TicketID string       `json:"id"`
	Title    string       `json:"title"`
	Price    entity.Money `json:"price"`
	Version  int          `json:"version"`
	OrderID  *string      `json:"order_id"`
}

func registerRoutes(repo *dbTickets.PostgresRepository, verifier auth.TokenVerifier) func(e *echo.Echo) {
	return func(e *echo.Echo) {
		e.Use(auth.Middleware(verifier))

		h := handlers{repo: repo}
		e.POST("/tickets", h.PostTicket)
		e.PUT("/tickets/:ticket_id", h.PutTicket)
		e.GET("/tickets", h.GetTickets)
		e.GET("/tickets/:ticket_id", h.GetTicket)
	}
}

type handlers struct {
	repo *dbTickets.PostgresRepository
}

func (h handlers) PostTicket(c echo.Context) error {
	if _, err := auth.CurrentUser(c); err != nil {
		return err
	}

	var request ticketRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if err := validateTicketRequest(request); err != nil {
		return err
	}

	ticket := entity.Ticket{
		TicketID:      uuid.NewString(),
		Title:         request.Title,
		PriceAmount:   request.Price.Amount,
		PriceCurrency: request.Price.Currency,
	}

	if err := h.repo.Add(c.Request().Context(), ticket); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toResponse(ticket))
}

func (h handlers) PutTicket(c echo.Context) error {
	if _, err := auth.CurrentUser(c); err != nil {
		return err
	}

	var request ticketRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if err := validateTicketRequest(request); err != nil {
		return err
	}

	updated, err := h.repo.UpdateByID(
		c.Request().Context(),
		c.Param("ticket_id"),
		func(ticket entity.Ticket) (entity.Ticket, error) {
			if ticket.Reserved() {
				return entity.Ticket{}, entity.ErrTicketReserved
			}

			ticket.Title = request.Title
			ticket.PriceAmount = request.Price.Amount
			ticket.PriceCurrency = request.Price.Currency
			return ticket, nil
		},
	)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toResponse(updated))
}

func (h handlers) GetTickets(c echo.Context) error {
	tickets, err := h.repo.FindAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lo.Map(tickets, func(ticket entity.Ticket, _ int) ticketResponse {
		return toResponse(ticket)
	}))
}

func (h handlers) GetTicket(c echo.Context) error {
	ticket, err := h.repo.FindByID(c.Request().Context(), c.Param("ticket_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toResponse(ticket))
}

func validateTicketRequest(request ticketRequest) error {
	var fields []entity.FieldError
	if request.Title == "" {
		fields = append(fields, entity.FieldError{Message: "title is required", Field: "title"})
	}
	if request.Price.Amount == "" {
		fields = append(fields, entity.FieldError{Message: "price amount is required", Field: "price.amount"})
	}
	if request.Price.Currency == "" {
		fields = append(fields, entity.FieldError{Message: "price currency is required", Field: "price.currency"})
	}
	if len(fields) > 0 {
		return entity.NewValidationError(fields...)
	}
	return nil
}

func toResponse(ticket entity.Ticket) ticketResponse {
	return ticketResponse{
		TicketID: ticket.TicketID,
		Title:    ticket.Title,
		Price:    ticket.Price(),
		Version:  ticket.Version,
		OrderID:  ticket.OrderID,
	}
}
