package http

import (
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"ticketing/entity"
)

type errorResponse struct {
	Errors []entity.FieldError `json:"errors"`
}

// handleError maps domain errors to status codes. Every response body is a
// list of {message, field?} objects, identical across all services.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	response := errorResponse{
		Errors: []entity.FieldError{{Message: "something went wrong"}},
	}

	var validationErr entity.ValidationError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		response.Errors = validationErr.Fields
	case errors.Is(err, entity.ErrNotFound):
		status = http.StatusNotFound
		response.Errors = []entity.FieldError{{Message: "not found"}}
	case errors.Is(err, entity.ErrUnauthorized):
		status = http.StatusUnauthorized
		response.Errors = []entity.FieldError{{Message: "not authorized"}}
	case errors.Is(err, entity.ErrTicketReserved):
		status = http.StatusBadRequest
		response.Errors = []entity.FieldError{{Message: "ticket is already reserved"}}
	case errors.Is(err, entity.ErrOrderFinalized):
		status = http.StatusBadRequest
		response.Errors = []entity.FieldError{{Message: "order is already cancelled or completed"}}
	case errors.Is(err, entity.ErrOrderCancelled):
		status = http.StatusBadRequest
		response.Errors = []entity.FieldError{{Message: "cannot pay for a cancelled order"}}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			response.Errors = []entity.FieldError{{Message: msg}}
		}
	}

	if status >= http.StatusInternalServerError {
		log.FromContext(c.Request().Context()).WithError(err).Error("HTTP handler failed")
	}

	if err := c.JSON(status, response); err != nil {
		log.FromContext(c.Request().Context()).WithError(err).Error("could not write error response")
	}
}
