package entity

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrTicketReserved = errors.New("ticket is already reserved")
	ErrOrderFinalized = errors.New("order is already cancelled or completed")
	ErrOrderCancelled = errors.New("order is cancelled")
	ErrUnauthorized   = errors.New("not authorized")
)

// FieldError is a single field-level validation failure surfaced to the
// HTTP boundary.
type FieldError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	return e.Fields[0].Message
}

func NewValidationError(fields ...FieldError) ValidationError {
	return ValidationError{Fields: fields}
}
