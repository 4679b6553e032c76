package types

import (
	"errors"
	"net/http"
	"strings"
)

type ErrorKind int

const (
	KIND_INTERNAL ErrorKind = iota
	KIND_NOT_FOUND
	KIND_CONFLICT
	KIND_VALIDATION
	KIND_EXTERNAL_DEPENDENCY
	KIND_SIGNATURE_VERIFICATION
)

func (k ErrorKind) String() string {
	switch k {
	case KIND_NOT_FOUND:
		return "Not Found"
	case KIND_CONFLICT:
		return "Conflict"
	case KIND_VALIDATION:
		return "Bad Request"
	case KIND_EXTERNAL_DEPENDENCY:
		return "Bad Gateway"
	case KIND_SIGNATURE_VERIFICATION:
		return "Bad Request"
	}
	return "Internal Server Error"
}

// AppError is the error shape every service returns to the HTTP layer.
type AppError struct {
	Kind     ErrorKind
	Messages []string
	Err      error
}

func (e *AppError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Err != nil && msg == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Status() int {
	switch e.Kind {
	case KIND_NOT_FOUND:
		return http.StatusNotFound
	case KIND_CONFLICT:
		return http.StatusConflict
	case KIND_VALIDATION, KIND_SIGNATURE_VERIFICATION:
		return http.StatusBadRequest
	case KIND_EXTERNAL_DEPENDENCY:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func NotFound(msg string) *AppError {
	return &AppError{Kind: KIND_NOT_FOUND, Messages: []string{msg}}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KIND_CONFLICT, Messages: []string{msg}}
}

func Validation(msgs ...string) *AppError {
	return &AppError{Kind: KIND_VALIDATION, Messages: msgs}
}

func ExternalDependency(msg string, err error) *AppError {
	return &AppError{Kind: KIND_EXTERNAL_DEPENDENCY, Messages: []string{msg}, Err: err}
}

func SignatureVerification(err error) *AppError {
	return &AppError{Kind: KIND_SIGNATURE_VERIFICATION, Messages: []string{"Invalid webhook signature"}, Err: err}
}

// AsAppError returns the AppError in err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

const (
	ERR_TICKET_NOT_FOUND     = "Ticket not found"
	ERR_USER_NOT_FOUND       = "User not found"
	ERR_TICKET_INACTIVE      = "Ticket is not active"
	ERR_TICKET_EXPIRED       = "Ticket event date is expired"
	ERR_TICKET_SOLD_OUT      = "Ticket all sold out"
	ERR_TICKET_QTY_EXCEEDED  = "Ticket quantity exceeded available"
	ERR_INVALID_QUANTITY     = "Quantity must be at least 1"
	ERR_SALE_NOT_FOUND       = "TicketSale not found"
	ERR_SALE_ALREADY_USED    = "TicketSale already used"
	ERR_SALE_NOT_USED_YET    = "TicketSale not used yet"
	ERR_SALE_NOT_PAID        = "TicketSale not paid"
	ERR_EVENT_DATE_TOO_SOON  = "Event date must be at least one day in the future"
	ERR_INVALID_TICKET_PRICE = "Price must be greater than zero"
)
