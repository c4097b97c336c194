package apperror

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Order Settlement (ORD) ----

func ErrInvalidPrice(price decimal.Decimal) *AppError {
	return New("ORD_001", fmt.Sprintf("Order price must be greater than zero, got %s", price), http.StatusBadRequest)
}

func ErrDuplicateOrder(title string, supplierID, consumerID int64) *AppError {
	return New("ORD_002",
		fmt.Sprintf("Order with business key (%s, %d, %d) already exists", title, supplierID, consumerID),
		http.StatusConflict)
}

func ErrSelfTradeNotAllowed(clientID int64) *AppError {
	return New("ORD_003", fmt.Sprintf("Supplier and consumer cannot be the same client (%d)", clientID), http.StatusBadRequest)
}

// ErrClientNotActive names the failing side: "supplier" or "consumer".
func ErrClientNotActive(side string, clientID int64) *AppError {
	return New("ORD_004", fmt.Sprintf("%s with id %d is not active", side, clientID), http.StatusUnprocessableEntity)
}

func ErrProfitLimitExceeded(consumerID int64, projected, floor decimal.Decimal) *AppError {
	return New("ORD_005",
		fmt.Sprintf("Consumer %d profit would fall to %s, below the floor %s", consumerID, projected, floor),
		http.StatusUnprocessableEntity)
}

// ---- Client Management (CLI) ----

func ErrClientNotFound(id int64) *AppError {
	return New("CLI_001", fmt.Sprintf("Client with id %d not found", id), http.StatusNotFound)
}

func ErrDuplicateEmail(email string) *AppError {
	return New("CLI_002", fmt.Sprintf("Email already exists: %s", email), http.StatusConflict)
}

// ErrAttributeMismatch covers malformed administrative requests: unsupported
// search fields, empty updates, inverted ranges.
func ErrAttributeMismatch(message string) *AppError {
	return New("CLI_003", message, http.StatusBadRequest)
}

// ---- Concurrency (CON) ----

// ErrConcurrencyConflict is surfaced when the optimistic-lock retry budget is
// exhausted. It is deliberately distinct from every business rejection: the
// submission was never invalid, it just kept losing the version race.
func ErrConcurrencyConflict(attempts int) *AppError {
	return New("CON_001",
		fmt.Sprintf("Settlement abandoned after %d conflicting attempts", attempts),
		http.StatusConflict)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("CLI_003", message, http.StatusBadRequest)
}
