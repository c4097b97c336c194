package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New("ORD_001", "Invalid price", http.StatusBadRequest)
	assert.Equal(t, "[ORD_001] Invalid price", e.Error())
}

func TestAppError_Error_Wrapped(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, cause)
	assert.Equal(t, "[SYS_001] Internal server error: boom", e.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	e := InternalError(fmt.Errorf("query clients: %w", cause))
	assert.True(t, errors.Is(e, cause))
}

func TestAppError_ErrorsAs(t *testing.T) {
	var err error = ErrClientNotFound(42)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CLI_001", appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "42")
}

func TestErrorCodes(t *testing.T) {
	floor := decimal.RequireFromString("-1000")
	projected := decimal.RequireFromString("-1030")

	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid price", ErrInvalidPrice(decimal.Zero), "ORD_001", http.StatusBadRequest},
		{"duplicate order", ErrDuplicateOrder("Coal delivery", 1, 2), "ORD_002", http.StatusConflict},
		{"self trade", ErrSelfTradeNotAllowed(7), "ORD_003", http.StatusBadRequest},
		{"not active", ErrClientNotActive("consumer", 3), "ORD_004", http.StatusUnprocessableEntity},
		{"profit floor", ErrProfitLimitExceeded(3, projected, floor), "ORD_005", http.StatusUnprocessableEntity},
		{"client not found", ErrClientNotFound(9), "CLI_001", http.StatusNotFound},
		{"duplicate email", ErrDuplicateEmail("a@b.c"), "CLI_002", http.StatusConflict},
		{"attribute mismatch", ErrAttributeMismatch("at least one attribute"), "CLI_003", http.StatusBadRequest},
		{"concurrency conflict", ErrConcurrencyConflict(5), "CON_001", http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestErrClientNotActive_NamesSide(t *testing.T) {
	assert.Contains(t, ErrClientNotActive("supplier", 11).Message, "supplier with id 11")
	assert.Contains(t, ErrClientNotActive("consumer", 12).Message, "consumer with id 12")
}

func TestErrProfitLimitExceeded_CarriesValues(t *testing.T) {
	e := ErrProfitLimitExceeded(5, decimal.RequireFromString("-1010"), decimal.RequireFromString("-1000"))
	assert.Contains(t, e.Message, "-1010")
	assert.Contains(t, e.Message, "-1000")
}
