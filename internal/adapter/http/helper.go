package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"privlend-backend/internal/domain/fault"
)

// suggested client backoff for transient errors, surfaced via Retry-After
const transientRetryAfterSecs = 5

type errorBody struct {
	Code      string       `json:"code,omitempty"`
	Error     string       `json:"error"`
	Retryable bool         `json:"retryable"`
	Details   []FieldError `json:"details,omitempty"`
}

// respondError maps the fault taxonomy onto HTTP statuses. Every terminal
// error carries its code plus the precondition that failed; transient errors
// come back retryable with a Retry-After hint, never swallowed.
func respondError(c echo.Context, err error) error {
	code := fault.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case fault.NotFound:
		status = http.StatusNotFound
	case fault.DuplicateApplication, fault.NoSlotsAvailable, fault.InvalidState, fault.NotYetOverdue:
		status = http.StatusConflict
	case fault.NotLender, fault.NotBorrower:
		status = http.StatusForbidden
	case fault.ProofInvalid, fault.ProofNotRegistered:
		status = http.StatusUnprocessableEntity
	case fault.NetworkTimeout, fault.LedgerUnavailable:
		status = http.StatusServiceUnavailable
		c.Response().Header().Set("Retry-After", strconv.Itoa(transientRetryAfterSecs))
	case "":
		status = http.StatusInternalServerError
	}
	return c.JSON(status, errorBody{
		Code:      string(code),
		Error:     err.Error(),
		Retryable: fault.Retryable(err),
	})
}

func caller(c echo.Context) (string, bool) {
	addr := strings.TrimSpace(c.Request().Header.Get(callerHeader))
	return addr, addr != ""
}

func missingCaller(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: "missing " + callerHeader + " header"})
}

func loanIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("loan_id"), 10, 64)
}
