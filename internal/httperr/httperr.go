package httperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/spondias/internal/logging"
)

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_ERROR"
)

// Body is the JSON shape of every error response.
type Body struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Issues  []Issue `json:"issues,omitempty"`
}

type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, Body{Code: code, Message: message})
}

func Validation(message string, issues []Issue) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, Body{Code: CodeValidation, Message: message, Issues: issues})
}

func Unauthorized(message string) *echo.HTTPError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func Internal() *echo.HTTPError {
	return New(http.StatusInternalServerError, CodeInternal, "internal error while processing the request")
}

// Handler replaces echo's default error handler so that errors raised by echo
// itself (unknown route, bad method) and plain errors share the Body shape.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
		he = Internal()
	}

	body, ok := he.Message.(Body)
	if !ok {
		body = Body{Code: codeFor(he.Code), Message: fmt.Sprint(he.Message)}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, body)
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", err)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	default:
		return CodeInternal
	}
}
