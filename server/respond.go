package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"newsrag/llm"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// badRequest writes a 400 with a user-facing message.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

// internalError writes a generic message plus the error text as details.
func internalError(c echo.Context, msg string, err error) error {
	return c.JSON(statusFor(err), errorBody{Error: msg, Details: err.Error()})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch llm.KindOf(err) {
	case llm.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
